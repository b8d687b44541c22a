package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attractorlabs/attractor/internal/events"
	"github.com/attractorlabs/attractor/internal/fleet"
	"github.com/attractorlabs/attractor/internal/session"
	"github.com/attractorlabs/attractor/internal/types"
)

// stubGenerator charges flat costs and records every request it sees.
type stubGenerator struct {
	mu       sync.Mutex
	requests []fleet.GenerateRequest
	degrade  bool
}

func (g *stubGenerator) Generate(_ context.Context, req fleet.GenerateRequest) fleet.GenerateResult {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	cost := 0.50
	if req.Strategic {
		cost = 1.00
	}
	return fleet.GenerateResult{
		ArtifactRef: fmt.Sprintf("artifact://%s/iter-%d", req.SpecID, req.Iteration),
		CostUSD:     cost,
		Degraded:    g.degrade,
	}
}

func (g *stubGenerator) Verify(_ context.Context, _, _ string) fleet.VerifyResult {
	return fleet.VerifyResult{Passed: true, CostUSD: 0.10}
}

func (g *stubGenerator) strategicCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.Strategic {
			n++
		}
	}
	return n
}

// scriptedEvaluator replays a fixed score sequence, repeating the last entry
// once the script runs out.
type scriptedEvaluator struct {
	scores   []float64
	criteria []map[string]float64
	err      error
	calls    int
}

func (e *scriptedEvaluator) Evaluate(_ context.Context, _ string, _ map[string]any) (float64, map[string]float64, float64, error) {
	if e.err != nil {
		return 0, nil, 0, e.err
	}
	idx := e.calls
	e.calls++
	if idx >= len(e.scores) {
		idx = len(e.scores) - 1
	}
	var criteria map[string]float64
	if len(e.criteria) > 0 {
		cidx := e.calls - 1
		if cidx >= len(e.criteria) {
			cidx = len(e.criteria) - 1
		}
		criteria = e.criteria[cidx]
	}
	return e.scores[idx], criteria, 0.20, nil
}

func newTestEngine(t *testing.T, gen Generator, eval Evaluator, sink events.Sink, reg *session.Registry) *Engine {
	t.Helper()
	e, err := New(Config{
		Generator: gen,
		Evaluator: eval,
		Registry:  reg,
		Sink:      sink,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return e
}

func baseRequest() types.ConvergeRequest {
	return types.ConvergeRequest{
		SpecID:                "spec-20260115-cart",
		SpecVersion:           "1.0.0",
		Spec:                  map[string]any{"title": "Cart checkout"},
		SatisfactionThreshold: 0.90,
		MaxIterations:         5,
		StallLimit:            3,
		Mode:                  types.ModeAutonomous,
		Budget: types.BudgetAllocation{
			GenerationPct:  0.50,
			ScenariosPct:   0.30,
			JudgePct:       0.15,
			OverheadPct:    0.05,
			TotalBudgetUSD: 10,
		},
	}
}

func eventTypes(sink *events.MemorySink) []events.EventType {
	evts := sink.Events()
	out := make([]events.EventType, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

func TestConvergeFirstIteration(t *testing.T) {
	gen := &stubGenerator{}
	sink := &events.MemorySink{}
	e := newTestEngine(t, gen, &scriptedEvaluator{scores: []float64{0.95}}, sink, nil)

	resp, err := e.Converge(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateConverged, resp.State)
	assert.Equal(t, 1, resp.IterationsCompleted)
	assert.Equal(t, "artifact://spec-20260115-cart/iter-1", resp.CodeArtifactRef)
	assert.InDelta(t, 0.95, resp.FinalSatisfaction, 1e-9)
	assert.Empty(t, resp.Amendments)
	assert.Contains(t, eventTypes(sink), events.EventTypeConverged)
}

func TestLedgerIndicesAndBudgetMonotonic(t *testing.T) {
	gen := &stubGenerator{}
	e := newTestEngine(t, gen, &scriptedEvaluator{scores: []float64{0.3, 0.5, 0.95}}, nil, nil)

	resp, err := e.Converge(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateConverged, resp.State)
	require.Equal(t, resp.IterationsCompleted, len(resp.IterationHistory))
	for i, it := range resp.IterationHistory {
		assert.Equal(t, i+1, it.Iteration)
		assert.Greater(t, it.BudgetSpentUSD, 0.0)
	}
	// Three iterations at 0.50+0.10+0.20 each.
	assert.InDelta(t, 2.4, resp.BudgetSpentUSD, 1e-9)
}

func TestBudgetExhaustedAfterFirstIteration(t *testing.T) {
	req := baseRequest()
	req.Budget.TotalBudgetUSD = 0.5

	sink := &events.MemorySink{}
	e := newTestEngine(t, &stubGenerator{}, &scriptedEvaluator{scores: []float64{0.4}}, sink, nil)

	resp, err := e.Converge(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateBudgetExhausted, resp.State)
	assert.Equal(t, 1, resp.IterationsCompleted)
	assert.GreaterOrEqual(t, resp.BudgetSpentUSD, req.Budget.TotalBudgetUSD)
	assert.Contains(t, eventTypes(sink), events.EventTypeBudgetExhausted)
}

func TestZeroBudgetExhaustsWithEmptyHistory(t *testing.T) {
	req := baseRequest()
	req.Budget.TotalBudgetUSD = 0

	e := newTestEngine(t, &stubGenerator{}, &scriptedEvaluator{scores: []float64{0.4}}, nil, nil)
	resp, err := e.Converge(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateBudgetExhausted, resp.State)
	assert.Empty(t, resp.IterationHistory)
	assert.Zero(t, resp.BudgetSpentUSD)
}

func TestSupervisedAmendmentPausesLoop(t *testing.T) {
	req := baseRequest()
	req.Mode = types.ModeSupervised
	req.MaxIterations = 10

	eval := &scriptedEvaluator{
		scores:   []float64{0.5},
		criteria: []map[string]float64{{"totals_correct": 0.2, "latency_ok": 0.85}},
	}
	sink := &events.MemorySink{}
	e := newTestEngine(t, &stubGenerator{}, eval, sink, nil)

	resp, err := e.Converge(context.Background(), req)
	require.NoError(t, err)

	// Stall counter reaches the limit on iteration 4; the loop halts there.
	assert.Equal(t, types.StateAmendmentProposed, resp.State)
	assert.Equal(t, 4, resp.IterationsCompleted)
	require.NotEmpty(t, resp.Amendments)
	assert.Equal(t, "totals_correct", resp.Amendments[0].CriterionRef)
	assert.Contains(t, eventTypes(sink), events.EventTypeAmendmentDetected)
}

func TestAutonomousAmendmentIsAdvisory(t *testing.T) {
	req := baseRequest()
	req.MaxIterations = 6

	gen := &stubGenerator{}
	eval := &scriptedEvaluator{
		scores:   []float64{0.5},
		criteria: []map[string]float64{{"totals_correct": 0.2, "latency_ok": 0.85}},
	}
	sink := &events.MemorySink{}
	e := newTestEngine(t, gen, eval, sink, nil)

	resp, err := e.Converge(context.Background(), req)
	require.NoError(t, err)

	// The loop records the amendment but keeps iterating past the stall point.
	assert.Equal(t, types.StateStalled, resp.State)
	assert.Equal(t, 6, resp.IterationsCompleted)
	assert.Empty(t, resp.Amendments)
	assert.GreaterOrEqual(t, gen.strategicCount(), 1)
	assert.Contains(t, eventTypes(sink), events.EventTypeAmendmentDetected)
	assert.Contains(t, eventTypes(sink), events.EventTypeRegenerationTriggered)
}

func TestFlatScoresStallAfterIterationLimit(t *testing.T) {
	sink := &events.MemorySink{}
	gen := &stubGenerator{}
	e := newTestEngine(t, gen, &scriptedEvaluator{scores: []float64{0.5}}, sink, nil)

	resp, err := e.Converge(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, types.StateStalled, resp.State)
	assert.Equal(t, 5, resp.IterationsCompleted)
	assert.InDelta(t, 0.5, resp.FinalSatisfaction, 1e-9)
	// One strategic regeneration fired when the stall counter hit the limit.
	assert.Equal(t, 1, gen.strategicCount())
	assert.Contains(t, eventTypes(sink), events.EventTypeStalled)
}

func TestEvaluatorFailureDegradesToFallback(t *testing.T) {
	req := baseRequest()
	req.MaxIterations = 1

	sink := &events.MemorySink{}
	e := newTestEngine(t, &stubGenerator{}, &scriptedEvaluator{err: errors.New("judge endpoint down")}, sink, nil)

	resp, err := e.Converge(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.IterationHistory, 1)
	assert.InDelta(t, 0.5, resp.IterationHistory[0].SatisfactionScore, 1e-9)
	assert.InDelta(t, 0.8, resp.IterationHistory[0].BudgetSpentUSD, 1e-9)
	assert.Contains(t, eventTypes(sink), events.EventTypeCollaboratorDegraded)
}

func TestDegradedGeneratorEmitsEvent(t *testing.T) {
	req := baseRequest()
	req.MaxIterations = 1

	sink := &events.MemorySink{}
	e := newTestEngine(t, &stubGenerator{degrade: true}, &scriptedEvaluator{scores: []float64{0.5}}, sink, nil)

	_, err := e.Converge(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, eventTypes(sink), events.EventTypeCollaboratorDegraded)
}

func TestMalformedRequestRejectedBeforeLoop(t *testing.T) {
	gen := &stubGenerator{}
	e := newTestEngine(t, gen, &scriptedEvaluator{scores: []float64{0.5}}, nil, nil)

	req := baseRequest()
	req.SatisfactionThreshold = 1.5
	resp, err := e.Converge(context.Background(), req)
	assert.Error(t, err)
	assert.Nil(t, resp)

	req = baseRequest()
	req.Budget.TotalBudgetUSD = -5
	_, err = e.Converge(context.Background(), req)
	assert.Error(t, err)

	assert.Empty(t, gen.requests, "no collaborator calls before validation")
}

func TestRegenerationForcesContextRediscovery(t *testing.T) {
	sink := &events.MemorySink{}
	e := newTestEngine(t, &stubGenerator{}, &scriptedEvaluator{scores: []float64{0.5}}, sink, nil)

	_, err := e.Converge(context.Background(), baseRequest())
	require.NoError(t, err)

	discoveries := 0
	for _, evt := range sink.Events() {
		if evt.Type == events.EventTypeContextDiscovered {
			discoveries++
		}
	}
	// Once at session start, once after the regeneration invalidated the cache.
	assert.Equal(t, 2, discoveries)
}

func TestStatusLifecycle(t *testing.T) {
	reg := session.NewRegistry()
	e := newTestEngine(t, &stubGenerator{}, &scriptedEvaluator{scores: []float64{0.95}}, nil, reg)

	placeholder := e.Status("spec-20260115-ghost")
	assert.Equal(t, types.StateInitializing, placeholder.State)
	assert.Zero(t, placeholder.CurrentIteration)
	assert.Zero(t, placeholder.BudgetSpentUSD)

	_, err := e.Converge(context.Background(), baseRequest())
	require.NoError(t, err)

	status := e.Status("spec-20260115-cart")
	assert.Equal(t, types.StateConverged, status.State)
	assert.Equal(t, 1, status.CurrentIteration)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Evaluator: &scriptedEvaluator{}})
	assert.Error(t, err)

	_, err = New(Config{Generator: &stubGenerator{}})
	assert.Error(t, err)
}
