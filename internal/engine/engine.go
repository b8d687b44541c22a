// Package engine implements the convergence control loop: it drives an
// artifact through generate, verify, and evaluate passes until the spec's
// satisfaction threshold is met, the budget runs out, the iteration limit is
// hit, or a stalled session surfaces amendment proposals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/attractorlabs/attractor/internal/events"
	"github.com/attractorlabs/attractor/internal/fleet"
	"github.com/attractorlabs/attractor/internal/session"
	"github.com/attractorlabs/attractor/internal/types"
)

// stallDelta is the fixed improvement threshold: any per-iteration gain
// below it counts as no improvement.
const stallDelta = 0.01

// Fallback costs and score substituted when a collaborator call fails.
// Failures never propagate out of Converge.
const (
	fallbackEvaluateCost = 0.20
	fallbackScore        = 0.5
)

// Generator produces artifacts and verifies their structure. Both calls
// absorb collaborator failures and mark their results degraded instead of
// returning errors.
type Generator interface {
	Generate(ctx context.Context, req fleet.GenerateRequest) fleet.GenerateResult
	Verify(ctx context.Context, specID, artifactRef string) fleet.VerifyResult
}

// Evaluator scores the current artifact against the spec's acceptance
// criteria. It returns the aggregate satisfaction in [0,1], per-criterion
// scores (possibly empty), and the cost of the evaluation pass.
type Evaluator interface {
	Evaluate(ctx context.Context, specID string, spec map[string]any) (float64, map[string]float64, float64, error)
}

// Engine runs convergence sessions. All mutable loop state is local to one
// Converge call; the Engine itself is safe for concurrent sessions over
// different spec IDs.
type Engine struct {
	gen      Generator
	eval     Evaluator
	registry *session.Registry
	sink     events.Sink
	log      zerolog.Logger
}

// Config wires an Engine's collaborators.
type Config struct {
	Generator Generator
	Evaluator Evaluator
	// Registry receives status updates; nil disables tracking
	Registry *session.Registry
	// Sink receives progress events; nil discards them
	Sink   events.Sink
	Logger zerolog.Logger
}

// New creates a convergence engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Engine{
		gen:      cfg.Generator,
		eval:     cfg.Evaluator,
		registry: cfg.Registry,
		sink:     sink,
		log:      cfg.Logger,
	}, nil
}

// Converge runs the control loop to a terminal state. Malformed requests are
// rejected before the loop starts; once running, collaborator failures
// degrade to fallback costs and scores, so the caller always receives a
// well-formed result.
func (e *Engine) Converge(ctx context.Context, req types.ConvergeRequest) (*types.ConvergeResponse, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if e.registry != nil {
		e.registry.Begin(req.SpecID)
	}
	e.sink.Emit(events.NewSessionStarted(req.SpecID, req.SatisfactionThreshold, req.MaxIterations, req.Budget.TotalBudgetUSD))
	e.log.Info().
		Str("spec_id", req.SpecID).
		Float64("threshold", req.SatisfactionThreshold).
		Int("max_iterations", req.MaxIterations).
		Float64("budget_usd", req.Budget.TotalBudgetUSD).
		Str("mode", string(req.Mode)).
		Msg("attractor.session.start")

	var (
		history      []types.IterationResult
		spent        float64
		previous     float64
		satisfaction float64
		stall        int
		feedback     string
		codebase     contextCache
	)

	finish := func(state types.ConvergenceState, artifactRef string, amendments []types.AmendmentProposal) *types.ConvergeResponse {
		resp := &types.ConvergeResponse{
			SpecID:              req.SpecID,
			State:               state,
			IterationsCompleted: len(history),
			FinalSatisfaction:   satisfaction,
			IterationHistory:    history,
			BudgetSpentUSD:      round4(spent),
			CodeArtifactRef:     artifactRef,
			Amendments:          amendments,
		}
		if e.registry != nil {
			e.registry.Finish(req.SpecID, resp)
		}
		return resp
	}

	for iteration := 1; iteration <= req.MaxIterations; iteration++ {
		if decideStart(spent, req.Budget.TotalBudgetUSD) == decideExhaust {
			e.sink.Emit(events.NewBudgetExhausted(req.SpecID, spent, req.Budget.TotalBudgetUSD))
			e.log.Warn().Str("spec_id", req.SpecID).Float64("spent_usd", spent).Msg("attractor.budget_exhausted")
			return finish(types.StateBudgetExhausted, "", nil), nil
		}

		// Generate.
		e.track(req.SpecID, types.StateGenerating, iteration, satisfaction, spent)
		specContext, discovered := codebase.get(req.Spec)
		if discovered {
			e.sink.Emit(events.NewContextDiscovered(req.SpecID, serviceName(req.Spec), iteration))
		}
		genResult := e.gen.Generate(ctx, fleet.GenerateRequest{
			SpecID:    req.SpecID,
			Spec:      req.Spec,
			Iteration: iteration,
			Feedback:  feedback,
			Context:   specContext,
		})
		iterationCost := genResult.CostUSD
		if genResult.Degraded {
			e.sink.Emit(events.NewCollaboratorDegraded(req.SpecID, "generate", iteration, errors.New("degraded result")))
		}

		// Verify.
		e.track(req.SpecID, types.StateVerifying, iteration, satisfaction, spent)
		verifyResult := e.gen.Verify(ctx, req.SpecID, genResult.ArtifactRef)
		iterationCost += verifyResult.CostUSD
		if verifyResult.Degraded {
			e.sink.Emit(events.NewCollaboratorDegraded(req.SpecID, "verify", iteration, errors.New("degraded result")))
		}

		// Evaluate.
		e.track(req.SpecID, types.StateEvaluating, iteration, satisfaction, spent)
		score, criteriaScores, evalCost, err := e.eval.Evaluate(ctx, req.SpecID, req.Spec)
		if err != nil {
			e.sink.Emit(events.NewCollaboratorDegraded(req.SpecID, "evaluate", iteration, err))
			e.log.Warn().Str("spec_id", req.SpecID).Err(err).Msg("attractor.evaluate.degraded")
			score, criteriaScores, evalCost = fallbackScore, map[string]float64{}, fallbackEvaluateCost
		}
		iterationCost += evalCost
		spent += iterationCost

		satisfaction = score
		delta := satisfaction - previous
		previous = satisfaction

		if delta < stallDelta {
			stall++
		} else {
			stall = 0
		}

		history = append(history, types.IterationResult{
			Iteration:         iteration,
			SatisfactionScore: satisfaction,
			Delta:             round4(delta),
			CriteriaScores:    criteriaScores,
			BudgetSpentUSD:    round4(iterationCost),
			StallCount:        stall,
		})
		feedback = describeWeakCriteria(criteriaScores)

		e.sink.Emit(events.NewIterationCompleted(req.SpecID, iteration, satisfaction, delta, stall, spent))
		e.log.Info().
			Str("spec_id", req.SpecID).
			Int("iteration", iteration).
			Float64("satisfaction", satisfaction).
			Float64("delta", round4(delta)).
			Int("stall_count", stall).
			Float64("spent_usd", round4(spent)).
			Msg("attractor.iteration")

		var amendments []types.AmendmentProposal
		if satisfaction < req.SatisfactionThreshold && stall >= req.StallLimit {
			amendments = DetectAmendments(history, req.StallLimit)
		}

		switch decideOutcome(satisfaction, req.SatisfactionThreshold, stall, req.StallLimit, len(amendments) > 0, req.Mode) {
		case decideConverge:
			ref := fmt.Sprintf("artifact://%s/iter-%d", req.SpecID, iteration)
			e.sink.Emit(events.NewConverged(req.SpecID, iteration, satisfaction, spent))
			e.log.Info().Str("spec_id", req.SpecID).Str("artifact_ref", ref).Msg("attractor.converged")
			return finish(types.StateConverged, ref, nil), nil

		case decideProposeAmendment:
			e.sink.Emit(events.NewAmendmentDetected(req.SpecID, iteration, len(amendments)))
			e.log.Warn().Str("spec_id", req.SpecID).Int("amendments", len(amendments)).Msg("attractor.amendment_proposed")
			return finish(types.StateAmendmentProposed, "", amendments), nil

		case decideRegenerate:
			// Outside Supervised mode amendments are advisory: record and keep going.
			if len(amendments) > 0 {
				e.sink.Emit(events.NewAmendmentDetected(req.SpecID, iteration, len(amendments)))
				e.log.Warn().Str("spec_id", req.SpecID).Int("amendments", len(amendments)).Msg("attractor.amendment_advisory")
			}
			e.track(req.SpecID, types.StateRegenerating, iteration, satisfaction, spent)
			e.sink.Emit(events.NewRegenerationTriggered(req.SpecID, iteration, stall))

			codebase.invalidate()
			regenResult := e.gen.Generate(ctx, fleet.GenerateRequest{
				SpecID:    req.SpecID,
				Spec:      req.Spec,
				Iteration: iteration,
				Feedback:  describeWeakCriteria(criteriaScores),
				Strategic: true,
			})
			spent += regenResult.CostUSD
			if regenResult.Degraded {
				e.sink.Emit(events.NewCollaboratorDegraded(req.SpecID, "regenerate", iteration, errors.New("degraded result")))
			}
			stall = 0
		}
	}

	e.sink.Emit(events.NewStalled(req.SpecID, len(history), satisfaction))
	e.log.Warn().Str("spec_id", req.SpecID).Int("iterations", len(history)).Msg("attractor.stalled")
	return finish(types.StateStalled, "", nil), nil
}

// Status returns the last known view of a session, or an initializing
// placeholder for specs the registry has never seen.
func (e *Engine) Status(specID string) types.ConvergenceStatus {
	if e.registry != nil {
		if status, ok := e.registry.Status(specID); ok {
			return status
		}
	}
	return types.ConvergenceStatus{SpecID: specID, State: types.StateInitializing}
}

func (e *Engine) track(specID string, state types.ConvergenceState, iteration int, satisfaction, spent float64) {
	if e.registry == nil {
		return
	}
	e.registry.Update(specID, types.ConvergenceStatus{
		SpecID:              specID,
		State:               state,
		CurrentIteration:    iteration,
		CurrentSatisfaction: satisfaction,
		BudgetSpentUSD:      round4(spent),
	})
}

// describeWeakCriteria formats the lowest-scoring criteria as generation
// feedback, weakest first.
func describeWeakCriteria(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] < scores[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", name, scores[name]))
	}
	return "weakest criteria: " + strings.Join(parts, ", ")
}

func serviceName(spec map[string]any) string {
	if domain, ok := spec["domain"].(map[string]any); ok {
		if service, ok := domain["service"].(string); ok {
			return service
		}
	}
	return "unknown"
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
