// Package scenario executes compiled scenarios against twin environments and
// collects trajectory logs for judging. Batches run under a bounded
// concurrency policy so one evaluation step cannot flood the twin plane.
package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/attractorlabs/attractor/internal/judge"
)

// DefaultMaxConcurrency bounds simultaneously in-flight scenario executions
// within one batch.
const DefaultMaxConcurrency = 5

// Executor runs scenario steps against twin endpoints and forwards completed
// trajectories to the judge for satisfaction scoring.
type Executor struct {
	twinBaseURL    string
	client         *http.Client
	judge          judge.Backend
	maxConcurrency int64
	log            zerolog.Logger
}

// Config configures an Executor.
type Config struct {
	// TwinBaseURL is the twin-plane execution endpoint; empty enables stub mode
	TwinBaseURL string
	// Judge scores trajectories; nil disables judging
	Judge judge.Backend
	// MaxConcurrency bounds in-flight executions per batch; 0 uses the default
	MaxConcurrency int
	Logger         zerolog.Logger
}

// NewExecutor creates a scenario executor.
func NewExecutor(cfg Config) *Executor {
	maxC := cfg.MaxConcurrency
	if maxC <= 0 {
		maxC = DefaultMaxConcurrency
	}
	return &Executor{
		twinBaseURL:    strings.TrimRight(cfg.TwinBaseURL, "/"),
		client:         &http.Client{Timeout: 30 * time.Second},
		judge:          cfg.Judge,
		maxConcurrency: int64(maxC),
		log:            cfg.Logger,
	}
}

// Execute runs a single scenario and returns the trajectory with an optional
// judge score. Step failures degrade to failed step results; Execute itself
// fails only on context cancellation inside the judge call.
func (e *Executor) Execute(ctx context.Context, req ExecuteRequest) ExecuteResult {
	start := time.Now()
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	trajectoryID := fmt.Sprintf("traj-%s", hex[:12])

	e.log.Info().
		Str("scenario_id", req.ScenarioID).
		Str("spec_ref", req.SpecRef).
		Int("steps", len(req.Steps)).
		Msg("scenario.execute.start")

	stepResults := make([]StepResult, 0, len(req.Steps))
	passed, failed := 0, 0
	for i, step := range req.Steps {
		stepID := fmt.Sprintf("step-%d", i)
		result := e.executeStep(ctx, stepID, step, req.Namespace)
		stepResults = append(stepResults, result)
		if result.AssertionsPassed {
			passed++
		} else {
			failed++
		}
	}

	trajectory := TrajectoryLog{
		TrajectoryID: trajectoryID,
		ScenarioID:   req.ScenarioID,
		Steps:        stepResults,
		StructuralAssertions: map[string]int{
			"passed": passed,
			"failed": failed,
			"total":  len(stepResults),
		},
	}

	result := ExecuteResult{
		ScenarioID: req.ScenarioID,
		Status:     StatusCompleted,
		Trajectory: trajectory,
	}
	if failed > 0 {
		result.Status = StatusFailed
	}

	if e.judge != nil {
		score, reasoning := e.scoreTrajectory(ctx, trajectory, req.SatisfactionCriteria)
		result.SatisfactionScore = score
		result.JudgeReasoning = reasoning
	}

	result.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0

	e.log.Info().
		Str("scenario_id", req.ScenarioID).
		Str("status", string(result.Status)).
		Int("passed", passed).
		Int("failed", failed).
		Float64("elapsed_ms", result.ElapsedMs).
		Msg("scenario.execute.done")

	return result
}

// executeStep runs one step against the twin environment. Without a twin
// endpoint the step short-circuits to a passing stub result so development
// flows work before the twin plane is available.
func (e *Executor) executeStep(ctx context.Context, stepID string, step Step, namespace string) StepResult {
	if e.twinBaseURL == "" {
		return StepResult{
			StepID:           stepID,
			Request:          map[string]any{"action": step.Action, "dtu_namespace": namespace},
			Response:         map[string]any{"status": 200, "body": map[string]any{"mode": "stub", "expected": step.Expect}},
			AssertionsPassed: true,
			LatencyMs:        1.0,
		}
	}

	body, err := json.Marshal(map[string]any{
		"step_id":   stepID,
		"action":    step.Action,
		"namespace": namespace,
	})
	if err != nil {
		return failedStep(stepID, step, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.twinBaseURL+"/execute-step", bytes.NewReader(body))
	if err != nil {
		return failedStep(stepID, step, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.log.Warn().Str("step_id", stepID).Err(err).Msg("scenario.step.error")
		return failedStep(stepID, step, err)
	}
	defer resp.Body.Close()
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	var respBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		e.log.Warn().Str("step_id", stepID).Err(err).Msg("scenario.step.error")
		return failedStep(stepID, step, err)
	}

	assertionsPassed := resp.StatusCode == http.StatusOK
	if v, ok := respBody["assertions_passed"].(bool); ok {
		assertionsPassed = v
	}

	return StepResult{
		StepID:           stepID,
		Request:          map[string]any{"action": step.Action, "dtu_namespace": namespace},
		Response:         map[string]any{"status": resp.StatusCode, "body": respBody},
		AssertionsPassed: assertionsPassed,
		LatencyMs:        latency,
	}
}

func failedStep(stepID string, step Step, err error) StepResult {
	return StepResult{
		StepID:           stepID,
		Request:          map[string]any{"action": step.Action},
		Response:         map[string]any{},
		AssertionsPassed: false,
		Error:            err.Error(),
	}
}

// scoreTrajectory forwards a trajectory to the judge. Judge failures degrade
// to an unscored result.
func (e *Executor) scoreTrajectory(ctx context.Context, trajectory TrajectoryLog, criterion string) (*float64, string) {
	trajMap, err := toMap(trajectory)
	if err != nil {
		e.log.Warn().Err(err).Msg("scenario.judge.error")
		return nil, ""
	}

	resp, err := e.judge.Evaluate(ctx, judge.EvaluateRequest{
		Prompt:     fmt.Sprintf("Evaluate trajectory against: %s", criterion),
		Trajectory: trajMap,
		Criterion:  criterion,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("scenario.judge.error")
		return nil, ""
	}

	score := resp.Score
	return &score, resp.Reasoning
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteBatch runs scenarios with bounded concurrency, preserving input
// order in the results. The aggregate is the mean of judge scores across
// scored scenarios; it is nil when nothing was scored.
func (e *Executor) ExecuteBatch(ctx context.Context, req BatchRequest) BatchResult {
	results := make([]ExecuteResult, len(req.Scenarios))

	limit := e.maxConcurrency
	if !req.Parallel {
		limit = 1
	}
	sem := semaphore.NewWeighted(limit)

	for i, scn := range req.Scenarios {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled mid-batch: mark remaining scenarios failed.
			for j := i; j < len(req.Scenarios); j++ {
				results[j] = ExecuteResult{
					ScenarioID: req.Scenarios[j].ScenarioID,
					Status:     StatusFailed,
				}
			}
			break
		}
		go func(idx int, scn ExecuteRequest) {
			defer sem.Release(1)
			results[idx] = e.Execute(ctx, scn)
		}(i, scn)
	}

	// Wait for all in-flight executions to drain.
	if err := sem.Acquire(context.Background(), limit); err == nil {
		sem.Release(limit)
	}

	var sum float64
	scored := 0
	for _, r := range results {
		if r.SatisfactionScore != nil {
			sum += *r.SatisfactionScore
			scored++
		}
	}

	out := BatchResult{Results: results}
	if scored > 0 {
		agg := sum / float64(scored)
		out.AggregateSatisfaction = &agg
	}
	return out
}
