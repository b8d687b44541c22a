package scenario

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultEvaluationCost is the flat cost charged per evaluation pass.
const DefaultEvaluationCost = 0.20

// Evaluator adapts the scenario executor into the engine's evaluate
// capability: it derives one evaluation scenario per acceptance criterion,
// runs the batch, and aggregates judge scores into a satisfaction score.
type Evaluator struct {
	executor *Executor
	cost     float64
	log      zerolog.Logger
}

// NewEvaluator wraps an executor for engine use. cost <= 0 uses the default
// flat evaluation cost.
func NewEvaluator(executor *Executor, cost float64, log zerolog.Logger) *Evaluator {
	if cost <= 0 {
		cost = DefaultEvaluationCost
	}
	return &Evaluator{executor: executor, cost: cost, log: log}
}

// Evaluate executes scenarios derived from the spec's acceptance criteria.
// An empty criteria list degrades to the deterministic fallback score of 0.5
// with an empty criteria map; unscored batches do the same.
func (e *Evaluator) Evaluate(ctx context.Context, specID string, spec map[string]any) (float64, map[string]float64, float64, error) {
	criteria := extractCriteria(spec)
	if len(criteria) == 0 {
		return 0.5, map[string]float64{}, e.cost, nil
	}

	scenarios := make([]ExecuteRequest, 0, len(criteria))
	for i, criterion := range criteria {
		scenarios = append(scenarios, ExecuteRequest{
			ScenarioID:           fmt.Sprintf("eval-%s-%d", specID, i),
			SpecRef:              specID,
			CriterionRef:         criterion,
			Steps:                []Step{},
			SatisfactionCriteria: criterion,
		})
	}

	batch := e.executor.ExecuteBatch(ctx, BatchRequest{Scenarios: scenarios, Parallel: true})

	criteriaScores := make(map[string]float64)
	for i, r := range batch.Results {
		if r.SatisfactionScore != nil {
			criteriaScores[criteria[i]] = *r.SatisfactionScore
		}
	}

	if batch.AggregateSatisfaction == nil {
		e.log.Warn().Str("spec_id", specID).Msg("attractor.evaluate.unscored")
		return 0.5, map[string]float64{}, e.cost, nil
	}

	return *batch.AggregateSatisfaction, criteriaScores, e.cost, nil
}

// extractCriteria pulls criterion strings out of a raw spec payload.
func extractCriteria(spec map[string]any) []string {
	raw, ok := spec["acceptance_criteria"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if criterion, ok := entry["criterion"].(string); ok && criterion != "" {
			out = append(out, criterion)
		}
	}
	return out
}
