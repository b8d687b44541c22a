package engine

import (
	"fmt"
	"sort"

	"github.com/attractorlabs/attractor/internal/types"
)

// Score thresholds for the amendment heuristic. A window needs at least one
// criterion peaking above healthyScore before any low criterion is flagged;
// uniformly low scores point at generation, not the criteria themselves.
const (
	healthyScore   = 0.7
	lowMeanScore   = 0.3
	ambiguousFloor = 0.15
)

// DetectAmendments inspects the trailing window of the iteration ledger for
// acceptance criteria that look mis-specified rather than under-generated.
// It is a pure function: history is never mutated and identical inputs
// produce identical proposals.
func DetectAmendments(history []types.IterationResult, window int) []types.AmendmentProposal {
	if window <= 0 || len(history) < window {
		return nil
	}
	tail := history[len(history)-window:]

	names := make(map[string]struct{})
	for _, it := range tail {
		for name := range it.CriteriaScores {
			names[name] = struct{}{}
		}
	}
	// Aggregate-only evaluations carry no per-criterion granularity, so
	// there is nothing to diagnose.
	if len(names) == 0 {
		return nil
	}

	hasHealthy := false
	for name := range names {
		for _, it := range tail {
			if score, ok := it.CriteriaScores[name]; ok && score > healthyScore {
				hasHealthy = true
			}
		}
	}
	if !hasHealthy {
		return nil
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var proposals []types.AmendmentProposal
	for _, name := range sorted {
		// A criterion missing from some window entries is averaged only over
		// the entries where it is present.
		sum, present := 0.0, 0
		for _, it := range tail {
			if score, ok := it.CriteriaScores[name]; ok {
				sum += score
				present++
			}
		}
		if present == 0 {
			continue
		}
		mean := sum / float64(present)
		if mean >= lowMeanScore {
			continue
		}

		diagnosis := types.DiagnosisUnsatisfiable
		if mean > ambiguousFloor {
			diagnosis = types.DiagnosisAmbiguous
		}
		proposals = append(proposals, types.AmendmentProposal{
			CriterionRef:    name,
			CurrentScore:    mean,
			IterationsStuck: window,
			Diagnosis:       diagnosis,
			Suggestion: fmt.Sprintf(
				"criterion %q averaged %.2f over the last %d iterations while others scored well; consider rewording or relaxing it",
				name, mean, window),
		})
	}
	return proposals
}
