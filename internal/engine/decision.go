package engine

import "github.com/attractorlabs/attractor/internal/types"

// decision is the outcome of one control-flow checkpoint in the loop.
type decision int

const (
	decideContinue decision = iota
	decideConverge
	decideRegenerate
	decideProposeAmendment
	decideExhaust
)

func (d decision) String() string {
	switch d {
	case decideContinue:
		return "continue"
	case decideConverge:
		return "converge"
	case decideRegenerate:
		return "regenerate"
	case decideProposeAmendment:
		return "propose-amendment"
	case decideExhaust:
		return "exhaust"
	}
	return "unknown"
}

// decideStart is the pre-iteration budget gate. Exhaustion is only checked
// here, before a new iteration spends anything, never mid-iteration.
func decideStart(spentUSD, totalBudgetUSD float64) decision {
	if spentUSD >= totalBudgetUSD {
		return decideExhaust
	}
	return decideContinue
}

// decideOutcome picks the loop's branch after an iteration's evaluation.
// Convergence wins over the stall branch; amendments pause the loop only in
// Supervised mode and stay advisory everywhere else.
func decideOutcome(satisfaction, threshold float64, stallCount, stallLimit int, amendmentsFound bool, mode types.ExecutionMode) decision {
	if satisfaction >= threshold {
		return decideConverge
	}
	if stallCount >= stallLimit {
		if amendmentsFound && mode == types.ModeSupervised {
			return decideProposeAmendment
		}
		return decideRegenerate
	}
	return decideContinue
}
