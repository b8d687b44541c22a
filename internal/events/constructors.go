package events

import "fmt"

// NewSessionStarted creates the event emitted when a convergence session begins.
func NewSessionStarted(specID string, threshold float64, maxIterations int, budget float64) Event {
	e := newEvent(EventTypeSessionStarted, specID, SeverityInfo,
		fmt.Sprintf("convergence started (threshold %.2f, max %d iterations, budget $%.2f)",
			threshold, maxIterations, budget))
	return e
}

// NewIterationCompleted creates the per-iteration progress event.
func NewIterationCompleted(specID string, iteration int, satisfaction, delta float64, stallCount int, spentUSD float64) Event {
	e := newEvent(EventTypeIterationCompleted, specID, SeverityInfo,
		fmt.Sprintf("iteration %d: satisfaction %.4f (delta %+.4f)", iteration, satisfaction, delta))
	e.Iteration = iteration
	e.Satisfaction = satisfaction
	e.Delta = delta
	e.StallCount = stallCount
	e.SpentUSD = spentUSD
	return e
}

// NewContextDiscovered creates the event emitted when codebase context is built.
func NewContextDiscovered(specID, service string, iteration int) Event {
	e := newEvent(EventTypeContextDiscovered, specID, SeverityInfo,
		fmt.Sprintf("discovered codebase context for service %s", service))
	e.Iteration = iteration
	return e
}

// NewRegenerationTriggered creates the event emitted when a stall forces
// strategic regeneration.
func NewRegenerationTriggered(specID string, iteration, stallCount int) Event {
	e := newEvent(EventTypeRegenerationTriggered, specID, SeverityWarning,
		fmt.Sprintf("stall limit reached after iteration %d, regenerating", iteration))
	e.Iteration = iteration
	e.StallCount = stallCount
	return e
}

// NewAmendmentDetected creates the event emitted when the detector flags
// suspect criteria, regardless of whether the session pauses.
func NewAmendmentDetected(specID string, iteration, count int) Event {
	e := newEvent(EventTypeAmendmentDetected, specID, SeverityWarning,
		fmt.Sprintf("%d acceptance criteria flagged for amendment", count))
	e.Iteration = iteration
	return e
}

// NewConverged creates the terminal success event.
func NewConverged(specID string, iteration int, satisfaction, spentUSD float64) Event {
	e := newEvent(EventTypeConverged, specID, SeverityInfo,
		fmt.Sprintf("converged after %d iterations at satisfaction %.4f", iteration, satisfaction))
	e.Iteration = iteration
	e.Satisfaction = satisfaction
	e.SpentUSD = spentUSD
	return e
}

// NewStalled creates the terminal event for iteration-limit exhaustion.
func NewStalled(specID string, iterations int, satisfaction float64) Event {
	e := newEvent(EventTypeStalled, specID, SeverityWarning,
		fmt.Sprintf("stalled after %d iterations at satisfaction %.4f", iterations, satisfaction))
	e.Iteration = iterations
	e.Satisfaction = satisfaction
	return e
}

// NewBudgetExhausted creates the terminal event for budget exhaustion.
func NewBudgetExhausted(specID string, spentUSD, budgetUSD float64) Event {
	e := newEvent(EventTypeBudgetExhausted, specID, SeverityWarning,
		fmt.Sprintf("budget exhausted: spent $%.4f of $%.2f", spentUSD, budgetUSD))
	e.SpentUSD = spentUSD
	return e
}

// NewCollaboratorDegraded creates the event emitted when an external call
// fails and the engine substitutes a fallback cost or score.
func NewCollaboratorDegraded(specID, collaborator string, iteration int, err error) Event {
	e := newEvent(EventTypeCollaboratorDegraded, specID, SeverityWarning,
		fmt.Sprintf("%s call failed, using fallback: %v", collaborator, err))
	e.Iteration = iteration
	return e
}
