// Package events defines the typed progress events the convergence engine
// emits while a session runs. Events are observability output only; the
// loop's correctness never depends on them.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event that occurred during convergence.
type EventType string

const (
	// EventTypeSessionStarted indicates a convergence session began
	EventTypeSessionStarted EventType = "session_started"
	// EventTypeIterationCompleted indicates one full generate/verify/evaluate pass finished
	EventTypeIterationCompleted EventType = "iteration_completed"
	// EventTypeContextDiscovered indicates codebase context was (re)discovered
	EventTypeContextDiscovered EventType = "context_discovered"
	// EventTypeRegenerationTriggered indicates a stall forced strategic regeneration
	EventTypeRegenerationTriggered EventType = "regeneration_triggered"
	// EventTypeAmendmentDetected indicates the detector flagged suspect criteria
	EventTypeAmendmentDetected EventType = "amendment_detected"
	// EventTypeConverged indicates the session reached its satisfaction threshold
	EventTypeConverged EventType = "converged"
	// EventTypeStalled indicates the session exhausted its iteration limit
	EventTypeStalled EventType = "stalled"
	// EventTypeBudgetExhausted indicates cumulative spend reached the budget
	EventTypeBudgetExhausted EventType = "budget_exhausted"
	// EventTypeCollaboratorDegraded indicates an external call failed and a fallback was used
	EventTypeCollaboratorDegraded EventType = "collaborator_degraded"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// Event is one progress record from a convergence session.
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type categorizes the event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// SpecID identifies the convergence session
	SpecID string `json:"spec_id"`
	// Severity indicates how important this event is
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description
	Message string `json:"message"`

	// Iteration is the 1-based iteration the event belongs to (0 for session-level events)
	Iteration int `json:"iteration,omitempty"`
	// Satisfaction is the aggregate score at emission time
	Satisfaction float64 `json:"satisfaction,omitempty"`
	// Delta is the score change from the previous iteration
	Delta float64 `json:"delta,omitempty"`
	// StallCount is the running stall counter
	StallCount int `json:"stall_count,omitempty"`
	// SpentUSD is cumulative session spend at emission time
	SpentUSD float64 `json:"spent_usd,omitempty"`
}

// Sink receives events as the engine emits them. Implementations must be
// safe for concurrent use; Emit must not block the loop.
type Sink interface {
	Emit(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

// MemorySink buffers events in memory, primarily for tests and the one-shot
// CLI, which replays them after the run.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (s *MemorySink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// newEvent fills the common fields shared by all constructors.
func newEvent(t EventType, specID string, severity EventSeverity, message string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		SpecID:    specID,
		Severity:  severity,
		Message:   message,
	}
}
