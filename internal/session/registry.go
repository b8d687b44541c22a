// Package session tracks convergence sessions so status queries can observe
// a loop while it runs and retrieve its outcome afterwards.
package session

import (
	"sync"
	"time"

	"github.com/attractorlabs/attractor/internal/types"
)

// Session is one tracked convergence run.
type Session struct {
	SpecID    string
	StartedAt time.Time
	Status    types.ConvergenceStatus
	// Response is set once the session reaches a terminal state
	Response *types.ConvergeResponse
}

// Registry is a concurrency-safe session store keyed by spec ID. A new run
// for the same spec replaces the previous entry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Begin registers a session in its initializing state.
func (r *Registry) Begin(specID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[specID] = &Session{
		SpecID:    specID,
		StartedAt: time.Now(),
		Status: types.ConvergenceStatus{
			SpecID: specID,
			State:  types.StateInitializing,
		},
	}
}

// Update records loop progress for a running session. Updates for unknown
// specs are dropped.
func (r *Registry) Update(specID string, status types.ConvergenceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[specID]
	if !ok {
		return
	}
	s.Status = status
}

// Finish stores the terminal response and syncs the status view to it.
func (r *Registry) Finish(specID string, resp *types.ConvergeResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[specID]
	if !ok {
		s = &Session{SpecID: specID, StartedAt: time.Now()}
		r.sessions[specID] = s
	}
	s.Response = resp
	s.Status = types.ConvergenceStatus{
		SpecID:              specID,
		State:               resp.State,
		CurrentIteration:    resp.IterationsCompleted,
		CurrentSatisfaction: resp.FinalSatisfaction,
		BudgetSpentUSD:      resp.BudgetSpentUSD,
	}
}

// Status returns the current status view for a spec.
func (r *Registry) Status(specID string) (types.ConvergenceStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[specID]
	if !ok {
		return types.ConvergenceStatus{}, false
	}
	return s.Status, true
}

// Response returns the terminal response for a spec, if it finished.
func (r *Registry) Response(specID string) (*types.ConvergeResponse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[specID]
	if !ok || s.Response == nil {
		return nil, false
	}
	return s.Response, true
}

// Active returns the spec IDs of sessions that have not reached a terminal
// state.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id, s := range r.sessions {
		if !s.Status.State.IsTerminal() {
			out = append(out, id)
		}
	}
	return out
}
