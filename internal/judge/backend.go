// Package judge scores scenario trajectories against satisfaction criteria.
//
// Two backends exist: a deterministic stub for development and testing, and
// a remote client for a trained scoring model served over HTTP. The backend
// is chosen once at startup from configuration; nothing in this package
// holds global state.
package judge

import (
	"context"
	"fmt"
)

// EvaluateRequest carries one trajectory to score.
type EvaluateRequest struct {
	// Prompt is the pre-built evaluation prompt
	Prompt string `json:"prompt"`
	// Trajectory is the full trajectory log of the scenario execution
	Trajectory map[string]any `json:"trajectory_log"`
	// Criterion is the natural-language satisfaction criterion to score against
	Criterion string `json:"satisfaction_criterion"`
}

// EvaluateResponse is a structured scoring result.
type EvaluateResponse struct {
	// Score is the satisfaction score in [0,1]
	Score float64 `json:"score"`
	// Reasoning optionally explains the score
	Reasoning string `json:"reasoning,omitempty"`
	// ModelVersion identifies the backend that produced the score
	ModelVersion string `json:"model_version,omitempty"`
}

// Backend scores trajectories. Implementations must be safe for concurrent
// use; the scenario executor calls Evaluate from multiple goroutines.
type Backend interface {
	Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error)
}

// Mode selects the backend implementation.
type Mode string

const (
	// ModeStub returns a fixed score for dev and integration testing
	ModeStub Mode = "stub"
	// ModeRemote invokes a trained scoring model over HTTP
	ModeRemote Mode = "remote"
)

// Config selects and configures a backend. Resolution happens exactly once,
// at construction; an unknown mode is a startup error, not a fallback.
type Config struct {
	Mode Mode
	// Endpoint is the remote model inference URL (required for ModeRemote)
	Endpoint string
	// RequestsPerSecond bounds the remote call rate; 0 means a default of 10
	RequestsPerSecond float64
	// TimeoutSeconds bounds a single remote call; 0 means a default of 60
	TimeoutSeconds int
}

// New resolves a backend from configuration.
func New(cfg Config) (Backend, error) {
	switch cfg.Mode {
	case ModeStub, "":
		return &StubBackend{}, nil
	case ModeRemote:
		return NewRemoteBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown judge backend mode: %q (supported: stub, remote)", cfg.Mode)
	}
}

// StubBackend returns a fixed 0.5 score for dev and integration testing.
type StubBackend struct{}

// Evaluate implements Backend.
func (b *StubBackend) Evaluate(_ context.Context, _ EvaluateRequest) (EvaluateResponse, error) {
	return EvaluateResponse{
		Score:        0.5,
		Reasoning:    "stub backend - fixed score for testing",
		ModelVersion: "stub-v0",
	}, nil
}
