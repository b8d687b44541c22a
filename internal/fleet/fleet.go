// Package fleet adapts the agent fleet into the convergence engine's
// generate, verify, and regenerate capabilities. Without an API key the
// fleet runs in stub mode with deterministic results and flat costs, so
// control-loop development does not require live collaborators.
package fleet

import (
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Flat per-call costs charged when a collaborator cannot report real usage,
// and as the stub-mode cost of each capability.
const (
	GenerateCost   = 0.50
	VerifyCost     = 0.10
	RegenerateCost = 1.00
)

// DefaultModel is the model used for generation when none is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// GetModel returns the configured model, checking ATTRACTOR_MODEL first.
func GetModel() string {
	if model := os.Getenv("ATTRACTOR_MODEL"); model != "" {
		return model
	}
	return DefaultModel
}

// Client drives the agent fleet for one convergence session. In stub mode
// (no API key) every call returns a deterministic result.
type Client struct {
	client *anthropic.Client
	model  string
	sem    *semaphore.Weighted
	log    zerolog.Logger
}

// Config holds fleet client configuration.
type Config struct {
	// APIKey for the collaborator API; empty falls back to ANTHROPIC_API_KEY,
	// and stub mode when that is unset too
	APIKey string
	// Model overrides the default generation model
	Model string
	// MaxConcurrentCalls bounds simultaneous collaborator calls; 0 disables the bound
	MaxConcurrentCalls int
	Logger             zerolog.Logger
}

// New creates a fleet client. A missing API key is not an error: the client
// degrades to stub mode so the control loop stays runnable.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = GetModel()
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}

	c := &Client{
		model: model,
		sem:   sem,
		log:   cfg.Logger,
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey != "" {
		client := anthropic.NewClient(option.WithAPIKey(apiKey))
		c.client = &client
	} else {
		c.log.Info().Msg("fleet.stub_mode")
	}

	return c
}

// StubMode reports whether the client runs without a live collaborator.
func (c *Client) StubMode() bool {
	return c.client == nil
}
