package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ATTRACTOR_ADDR", "ATTRACTOR_JUDGE_MODE", "ATTRACTOR_JUDGE_ENDPOINT",
		"ATTRACTOR_TWIN_BASE_URL", "ATTRACTOR_MODEL", "ATTRACTOR_LOG_LEVEL",
		"ATTRACTOR_SATISFACTION_THRESHOLD", "ATTRACTOR_MAX_ITERATIONS",
		"ATTRACTOR_STALL_LIMIT", "ATTRACTOR_TOTAL_BUDGET_USD",
		"ATTRACTOR_FLEET_MAX_CONCURRENT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 0.90, cfg.Engine.SatisfactionThreshold)
	assert.Equal(t, 20, cfg.Engine.MaxIterations)
	assert.Equal(t, 3, cfg.Engine.StallLimit)
	assert.Equal(t, 100.0, cfg.Engine.TotalBudgetUSD)
	assert.Equal(t, "stub", cfg.Judge.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "attractor.yaml")
	content := `
server:
  addr: ":9090"
engine:
  satisfaction_threshold: 0.85
  max_iterations: 10
judge:
  mode: remote
  endpoint: https://judge.internal/invocations
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 0.85, cfg.Engine.SatisfactionThreshold)
	assert.Equal(t, 10, cfg.Engine.MaxIterations)
	assert.Equal(t, "remote", cfg.Judge.Mode)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 3, cfg.Engine.StallLimit)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "attractor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644))

	t.Setenv("ATTRACTOR_ADDR", ":7070")
	t.Setenv("ATTRACTOR_MAX_ITERATIONS", "7")
	t.Setenv("ATTRACTOR_TOTAL_BUDGET_USD", "25.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Engine.MaxIterations)
	assert.Equal(t, 25.5, cfg.Engine.TotalBudgetUSD)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/attractor.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATTRACTOR_MAX_ITERATIONS", "not-a-number")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"threshold above one", func(c *Config) { c.Engine.SatisfactionThreshold = 1.2 }, "satisfaction_threshold"},
		{"zero iterations", func(c *Config) { c.Engine.MaxIterations = 0 }, "max_iterations"},
		{"zero stall limit", func(c *Config) { c.Engine.StallLimit = 0 }, "stall_limit"},
		{"negative budget", func(c *Config) { c.Engine.TotalBudgetUSD = -1 }, "total_budget_usd"},
		{"remote without endpoint", func(c *Config) { c.Judge.Mode = "remote"; c.Judge.Endpoint = "" }, "judge.endpoint"},
		{"unknown judge mode", func(c *Config) { c.Judge.Mode = "oracle" }, "judge.mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
