// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Precedence: defaults, then file, then
// ATTRACTOR_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	Judge  JudgeConfig  `yaml:"judge"`
	Twin   TwinConfig   `yaml:"twin"`
	Fleet  FleetConfig  `yaml:"fleet"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, host:port
	Addr string `yaml:"addr"`
}

// EngineConfig holds defaults applied to converge requests that omit them.
type EngineConfig struct {
	// SatisfactionThreshold is the default convergence threshold, in [0,1]
	SatisfactionThreshold float64 `yaml:"satisfaction_threshold"`
	// MaxIterations is the default iteration limit per session
	MaxIterations int `yaml:"max_iterations"`
	// StallLimit is the default number of non-improving iterations before
	// strategic regeneration
	StallLimit int `yaml:"stall_limit"`
	// TotalBudgetUSD is the default per-session budget
	TotalBudgetUSD float64 `yaml:"total_budget_usd"`
}

// JudgeConfig selects and configures the trajectory-judging backend.
type JudgeConfig struct {
	// Mode is "stub" or "remote"
	Mode string `yaml:"mode"`
	// Endpoint is the remote backend URL; required when Mode is "remote"
	Endpoint string `yaml:"endpoint"`
	// RequestsPerSecond rate-limits remote judge calls
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// TwinConfig configures the twin execution plane.
type TwinConfig struct {
	// BaseURL is the twin-plane step-execution endpoint; empty enables stub mode
	BaseURL string `yaml:"base_url"`
}

// FleetConfig configures the generation fleet.
type FleetConfig struct {
	// Model overrides the default generation model
	Model string `yaml:"model"`
	// MaxConcurrentCalls bounds simultaneous collaborator calls; 0 disables the bound
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `yaml:"level"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Engine: EngineConfig{
			SatisfactionThreshold: 0.90,
			MaxIterations:         20,
			StallLimit:            3,
			TotalBudgetUSD:        100.0,
		},
		Judge: JudgeConfig{Mode: "stub", RequestsPerSecond: 10},
		Fleet: FleetConfig{MaxConcurrentCalls: 4},
		Log:   LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// ATTRACTOR_* environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	parseEnvString("ATTRACTOR_ADDR", &cfg.Server.Addr)
	parseEnvString("ATTRACTOR_JUDGE_MODE", &cfg.Judge.Mode)
	parseEnvString("ATTRACTOR_JUDGE_ENDPOINT", &cfg.Judge.Endpoint)
	parseEnvString("ATTRACTOR_TWIN_BASE_URL", &cfg.Twin.BaseURL)
	parseEnvString("ATTRACTOR_MODEL", &cfg.Fleet.Model)
	parseEnvString("ATTRACTOR_LOG_LEVEL", &cfg.Log.Level)

	if err := parseEnvFloat("ATTRACTOR_SATISFACTION_THRESHOLD", &cfg.Engine.SatisfactionThreshold); err != nil {
		return err
	}
	if err := parseEnvInt("ATTRACTOR_MAX_ITERATIONS", &cfg.Engine.MaxIterations); err != nil {
		return err
	}
	if err := parseEnvInt("ATTRACTOR_STALL_LIMIT", &cfg.Engine.StallLimit); err != nil {
		return err
	}
	if err := parseEnvFloat("ATTRACTOR_TOTAL_BUDGET_USD", &cfg.Engine.TotalBudgetUSD); err != nil {
		return err
	}
	if err := parseEnvInt("ATTRACTOR_FLEET_MAX_CONCURRENT", &cfg.Fleet.MaxConcurrentCalls); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for values that would break the engine
// or the transport at startup.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Engine.SatisfactionThreshold < 0 || c.Engine.SatisfactionThreshold > 1 {
		return fmt.Errorf("engine.satisfaction_threshold must be in [0,1] (got %g)", c.Engine.SatisfactionThreshold)
	}
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("engine.max_iterations must be at least 1 (got %d)", c.Engine.MaxIterations)
	}
	if c.Engine.StallLimit < 1 {
		return fmt.Errorf("engine.stall_limit must be at least 1 (got %d)", c.Engine.StallLimit)
	}
	if c.Engine.TotalBudgetUSD < 0 {
		return fmt.Errorf("engine.total_budget_usd cannot be negative (got %g)", c.Engine.TotalBudgetUSD)
	}
	switch c.Judge.Mode {
	case "", "stub":
	case "remote":
		if c.Judge.Endpoint == "" {
			return fmt.Errorf("judge.endpoint is required when judge.mode is remote")
		}
	default:
		return fmt.Errorf("judge.mode must be stub or remote (got %q)", c.Judge.Mode)
	}
	return nil
}

// parseEnvString overrides dest when the environment variable is set.
func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

// parseEnvInt parses an int from an environment variable.
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float from an environment variable.
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
