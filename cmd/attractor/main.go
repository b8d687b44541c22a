package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/attractorlabs/attractor/internal/config"
	"github.com/attractorlabs/attractor/internal/engine"
	"github.com/attractorlabs/attractor/internal/events"
	"github.com/attractorlabs/attractor/internal/fleet"
	"github.com/attractorlabs/attractor/internal/judge"
	"github.com/attractorlabs/attractor/internal/scenario"
	"github.com/attractorlabs/attractor/internal/session"
	"github.com/attractorlabs/attractor/internal/twin"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "attractor",
	Short: "Spec-driven convergence engine",
	Long: `Attractor drives generated artifacts toward satisfying machine-checkable
specifications through an iterative generate/verify/evaluate loop with
budget limits, stall detection, and amendment proposals.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// stack bundles the wired components shared by the serve and converge
// commands.
type stack struct {
	cfg      config.Config
	log      zerolog.Logger
	engine   *engine.Engine
	executor *scenario.Executor
	eval     *scenario.Evaluator
	twins    *twin.Manager
	registry *session.Registry
}

func buildStack(sink events.Sink) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	judgeBackend, err := judge.New(judge.Config{
		Mode:              judge.Mode(cfg.Judge.Mode),
		Endpoint:          cfg.Judge.Endpoint,
		RequestsPerSecond: cfg.Judge.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	executor := scenario.NewExecutor(scenario.Config{
		TwinBaseURL: cfg.Twin.BaseURL,
		Judge:       judgeBackend,
		Logger:      log,
	})
	evaluator := scenario.NewEvaluator(executor, 0, log)

	fleetClient := fleet.New(fleet.Config{
		Model:              cfg.Fleet.Model,
		MaxConcurrentCalls: cfg.Fleet.MaxConcurrentCalls,
		Logger:             log,
	})

	registry := session.NewRegistry()
	eng, err := engine.New(engine.Config{
		Generator: fleetClient,
		Evaluator: evaluator,
		Registry:  registry,
		Sink:      sink,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	return &stack{
		cfg:      cfg,
		log:      log,
		engine:   eng,
		executor: executor,
		eval:     evaluator,
		twins:    twin.NewManager(nil, log),
		registry: registry,
	}, nil
}
