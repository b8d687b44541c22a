package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/attractorlabs/attractor/internal/events"
	"github.com/attractorlabs/attractor/internal/types"
)

var (
	convergeSpecFile      string
	convergeSpecID        string
	convergeSpecVersion   string
	convergeThreshold     float64
	convergeMaxIterations int
	convergeStallLimit    int
	convergeBudget        float64
	convergeMode          string
	convergeShowEvents    bool
)

var convergeCmd = &cobra.Command{
	Use:   "converge",
	Short: "Run one convergence session to completion",
	Long: `Run the generate/verify/evaluate loop for a spec until it converges,
stalls, exhausts its budget, or proposes amendments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var specPayload map[string]any
		if convergeSpecFile != "" {
			data, err := os.ReadFile(convergeSpecFile)
			if err != nil {
				return fmt.Errorf("reading spec file: %w", err)
			}
			if err := json.Unmarshal(data, &specPayload); err != nil {
				return fmt.Errorf("parsing spec file %s: %w", convergeSpecFile, err)
			}
			if convergeSpecID == "" {
				if id, ok := specPayload["id"].(string); ok {
					convergeSpecID = id
				}
			}
			if convergeSpecVersion == "" {
				if v, ok := specPayload["version"].(string); ok {
					convergeSpecVersion = v
				}
			}
		}
		if convergeSpecID == "" {
			return fmt.Errorf("--spec-id is required when the spec file carries no id")
		}
		if convergeSpecVersion == "" {
			convergeSpecVersion = "1.0.0"
		}

		sink := &events.MemorySink{}
		st, err := buildStack(sink)
		if err != nil {
			return err
		}

		req := types.ConvergeRequest{
			SpecID:                convergeSpecID,
			SpecVersion:           convergeSpecVersion,
			Spec:                  specPayload,
			SatisfactionThreshold: convergeThreshold,
			MaxIterations:         convergeMaxIterations,
			StallLimit:            convergeStallLimit,
			Mode:                  types.ExecutionMode(convergeMode),
		}
		if convergeBudget > 0 {
			req.Budget = types.DefaultBudget()
			req.Budget.TotalBudgetUSD = convergeBudget
		}

		resp, err := st.engine.Converge(cmd.Context(), req)
		if err != nil {
			return err
		}

		if convergeShowEvents {
			printEvents(sink.Events())
		}
		printResult(resp)
		return nil
	},
}

func init() {
	convergeCmd.Flags().StringVar(&convergeSpecFile, "spec-file", "", "path to a JSON spec payload")
	convergeCmd.Flags().StringVar(&convergeSpecID, "spec-id", "", "spec identifier (default: id from spec file)")
	convergeCmd.Flags().StringVar(&convergeSpecVersion, "spec-version", "", "spec version (default: version from spec file)")
	convergeCmd.Flags().Float64Var(&convergeThreshold, "threshold", 0, "satisfaction threshold in [0,1] (default 0.90)")
	convergeCmd.Flags().IntVar(&convergeMaxIterations, "max-iterations", 0, "iteration limit (default 20)")
	convergeCmd.Flags().IntVar(&convergeStallLimit, "stall-limit", 0, "non-improving iterations before regeneration (default 3)")
	convergeCmd.Flags().Float64Var(&convergeBudget, "budget", 0, "total budget in USD (default 100)")
	convergeCmd.Flags().StringVar(&convergeMode, "mode", "", "execution mode: autonomous, supervised, debug, benchmark")
	convergeCmd.Flags().BoolVar(&convergeShowEvents, "events", false, "replay progress events after the run")
	rootCmd.AddCommand(convergeCmd)
}

func printEvents(evts []events.Event) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Println()
	for _, e := range evts {
		line := fmt.Sprintf("[%s] %s", e.Type, e.Message)
		if e.Severity == events.SeverityWarning {
			fmt.Printf("  %s\n", yellow(line))
		} else {
			fmt.Printf("  %s\n", gray(line))
		}
	}
}

func printResult(resp *types.ConvergeResponse) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Convergence Result ==="))

	stateColor := yellow
	switch resp.State {
	case types.StateConverged:
		stateColor = green
	case types.StateBudgetExhausted, types.StateStalled:
		stateColor = red
	}

	fmt.Printf("  Spec:         %s\n", resp.SpecID)
	fmt.Printf("  State:        %s\n", stateColor(string(resp.State)))
	fmt.Printf("  Iterations:   %d\n", resp.IterationsCompleted)
	fmt.Printf("  Satisfaction: %.4f\n", resp.FinalSatisfaction)
	fmt.Printf("  Spent:        $%.4f\n", resp.BudgetSpentUSD)
	if resp.CodeArtifactRef != "" {
		fmt.Printf("  Artifact:     %s\n", green(resp.CodeArtifactRef))
	}

	if len(resp.Amendments) > 0 {
		fmt.Printf("\n  %s\n", yellow("Proposed amendments:"))
		for _, a := range resp.Amendments {
			fmt.Printf("    - %s (%s, avg %.2f over %d iterations)\n",
				a.CriterionRef, a.Diagnosis, a.CurrentScore, a.IterationsStuck)
			fmt.Printf("      %s\n", a.Suggestion)
		}
	}
	fmt.Println()
}
