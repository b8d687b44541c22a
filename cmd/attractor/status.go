package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/attractorlabs/attractor/internal/types"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status <spec-id>",
	Short: "Query a running service for a session's convergence status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specID := args[0]

		client := &http.Client{Timeout: 10 * time.Second}
		url := fmt.Sprintf("http://%s/attractor/status/%s", statusAddr, specID)
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("querying %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status query failed: %s", resp.Status)
		}

		var status types.ConvergenceStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("decoding status response: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		stateColor := yellow
		if status.State == types.StateConverged {
			stateColor = green
		}

		fmt.Printf("\n%s\n\n", cyan("=== Convergence Status ==="))
		fmt.Printf("  Spec:         %s\n", status.SpecID)
		fmt.Printf("  State:        %s\n", stateColor(string(status.State)))
		fmt.Printf("  Iteration:    %d\n", status.CurrentIteration)
		fmt.Printf("  Satisfaction: %.4f\n", status.CurrentSatisfaction)
		fmt.Printf("  Spent:        $%.4f\n\n", status.BudgetSpentUSD)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "localhost:8080", "address of the running service")
	rootCmd.AddCommand(statusCmd)
}
