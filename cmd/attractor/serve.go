package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/attractorlabs/attractor/internal/events"
	"github.com/attractorlabs/attractor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the attractor HTTP service",
	Long:  `Start the HTTP service exposing converge, spec, scenario, and twin endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := buildStack(events.NopSink{})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Config{
			Engine:    st.engine,
			Executor:  st.executor,
			Evaluator: st.eval,
			Twins:     st.twins,
			Registry:  st.registry,
			Logger:    st.log,
		})
		return srv.Run(ctx, st.cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
