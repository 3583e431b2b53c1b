package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TRQuant/TRQuantExt/internal/advisor"
	"github.com/TRQuant/TRQuantExt/internal/config"
)

func newAdviseCmd() *cobra.Command {
	var (
		requestPath string
		horizon     string
	)

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Produce a structured recommendation from ranked mainlines and factor scores",
		Long: `Reads an advisory request (mainlines, factor scores, optional market
context) from a JSON file and answers it through the configured model chain,
falling back to the deterministic rule engine. Both paths return the same
schema.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			b, err := os.ReadFile(requestPath)
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			var req advisor.Request
			if err := json.Unmarshal(b, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			if horizon != "" {
				req.Horizon = advisor.Horizon(horizon)
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.advisor.Advise(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "advisory request JSON file")
	cmd.Flags().StringVar(&horizon, "horizon", "", "override horizon: short | medium | long")
	cmd.MarkFlagRequired("request")
	return cmd
}
