package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TRQuant/TRQuantExt/internal/config"
)

func newComputeCmd() *cobra.Command {
	var (
		dateStr      string
		universePath string
		save         bool
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute all active factors for a date and print composite scores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}

			if universePath == "" {
				universePath = cfg.Factors.UniverseFile
			}
			universe, err := loadUniverse(universePath)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			fields := a.manager.RequiredFields(true)
			snap, err := a.provider.Fetch(ctx, date, universe, fields)
			if err != nil {
				return fmt.Errorf("fetch market data: %w", err)
			}

			batch, err := a.manager.ComputeAll(ctx, date, universe, snap, true)
			if err != nil {
				return err
			}

			if save {
				for _, res := range batch.Raw {
					if err := a.store.Save(ctx, res); err != nil {
						return fmt.Errorf("persist %s: %w", res.FactorName, err)
					}
				}
			}
			return printJSON(batch)
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().UTC().Format("2006-01-02"), "valuation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&universePath, "universe", "", "universe file (defaults to the configured one)")
	cmd.Flags().BoolVar(&save, "save", true, "persist raw factor results")
	return cmd
}
