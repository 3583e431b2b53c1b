package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TRQuant/TRQuantExt/internal/config"
	"github.com/TRQuant/TRQuantExt/internal/manager"
)

func newComposeCmd() *cobra.Command {
	var (
		dateStr       string
		universePath  string
		mainlinesPath string
		horizon       string
		topN          int
		save          bool
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compute factors and compose ranked stock signals with mainline scores",
		Long: `Runs the full pipeline for one date and prints the ranked signal list.
With --horizon the composite combination weights tilt toward the factors that
carry over that window (short: momentum and flow; long: value and growth).`,
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

			mainlines, err := loadMainlines(mainlinesPath)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if horizon != "" {
				if err := a.manager.ApplyWeights(manager.PresetWeights(horizon)); err != nil {
					return err
				}
			}

			batch, signals, err := a.runBatch(ctx, date, universe, mainlines, topN, save)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"run_id":   batch.RunID,
				"date":     batch.Date,
				"signals":  signals,
				"failures": batch.Failures,
			})
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().UTC().Format("2006-01-02"), "valuation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&universePath, "universe", "", "universe file (defaults to the configured one)")
	cmd.Flags().StringVar(&mainlinesPath, "mainlines", "", "mainline scores JSON file (optional)")
	cmd.Flags().StringVar(&horizon, "horizon", "", "weight preset: short | medium | long")
	cmd.Flags().IntVar(&topN, "top", 30, "signal count cap")
	cmd.Flags().BoolVar(&save, "save", true, "persist raw factor results")
	return cmd
}
