package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TRQuant/TRQuantExt/internal/config"
	"github.com/TRQuant/TRQuantExt/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the recurring compute-and-persist job headless",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Scheduler.Cron == "" {
				return fmt.Errorf("scheduler.cron is not configured")
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sched := scheduler.New(cfg.Scheduler.Cron, func(jctx context.Context, date time.Time) error {
				universe, err := loadUniverse(cfg.Factors.UniverseFile)
				if err != nil {
					return err
				}
				mainlines, err := loadMainlines(cfg.Scheduler.MainlineFile)
				if err != nil {
					mainlines = nil
				}
				_, _, err = a.runBatch(jctx, date, universe, mainlines, cfg.Scheduler.TopN, true)
				return err
			})

			err = sched.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}
