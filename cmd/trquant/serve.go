package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TRQuant/TRQuantExt/internal/config"
	"github.com/TRQuant/TRQuantExt/internal/evaluator"
	"github.com/TRQuant/TRQuantExt/internal/scheduler"
	"github.com/TRQuant/TRQuantExt/internal/server"
)

func newServeCmd() *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve signals, diagnostics and metrics over HTTP",
		Long: `Runs the read-only HTTP interface (JSON API, websocket signal feed,
Prometheus metrics). With --with-scheduler the daily compute job runs in the
same process and publishes each run to the interface.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(cfg.Server.Addr)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := srv.ListenAndServe(gctx)
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})

			if withScheduler && cfg.Scheduler.Cron != "" {
				sched := scheduler.New(cfg.Scheduler.Cron, func(jctx context.Context, date time.Time) error {
					return a.scheduledRun(jctx, date, srv)
				})
				g.Go(func() error {
					err := sched.Run(gctx)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "run the cron compute job in-process")
	return cmd
}

// scheduledRun executes the daily pipeline and publishes the outcome.
func (a *app) scheduledRun(ctx context.Context, date time.Time, srv *server.Server) error {
	universe, err := loadUniverse(a.cfg.Factors.UniverseFile)
	if err != nil {
		return err
	}
	mainlines, err := loadMainlines(a.cfg.Scheduler.MainlineFile)
	if err != nil {
		log.Warn().Err(err).Msg("mainline export unreadable, composing with defaults")
		mainlines = nil
	}

	batch, signals, err := a.runBatch(ctx, date, universe, mainlines, a.cfg.Scheduler.TopN, true)
	if err != nil {
		return err
	}

	var perf []evaluator.Performance
	for _, name := range a.manager.Factors() {
		if p, ok := a.manager.Performance(name); ok {
			perf = append(perf, p)
		}
	}
	srv.Publish(signals, batch, perf)
	return nil
}
