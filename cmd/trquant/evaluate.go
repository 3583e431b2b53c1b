package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TRQuant/TRQuantExt/internal/config"
	"github.com/TRQuant/TRQuantExt/internal/evaluator"
)

func newEvaluateCmd() *cobra.Command {
	var (
		factorNames []string
		fromStr     string
		toStr       string
		returnsPath string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Validate factors against realized forward returns from stored history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			fwd, err := loadForwardReturns(returnsPath)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(factorNames) == 0 {
				factorNames = a.manager.Factors()
			}

			var verdicts []evaluator.Performance
			for _, name := range factorNames {
				if err := ctx.Err(); err != nil {
					return err
				}
				dir, err := a.factorDirection(name)
				if err != nil {
					return err
				}
				history, err := a.store.Load(ctx, name, from, to, nil)
				if err != nil {
					return fmt.Errorf("load history for %s: %w", name, err)
				}
				perf := a.eval.Evaluate(name, dir, history, fwd)
				a.manager.SetPerformance(perf)
				verdicts = append(verdicts, perf)
			}
			return printJSON(verdicts)
		},
	}

	cmd.Flags().StringSliceVar(&factorNames, "factor", nil, "factor names (default: all registered)")
	cmd.Flags().StringVar(&fromStr, "from", "", "window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "window end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&returnsPath, "returns", "", "forward returns JSON file")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("returns")
	return cmd
}
