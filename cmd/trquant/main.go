package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "trquant"
	version = "v2.0.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Factor computation, validation and signal-combination engine",
		Version: version,
		Long: `trquant scores instruments by combining validated quantitative factors
with thematic mainline strength into a ranked, explainable shortlist.

Factor values persist to Postgres with a transparent file fallback; factors
enter the live combination only after their IC and group-backtest statistics
clear the configured thresholds.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/trquant.yaml", "path to the YAML configuration")

	rootCmd.AddCommand(
		newComputeCmd(),
		newEvaluateCmd(),
		newComposeCmd(),
		newAdviseCmd(),
		newServeCmd(),
		newScheduleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
