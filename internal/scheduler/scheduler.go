// Package scheduler drives the recurring compute-and-persist run, the
// headless equivalent of an operator triggering a scan after the close.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled engine run for a valuation date.
type Job func(ctx context.Context, date time.Time) error

// Scheduler runs the job on a cron cadence.
type Scheduler struct {
	cron *cron.Cron
	spec string
	job  Job
}

// New creates a scheduler with a standard 5-field cron spec.
func New(spec string, job Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		spec: spec,
		job:  job,
	}
}

// Run installs the job and blocks until the context is cancelled. Each
// firing computes for the current date; a failed run is logged and the
// schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		date := time.Now().UTC().Truncate(24 * time.Hour)
		log.Info().Time("date", date).Msg("scheduled factor run starting")
		if err := s.job(ctx, date); err != nil {
			log.Error().Err(err).Time("date", date).Msg("scheduled factor run failed")
			return
		}
		log.Info().Time("date", date).Msg("scheduled factor run finished")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("scheduler stop timed out with a run in flight")
	}
	return ctx.Err()
}
