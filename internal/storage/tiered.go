package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/TRQuant/TRQuantExt/internal/factor"
	"github.com/TRQuant/TRQuantExt/internal/metrics"
)

// TieredStore implements the primary/fallback storage discipline: every
// operation tries the primary backend first and degrades transparently to
// the fallback on unavailability. A circuit breaker stops hammering a dead
// primary; while it is open, operations go straight to the fallback. The two
// backends are not reconciled automatically.
type TieredStore struct {
	primary  Store
	fallback Store
	breaker  *gobreaker.CircuitBreaker
}

// NewTieredStore wires a primary and fallback backend together.
func NewTieredStore(primary, fallback Store) *TieredStore {
	return &TieredStore{
		primary:  primary,
		fallback: fallback,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "factor-storage-primary",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("storage circuit breaker state change")
			},
		}),
	}
}

// Save writes to the primary; on unavailability the write lands in the
// fallback store only, logged as degraded mode. It fails only when both
// backends fail.
func (s *TieredStore) Save(ctx context.Context, res *factor.Result) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.primary.Save(ctx, res)
	})
	if err == nil {
		return nil
	}

	log.Warn().Err(err).
		Str("factor", res.FactorName).
		Time("date", res.Date).
		Msg("primary store unavailable, degrading save to file fallback")
	metrics.StorageFallbackTotal.WithLabelValues("save").Inc()

	if fbErr := s.fallback.Save(ctx, res); fbErr != nil {
		return fmt.Errorf("both storage backends failed: primary: %v; fallback: %w", err, fbErr)
	}
	return nil
}

// Load reads from the primary, degrading to the fallback on unavailability.
func (s *TieredStore) Load(ctx context.Context, factorName string, from, to time.Time, universe []string) ([]*factor.Result, error) {
	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Load(ctx, factorName, from, to, universe)
	})
	if err == nil {
		return v.([]*factor.Result), nil
	}

	log.Warn().Err(err).
		Str("factor", factorName).
		Msg("primary store unavailable, degrading load to file fallback")
	metrics.StorageFallbackTotal.WithLabelValues("load").Inc()

	out, fbErr := s.fallback.Load(ctx, factorName, from, to, universe)
	if fbErr != nil {
		return nil, fmt.Errorf("both storage backends failed: primary: %v; fallback: %w", err, fbErr)
	}
	return out, nil
}

// Ping reports healthy if either backend is reachable.
func (s *TieredStore) Ping(ctx context.Context) error {
	if err := s.primary.Ping(ctx); err == nil {
		return nil
	}
	return s.fallback.Ping(ctx)
}

// Close closes both backends.
func (s *TieredStore) Close() error {
	err := s.primary.Close()
	if fbErr := s.fallback.Close(); fbErr != nil && err == nil {
		err = fbErr
	}
	return err
}
