package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// CachedProvider is a read-through Redis cache in front of a Provider.
// Cache keys always include the trade date so cross-sectional data for one
// date can never leak into another date's computation.
type CachedProvider struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedProvider wraps a provider with a Redis field cache.
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(date time.Time, field string) string {
	return fmt.Sprintf("md:%s:%s", date.Format("2006-01-02"), field)
}

// Fetch serves fields from Redis where cached, fetching and caching the
// remainder from the inner provider. Redis failures degrade to a plain
// provider fetch rather than failing the computation.
func (p *CachedProvider) Fetch(ctx context.Context, date time.Time, universe []string, fields []string) (*Snapshot, error) {
	snap := NewSnapshot(date)
	var missing []string

	for _, field := range fields {
		payload, err := p.rdb.Get(ctx, cacheKey(date, field)).Bytes()
		if err != nil {
			if err != redis.Nil {
				log.Warn().Err(err).Str("field", field).Msg("market data cache read failed")
			}
			missing = append(missing, field)
			continue
		}

		var values map[string]float64
		if err := json.Unmarshal(payload, &values); err != nil {
			log.Warn().Err(err).Str("field", field).Msg("market data cache entry corrupt")
			missing = append(missing, field)
			continue
		}

		inUniverse := make(map[string]bool, len(universe))
		for _, inst := range universe {
			inUniverse[inst] = true
		}
		for inst, v := range values {
			if inUniverse[inst] {
				snap.Set(field, inst, v)
			}
		}
	}

	if len(missing) == 0 {
		return snap, nil
	}

	fetched, err := p.inner.Fetch(ctx, date, universe, missing)
	if err != nil {
		return nil, err
	}

	for _, field := range missing {
		values := fetched.Fields[field]
		for inst, v := range values {
			snap.Set(field, inst, v)
		}
		if len(values) == 0 {
			continue
		}
		payload, err := json.Marshal(values)
		if err != nil {
			continue
		}
		if err := p.rdb.Set(ctx, cacheKey(date, field), payload, p.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("field", field).Msg("market data cache write failed")
		}
	}
	return snap, nil
}
