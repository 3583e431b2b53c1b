// Package storage provides the durable, queryable history of computed
// factor results. Records are keyed by (date, factor, instrument) and writes
// are idempotent upserts, so recomputing a date never duplicates rows.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/TRQuant/TRQuantExt/internal/factor"
)

// ErrUnavailable marks a backend that cannot currently serve requests; the
// tiered store treats it as a signal to degrade to the fallback.
var ErrUnavailable = errors.New("storage backend unavailable")

// Record is the persisted representation of one factor value. Value is nil
// when the factor had insufficient inputs for the instrument on that date;
// the gap is stored, never zero-filled.
type Record struct {
	Date       time.Time `json:"date" db:"trade_date"`
	FactorName string    `json:"factor_name" db:"factor_name"`
	Instrument string    `json:"instrument" db:"instrument"`
	Value      *float64  `json:"value" db:"value"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Store is the read/write contract shared by both backends.
type Store interface {
	// Save upserts every (date, factor, instrument) record of the result.
	// Re-saving identical results is a no-op in effect.
	Save(ctx context.Context, res *factor.Result) error
	// Load returns results for a factor within [from, to], ordered by
	// date. A non-empty universe filters instruments. Missing dates are
	// simply absent.
	Load(ctx context.Context, factorName string, from, to time.Time, universe []string) ([]*factor.Result, error)
	// Ping reports backend reachability.
	Ping(ctx context.Context) error
	Close() error
}

// resultFromRecords folds date-ordered records into per-date results.
func resultFromRecords(factorName string, records []Record) []*factor.Result {
	var out []*factor.Result
	var cur *factor.Result
	for _, rec := range records {
		if cur == nil || !cur.Date.Equal(rec.Date) {
			cur = factor.NewResult(factorName, rec.Date)
			cur.ComputedAt = rec.UpdatedAt
			out = append(out, cur)
		}
		cur.Values[rec.Instrument] = rec.Value
		if rec.UpdatedAt.After(cur.ComputedAt) {
			cur.ComputedAt = rec.UpdatedAt
		}
	}
	return out
}

// filterUniverse restricts a result to the requested instruments.
func filterUniverse(res *factor.Result, universe []string) *factor.Result {
	if len(universe) == 0 {
		return res
	}
	filtered := factor.NewResult(res.FactorName, res.Date)
	filtered.ComputedAt = res.ComputedAt
	for _, inst := range universe {
		if v, ok := res.Values[inst]; ok {
			filtered.Values[inst] = v
		}
	}
	return filtered
}
