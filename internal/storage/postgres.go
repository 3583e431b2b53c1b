package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/TRQuant/TRQuantExt/internal/factor"
)

// Schema is the factor history table, applied on demand by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS factor_values (
	trade_date  DATE             NOT NULL,
	factor_name TEXT             NOT NULL,
	instrument  TEXT             NOT NULL,
	value       DOUBLE PRECISION,
	updated_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (trade_date, factor_name, instrument)
);
CREATE INDEX IF NOT EXISTS idx_factor_values_name_date
	ON factor_values (factor_name, trade_date);
`

// PostgresStore is the primary document-store backend, backed by a single
// upsert-keyed table.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open sqlx handle.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

// OpenPostgres connects and verifies reachability.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, timeout), nil
}

// EnsureSchema creates the factor history table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save upserts the result's records in one transaction. Concurrent writers
// to the same key resolve via last-write-wins on the upsert.
func (s *PostgresStore) Save(ctx context.Context, res *factor.Result) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO factor_values (trade_date, factor_name, instrument, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (trade_date, factor_name, instrument) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for inst, value := range res.Values {
		if _, err := stmt.ExecContext(ctx, res.Date, res.FactorName, inst, value); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", res.FactorName, inst, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns date-ordered results for a factor, optionally filtered to a
// universe.
func (s *PostgresStore) Load(ctx context.Context, factorName string, from, to time.Time, universe []string) ([]*factor.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT trade_date, factor_name, instrument, value, updated_at
		FROM factor_values
		WHERE factor_name = $1 AND trade_date BETWEEN $2 AND $3`
	args := []interface{}{factorName, from, to}
	if len(universe) > 0 {
		query += ` AND instrument = ANY($4)`
		args = append(args, pq.Array(universe))
	}
	query += ` ORDER BY trade_date, instrument`

	var records []Record
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrUnavailable, factorName, err)
	}
	return resultFromRecords(factorName, records), nil
}

// Ping tests connectivity within the store timeout.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
