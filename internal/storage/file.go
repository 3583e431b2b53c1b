package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/TRQuant/TRQuantExt/internal/factor"
)

// FileStore is the flat-file snapshot backend: one JSON document per
// (factor, date) under dir/<factor>/<date>.json. It carries the same logical
// schema as the primary store and serves as its fallback during outages.
type FileStore struct {
	dir string
}

// NewFileStore creates the backend rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

type fileDoc struct {
	Date       time.Time           `json:"date"`
	FactorName string              `json:"factor_name"`
	Values     map[string]*float64 `json:"values"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (s *FileStore) path(factorName string, date time.Time) string {
	return filepath.Join(s.dir, factorName, date.Format("2006-01-02")+".json")
}

// Save writes the result's snapshot document atomically (temp file + rename)
// so a concurrent reader never observes a partial record. Rewriting the same
// result overwrites the document with identical content.
func (s *FileStore) Save(ctx context.Context, res *factor.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := fileDoc{
		Date:       res.Date,
		FactorName: res.FactorName,
		Values:     res.Values,
		UpdatedAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", res.FactorName, err)
	}

	path := s.path(res.FactorName, res.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load scans the factor's directory for documents in [from, to], ordered by
// date, optionally filtered to a universe.
func (s *FileStore) Load(ctx context.Context, factorName string, from, to time.Time, universe []string) ([]*factor.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, factorName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read dir: %v", ErrUnavailable, err)
	}

	var dates []time.Time
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		date, err := time.Parse("2006-01-02", name[:len(name)-len(".json")])
		if err != nil {
			continue
		}
		if date.Before(from) || date.After(to) {
			continue
		}
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var out []*factor.Result
	for _, date := range dates {
		b, err := os.ReadFile(s.path(factorName, date))
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		var doc fileDoc
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", date.Format("2006-01-02"), err)
		}
		res := factor.NewResult(factorName, doc.Date)
		res.Values = doc.Values
		res.ComputedAt = doc.UpdatedAt
		out = append(out, filterUniverse(res, universe))
	}
	return out, nil
}

// Ping verifies the root directory is usable.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
