package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Provider supplies raw field values for a date and universe. Implementations
// live outside the scoring core (JQData-style clients, warehouse exports);
// the core only depends on this contract.
type Provider interface {
	// Fetch returns a snapshot covering the requested fields for the
	// universe. Instruments with no data for a field are simply absent
	// from that field's map.
	Fetch(ctx context.Context, date time.Time, universe []string, fields []string) (*Snapshot, error)
}

// FileProvider reads snapshots from local JSON exports, one file per trade
// date named YYYY-MM-DD.json under Dir. It is the offline collaborator used
// by the CLI and by batch recomputation.
type FileProvider struct {
	Dir string
}

// NewFileProvider creates a provider over a directory of snapshot exports.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// Fetch loads the snapshot file for the date and filters it down to the
// requested universe and fields.
func (p *FileProvider) Fetch(ctx context.Context, date time.Time, universe []string, fields []string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/%s.json", p.Dir, date.Format("2006-01-02"))
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var raw Snapshot
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	inUniverse := make(map[string]bool, len(universe))
	for _, inst := range universe {
		inUniverse[inst] = true
	}

	snap := NewSnapshot(date)
	for _, field := range fields {
		for inst, v := range raw.Fields[field] {
			if inUniverse[inst] {
				snap.Set(field, inst, v)
			}
		}
	}
	return snap, nil
}
