package marketdata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ValueAndHasField(t *testing.T) {
	snap := NewSnapshot(cacheDate)
	snap.Set(FieldROE, "A", 0.18)

	v, ok := snap.Value(FieldROE, "A")
	require.True(t, ok)
	assert.Equal(t, 0.18, v)

	_, ok = snap.Value(FieldROE, "B")
	assert.False(t, ok)
	_, ok = snap.Value(FieldMarketCap, "A")
	assert.False(t, ok)

	assert.True(t, snap.HasField(FieldROE))
	assert.False(t, snap.HasField(FieldMarketCap))
}

func TestSnapshot_InstrumentsSorted(t *testing.T) {
	snap := NewSnapshot(cacheDate)
	snap.Set(FieldROE, "C", 1)
	snap.Set(FieldROE, "A", 2)
	snap.Set(FieldROE, "B", 3)

	assert.Equal(t, []string{"A", "B", "C"}, snap.Instruments(FieldROE))
}

func TestFileProvider_FetchFiltersUniverseAndFields(t *testing.T) {
	dir := t.TempDir()
	doc := Snapshot{
		Date: cacheDate,
		Fields: map[string]map[string]float64{
			FieldMarketCap: {"A": 100, "B": 200, "C": 300},
			FieldROE:       {"A": 0.1, "B": 0.2},
		},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-06-02.json"), b, 0o644))

	snap, err := NewFileProvider(dir).Fetch(context.Background(), cacheDate, []string{"A", "B"}, []string{FieldMarketCap})
	require.NoError(t, err)

	_, ok := snap.Value(FieldMarketCap, "C")
	assert.False(t, ok, "instruments outside the universe are dropped")
	assert.False(t, snap.HasField(FieldROE), "unrequested fields are dropped")

	v, ok := snap.Value(FieldMarketCap, "B")
	require.True(t, ok)
	assert.Equal(t, 200.0, v)
}

func TestFileProvider_MissingDate(t *testing.T) {
	_, err := NewFileProvider(t.TempDir()).Fetch(context.Background(), cacheDate, []string{"A"}, []string{FieldROE})
	assert.Error(t, err)
}

func TestFileProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileProvider(t.TempDir()).Fetch(ctx, cacheDate, []string{"A"}, []string{FieldROE})
	assert.ErrorIs(t, err, context.Canceled)
}
