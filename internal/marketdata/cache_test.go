package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cacheDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// countingProvider records fetches and serves canned field values.
type countingProvider struct {
	fields  map[string]map[string]float64
	fetches int
}

func (p *countingProvider) Fetch(_ context.Context, date time.Time, universe []string, fields []string) (*Snapshot, error) {
	p.fetches++
	snap := NewSnapshot(date)
	inUniverse := make(map[string]bool, len(universe))
	for _, inst := range universe {
		inUniverse[inst] = true
	}
	for _, field := range fields {
		for inst, v := range p.fields[field] {
			if inUniverse[inst] {
				snap.Set(field, inst, v)
			}
		}
	}
	return snap, nil
}

func TestCachedProvider_MissFetchesAndCaches(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &countingProvider{fields: map[string]map[string]float64{
		FieldMarketCap: {"600000.XSHG": 1000},
	}}
	p := NewCachedProvider(inner, rdb, time.Hour)

	key := "md:2025-06-02:market_cap"
	payload, err := json.Marshal(map[string]float64{"600000.XSHG": 1000})
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Hour).SetVal("OK")

	snap, err := p.Fetch(context.Background(), cacheDate, []string{"600000.XSHG"}, []string{FieldMarketCap})
	require.NoError(t, err)

	v, ok := snap.Value(FieldMarketCap, "600000.XSHG")
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)
	assert.Equal(t, 1, inner.fetches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedProvider_HitSkipsInnerFetch(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &countingProvider{}
	p := NewCachedProvider(inner, rdb, time.Hour)

	payload, err := json.Marshal(map[string]float64{"600000.XSHG": 1000, "999999.XSHG": 5})
	require.NoError(t, err)
	mock.ExpectGet("md:2025-06-02:market_cap").SetVal(string(payload))

	snap, err := p.Fetch(context.Background(), cacheDate, []string{"600000.XSHG"}, []string{FieldMarketCap})
	require.NoError(t, err)

	assert.Equal(t, 0, inner.fetches, "a full cache hit must not touch the provider")
	v, ok := snap.Value(FieldMarketCap, "600000.XSHG")
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)

	// Cached instruments outside the requested universe are filtered out.
	_, ok = snap.Value(FieldMarketCap, "999999.XSHG")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedProvider_KeysAreDateScoped(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &countingProvider{fields: map[string]map[string]float64{
		FieldROE: {"A": 0.15},
	}}
	p := NewCachedProvider(inner, rdb, time.Hour)

	payload, _ := json.Marshal(map[string]float64{"A": 0.15})

	// Two dates for the same field resolve to distinct keys, so one date's
	// cross-section can never serve another's.
	mock.ExpectGet("md:2025-06-02:roe").RedisNil()
	mock.ExpectSet("md:2025-06-02:roe", payload, time.Hour).SetVal("OK")
	mock.ExpectGet("md:2025-06-03:roe").RedisNil()
	mock.ExpectSet("md:2025-06-03:roe", payload, time.Hour).SetVal("OK")

	_, err := p.Fetch(context.Background(), cacheDate, []string{"A"}, []string{FieldROE})
	require.NoError(t, err)
	_, err = p.Fetch(context.Background(), cacheDate.AddDate(0, 0, 1), []string{"A"}, []string{FieldROE})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.fetches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedProvider_RedisFailureDegradesToProvider(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &countingProvider{fields: map[string]map[string]float64{
		FieldMarketCap: {"A": 7},
	}}
	p := NewCachedProvider(inner, rdb, time.Hour)

	mock.ExpectGet("md:2025-06-02:market_cap").SetErr(errors.New("connection refused"))
	payload, _ := json.Marshal(map[string]float64{"A": 7.0})
	mock.ExpectSet("md:2025-06-02:market_cap", payload, time.Hour).SetErr(errors.New("connection refused"))

	snap, err := p.Fetch(context.Background(), cacheDate, []string{"A"}, []string{FieldMarketCap})
	require.NoError(t, err, "cache unavailability must never fail the fetch")

	v, ok := snap.Value(FieldMarketCap, "A")
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, 1, inner.fetches)
}

func TestCachedProvider_CorruptEntryRefetched(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := &countingProvider{fields: map[string]map[string]float64{
		FieldMarketCap: {"A": 7},
	}}
	p := NewCachedProvider(inner, rdb, time.Hour)

	mock.ExpectGet("md:2025-06-02:market_cap").SetVal("{not json")
	payload, _ := json.Marshal(map[string]float64{"A": 7.0})
	mock.ExpectSet("md:2025-06-02:market_cap", payload, time.Hour).SetVal("OK")

	snap, err := p.Fetch(context.Background(), cacheDate, []string{"A"}, []string{FieldMarketCap})
	require.NoError(t, err)

	_, ok := snap.Value(FieldMarketCap, "A")
	assert.True(t, ok)
	assert.Equal(t, 1, inner.fetches)
	assert.NoError(t, mock.ExpectationsWereMet())
}
