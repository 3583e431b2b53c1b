package factor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRQuant/TRQuantExt/internal/marketdata"
)

var testDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func snapshotWith(fields map[string]map[string]float64) *marketdata.Snapshot {
	snap := marketdata.NewSnapshot(testDate)
	for field, values := range fields {
		for inst, v := range values {
			snap.Set(field, inst, v)
		}
	}
	return snap
}

func TestEPFactor_Compute(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"600000.XSHG": 50, "000001.XSHE": 20},
		marketdata.FieldMarketCap:    {"600000.XSHG": 1000, "000001.XSHE": 400},
	})

	res, err := NewEPFactor().Compute(context.Background(), testDate, []string{"600000.XSHG", "000001.XSHE"}, snap)
	require.NoError(t, err)

	require.NotNil(t, res.Values["600000.XSHG"])
	assert.InDelta(t, 0.05, *res.Values["600000.XSHG"], 1e-12)
	require.NotNil(t, res.Values["000001.XSHE"])
	assert.InDelta(t, 0.05, *res.Values["000001.XSHE"], 1e-12)
}

func TestFactor_EmptyUniverse(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 1},
		marketdata.FieldMarketCap:    {"A": 1},
	})

	_, err := NewEPFactor().Compute(context.Background(), testDate, nil, snap)
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

func TestFactor_DeclaredFieldEntirelyAbsent(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 1},
	})

	_, err := NewEPFactor().Compute(context.Background(), testDate, []string{"A"}, snap)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestFactor_PerInstrumentGapIsNullNotZero(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 10},
		marketdata.FieldMarketCap:    {"A": 100, "B": 200},
	})

	res, err := NewEPFactor().Compute(context.Background(), testDate, []string{"A", "B"}, snap)
	require.NoError(t, err)

	require.NotNil(t, res.Values["A"])
	assert.Nil(t, res.Values["B"], "missing profit must yield null, not a defaulted zero")
}

func TestFactor_InstrumentOutsideUniverseExcluded(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 10, "C": 99},
		marketdata.FieldMarketCap:    {"A": 100, "C": 99},
	})

	res, err := NewEPFactor().Compute(context.Background(), testDate, []string{"A", "B"}, snap)
	require.NoError(t, err)

	_, present := res.Values["C"]
	assert.False(t, present, "instrument absent from universe must never appear in the result")
	assert.Len(t, res.Values, 2)
}

func TestFactor_Deterministic(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldReturn60D: {"A": 0.10, "B": -0.02, "C": 0.31},
	})
	f := NewPriceMomentumFactor()
	universe := []string{"A", "B", "C"}

	first, err := f.Compute(context.Background(), testDate, universe, snap)
	require.NoError(t, err)
	second, err := f.Compute(context.Background(), testDate, universe, snap)
	require.NoError(t, err)

	for inst, v := range first.Values {
		require.NotNil(t, second.Values[inst])
		assert.Equal(t, *v, *second.Values[inst])
	}
}

func TestGrowthRate_NegativeBase(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM:     {"A": 10},
		marketdata.FieldNetProfitTTMPrev: {"A": -20},
	})

	res, err := NewProfitGrowthFactor().Compute(context.Background(), testDate, []string{"A"}, snap)
	require.NoError(t, err)

	// Loss of 20 to profit of 10: improvement of 150% against |base|.
	require.NotNil(t, res.Values["A"])
	assert.InDelta(t, 1.5, *res.Values["A"], 1e-12)
}

func TestComposite_WeightsOverNormalizedOutputs(t *testing.T) {
	// ep dominates on A, bp dominates on B; with ep weighted heavily the
	// composite must rank A above B despite bp's larger raw magnitudes.
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 90, "B": 10, "C": 50},
		marketdata.FieldTotalEquity:  {"A": 100, "B": 900, "C": 500},
		marketdata.FieldMarketCap:    {"A": 1000, "B": 1000, "C": 1000},
	})

	ep := NewEPFactor()
	bp := NewBPFactor()
	comp, err := NewComposite("value_mix", CategoryValue, []Factor{ep, bp}, []float64{0.9, 0.1}, NormRankPercentile)
	require.NoError(t, err)

	res, err := comp.Compute(context.Background(), testDate, []string{"A", "B", "C"}, snap)
	require.NoError(t, err)

	require.NotNil(t, res.Values["A"])
	require.NotNil(t, res.Values["B"])
	assert.Greater(t, *res.Values["A"], *res.Values["B"])
}

func TestComposite_PartialDataReweights(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 50, "B": 10},
		marketdata.FieldTotalEquity:  {"A": 100}, // B has no equity data
		marketdata.FieldMarketCap:    {"A": 1000, "B": 1000},
	})

	comp, err := NewComposite("value_mix", CategoryValue,
		[]Factor{NewEPFactor(), NewBPFactor()}, []float64{0.5, 0.5}, NormRankPercentile)
	require.NoError(t, err)

	res, err := comp.Compute(context.Background(), testDate, []string{"A", "B"}, snap)
	require.NoError(t, err)

	// B still gets a score from the ep component alone.
	require.NotNil(t, res.Values["B"])
}

func TestComposite_NoDataYieldsNull(t *testing.T) {
	snap := snapshotWith(map[string]map[string]float64{
		marketdata.FieldNetProfitTTM: {"A": 50},
		marketdata.FieldTotalEquity:  {"A": 100},
		marketdata.FieldMarketCap:    {"A": 1000},
	})

	comp, err := NewComposite("value_mix", CategoryValue,
		[]Factor{NewEPFactor(), NewBPFactor()}, []float64{0.5, 0.5}, NormRankPercentile)
	require.NoError(t, err)

	res, err := comp.Compute(context.Background(), testDate, []string{"A", "B"}, snap)
	require.NoError(t, err)
	assert.Nil(t, res.Values["B"])
}
