package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRQuant/TRQuantExt/internal/marketdata"
)

func TestPresetWeights(t *testing.T) {
	short := PresetWeights("short")
	assert.Greater(t, short["composite_momentum"], short["composite_value"])
	assert.Greater(t, short["composite_flow"], short["composite_growth"])

	long := PresetWeights("long")
	assert.Greater(t, long["composite_value"], long["composite_momentum"])

	medium := PresetWeights("medium")
	for name, w := range medium {
		assert.Equal(t, 1.0, w, "medium preset is balanced, got %s=%v", name, w)
	}

	assert.Equal(t, PresetWeights("medium"), PresetWeights("fortnight"))
}

func TestApplyWeights(t *testing.T) {
	m := New(Config{})
	require.NoError(t, m.Register(&stubFactor{
		name:   "composite_momentum",
		values: map[string]float64{"A": 1, "B": 2},
	}))
	m.ForceEnable("composite_momentum", true)

	// Unregistered preset entries are skipped, registered ones applied.
	require.NoError(t, m.ApplyWeights(PresetWeights("short")))

	res, err := m.ComputeAll(context.Background(), testDate, []string{"A", "B"}, marketdata.NewSnapshot(testDate), true)
	require.NoError(t, err)
	assert.Contains(t, res.Scores, "A")
}

func TestApplyWeights_RejectsNegative(t *testing.T) {
	m := New(Config{})
	require.NoError(t, m.Register(&stubFactor{name: "f"}))

	err := m.ApplyWeights(map[string]float64{"f": -1})
	assert.Error(t, err)
}
