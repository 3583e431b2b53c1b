package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpearman(t *testing.T) {
	t.Run("perfect positive", func(t *testing.T) {
		rho, ok := spearman([]float64{1, 2, 3, 4}, []float64{10, 20, 30, 40})
		require.True(t, ok)
		assert.InDelta(t, 1.0, rho, 1e-12)
	})

	t.Run("perfect negative", func(t *testing.T) {
		rho, ok := spearman([]float64{1, 2, 3, 4}, []float64{40, 30, 20, 10})
		require.True(t, ok)
		assert.InDelta(t, -1.0, rho, 1e-12)
	})

	t.Run("monotone transform invariant", func(t *testing.T) {
		x := []float64{1, 5, 2, 9, 4}
		y := []float64{2, 7, 3, 11, 6}
		a, ok := spearman(x, y)
		require.True(t, ok)

		// Cubing preserves order, so rank correlation is unchanged.
		cubed := make([]float64, len(y))
		for i, v := range y {
			cubed[i] = v * v * v
		}
		b, ok := spearman(x, cubed)
		require.True(t, ok)
		assert.InDelta(t, a, b, 1e-12)
	})

	t.Run("adjacent swap", func(t *testing.T) {
		// One adjacent rank swap in n=4: rho = 1 - 6*2/(4*15) = 0.8.
		rho, ok := spearman([]float64{1, 2, 3, 4}, []float64{10, 20, 40, 30})
		require.True(t, ok)
		assert.InDelta(t, 0.8, rho, 1e-12)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		_, ok := spearman([]float64{1}, []float64{1})
		assert.False(t, ok)

		_, ok = spearman([]float64{2, 2, 2}, []float64{1, 2, 3})
		assert.False(t, ok, "zero rank variance has no defined correlation")

		_, ok = spearman([]float64{1, 2}, []float64{1, 2, 3})
		assert.False(t, ok)
	})
}

func TestRanks_AverageTies(t *testing.T) {
	got := ranks([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, got)
}

func TestHorizonDays(t *testing.T) {
	assert.Equal(t, 5, HorizonDays("short"))
	assert.Equal(t, 20, HorizonDays("medium"))
	assert.Equal(t, 60, HorizonDays("long"))
	assert.Equal(t, 20, HorizonDays(""))
}

func TestStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := mean(values)
	assert.InDelta(t, 5.0, m, 1e-12)
	assert.InDelta(t, 2.138089935, stddev(values, m), 1e-6)

	assert.Zero(t, stddev([]float64{3}, 3))
}
