package normalizer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/normalizer"
)

func TestNormalizeAndUpdate_BelowMinSamples(t *testing.T) {
	n := normalizer.New(2)
	out := n.NormalizeAndUpdate([]float64{1, 2})
	require.Equal(t, []float64{0, 0}, out)
}

func TestNormalizeAndUpdate_ConvergesToZScore(t *testing.T) {
	n := normalizer.New(1)
	samples := []float64{10, 12, 8, 14, 6}
	var last []float64
	for _, s := range samples {
		last = n.NormalizeAndUpdate([]float64{s})
	}
	require.Len(t, last, 1)
	require.False(t, math.IsNaN(last[0]))
	// After 10,12,8,14,6: mean 10, population std sqrt(8), so (6-10)/sqrt(8).
	require.InDelta(t, -math.Sqrt2, last[0], 1e-9)
}

func TestNormalize_NonMutating(t *testing.T) {
	n := normalizer.New(1)
	for _, s := range []float64{1, 2, 3, 4} {
		n.NormalizeAndUpdate([]float64{s})
	}
	before := n.Count
	n.Normalize([]float64{5})
	require.Equal(t, before, n.Count)
}
