package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/cluster"
)

func TestAssign_ReturnsZeroBeforeInitialization(t *testing.T) {
	c := cluster.New()
	require.Equal(t, 0, c.Assign([]float64{1, 2, 3}))
	require.False(t, c.Initialized())
}

func TestAssign_InitializesAfterFourDistinctPoints(t *testing.T) {
	c := cluster.New()
	points := [][]float64{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{10, 0, 0, 0, 0, 0, 0, 0},
		{0, 10, 0, 0, 0, 0, 0, 0},
		{0, 0, 10, 0, 0, 0, 0, 0},
	}
	for _, p := range points {
		c.Assign(p)
	}
	require.True(t, c.Initialized())
}

func TestAssign_DuplicatePointsDoNotCountAsDistinct(t *testing.T) {
	c := cluster.New()
	same := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	for i := 0; i < 10; i++ {
		c.Assign(same)
	}
	require.False(t, c.Initialized())
}

func TestAssign_NearestCentroidAfterInitialization(t *testing.T) {
	c := cluster.New()
	seeds := [][]float64{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{100, 0, 0, 0, 0, 0, 0, 0},
		{0, 100, 0, 0, 0, 0, 0, 0},
		{0, 0, 100, 0, 0, 0, 0, 0},
	}
	for _, p := range seeds {
		c.Assign(p)
	}
	idx := c.Assign([]float64{99, 1, 1, 0, 0, 0, 0, 0})
	require.Equal(t, 1, idx)
}
