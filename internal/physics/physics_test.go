package physics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/physics"
)

func TestTrend_PerfectLineHasR2One(t *testing.T) {
	y := []float64{1, 2, 3, 4, 5}
	slope, r2 := physics.Trend(y)
	require.InDelta(t, 1.0, slope, 1e-9)
	require.InDelta(t, 1.0, r2, 1e-9)
}

func TestTrend_FlatLineHasZeroSlope(t *testing.T) {
	y := []float64{5, 5, 5, 5}
	slope, _ := physics.Trend(y)
	require.InDelta(t, 0, slope, 1e-9)
}

func TestFounderDetect_RisingWOBFlatROP(t *testing.T) {
	var hist []physics.Sample
	for i := 0; i < 10; i++ {
		hist = append(hist, physics.Sample{WOB: float64(20 + i), ROP: 50, Torque: 10})
	}
	detected, severity, optimal := physics.FounderDetect(hist)
	require.True(t, detected)
	require.Greater(t, severity, 0.0)
	require.Equal(t, 20.0, optimal)
}

func TestFounderDetect_InsufficientHistory(t *testing.T) {
	detected, _, _ := physics.FounderDetect([]physics.Sample{{WOB: 20, ROP: 50}})
	require.False(t, detected)
}

func TestMSEEfficiency_ClampedToHundred(t *testing.T) {
	eff := physics.MSEEfficiency(1, 0)
	require.Equal(t, 100.0, eff)
}

func TestDetectDysfunctions_FlagsKickFromFlowAndPitRate(t *testing.T) {
	out := physics.DetectDysfunctions(nil, 25, 10)
	require.Contains(t, out, physics.Kick)
}
