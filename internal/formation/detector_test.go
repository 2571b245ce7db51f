package formation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/formation"
)

func surprisingSigmas() []float64 {
	return []float64{2.5, 0.1, 2.1, 0.3, 3.0, 0.0, 0.2, 0.1}
}

func TestObserve_DoesNotFireBeforePersistenceThreshold(t *testing.T) {
	d := formation.New()
	for i := 0; i < 4; i++ {
		_, ok := d.Observe(surprisingSigmas(), int64(i), 1000, int64(i), false)
		require.False(t, ok)
	}
}

func TestObserve_FiresAtFifthConsecutivePacket(t *testing.T) {
	d := formation.New()
	var fired bool
	var ev formation.Event
	for i := 0; i < 5; i++ {
		ev, fired = d.Observe(surprisingSigmas(), int64(i), 1000, int64(i), false)
	}
	require.True(t, fired)
	require.ElementsMatch(t, []int{0, 2, 4}, ev.SurprisedFeatures)
}

func TestObserve_BreakInStreakResetsCounter(t *testing.T) {
	d := formation.New()
	for i := 0; i < 4; i++ {
		d.Observe(surprisingSigmas(), int64(i), 1000, int64(i), false)
	}
	// A calm packet resets the streak.
	d.Observe([]float64{0, 0, 0, 0, 0, 0, 0, 0}, 10, 1000, 10, false)
	for i := 0; i < 4; i++ {
		_, ok := d.Observe(surprisingSigmas(), int64(20+i), 1000, int64(20+i), false)
		require.False(t, ok)
	}
}

func TestObserve_SuppressedWhileAdvisoryActive(t *testing.T) {
	d := formation.New()
	var fired bool
	for i := 0; i < 5; i++ {
		_, fired = d.Observe(surprisingSigmas(), int64(i), 1000, int64(i), true)
	}
	require.False(t, fired)
}
