package baseline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/baseline"
)

func TestCheckAnomaly_ErrorsBeforeLock(t *testing.T) {
	m := baseline.NewManager(10)
	m.AddSample("pump-1", "spp", 100, time.Now())
	_, err := m.CheckAnomaly("pump-1", "spp", 100)
	require.Error(t, err)
}

func TestCheckAnomaly_LocksAfterWindowAndClassifies(t *testing.T) {
	m := baseline.NewManager(10)
	now := time.Now()
	for i := 0; i < 10; i++ {
		m.AddSample("pump-1", "spp", 3000, now)
	}
	a, err := m.CheckAnomaly("pump-1", "spp", 3000)
	require.NoError(t, err)
	require.Equal(t, baseline.Normal, a)
}

func TestCheckAnomaly_FlagsCriticalFarOutliers(t *testing.T) {
	m := baseline.NewManager(20)
	now := time.Now()
	vals := []float64{100, 101, 99, 100, 102, 98, 100, 101, 99, 100, 101, 99, 100, 102, 98, 100, 101, 99, 100, 101}
	for _, v := range vals {
		m.AddSample("rig-a", "torque", v, now)
	}
	a, err := m.CheckAnomaly("rig-a", "torque", 500)
	require.NoError(t, err)
	require.Equal(t, baseline.Critical, a)
}

func TestLockBaseline_RequiresMinimumSamples(t *testing.T) {
	m := baseline.NewManager(100)
	err := m.LockBaseline("rig-a", "wob", time.Now())
	require.Error(t, err)

	m.AddSample("rig-a", "wob", 10, time.Now())
	m.AddSample("rig-a", "wob", 12, time.Now())
	require.NoError(t, m.LockBaseline("rig-a", "wob", time.Now()))
}

func TestDowngrade_ReopensAccumulationWindow(t *testing.T) {
	m := baseline.NewManager(5)
	now := time.Now()
	for i := 0; i < 5; i++ {
		m.AddSample("rig-a", "rpm", 120, now)
	}
	_, err := m.CheckAnomaly("rig-a", "rpm", 120)
	require.NoError(t, err)

	m.Downgrade("rig-a", "rpm")
	_, err = m.CheckAnomaly("rig-a", "rpm", 120)
	require.Error(t, err)
}

func TestSnapshotRestore_RoundTrips(t *testing.T) {
	m := baseline.NewManager(5)
	now := time.Now()
	for i := 0; i < 5; i++ {
		m.AddSample("rig-a", "ecd", 12.5, now)
	}
	snap := m.Snapshot()
	require.Len(t, snap, 1)

	restored := baseline.NewManager(5)
	restored.Restore(snap)
	a, err := restored.CheckAnomaly("rig-a", "ecd", 12.5)
	require.NoError(t, err)
	require.Equal(t, baseline.Normal, a)
}
