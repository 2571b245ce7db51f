package storage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/cfc"
	"github.com/ashton-dyke/sairen-os/internal/storage"
)

func openTestDB(t *testing.T, retention int) *storage.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(path, retention)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_InitializesSchemaVersion(t *testing.T) {
	db := openTestDB(t, 0)
	require.NotNil(t, db)
}

func TestPutGetBaseline_RoundTrips(t *testing.T) {
	db := openTestDB(t, 0)
	rec := storage.BaselineRecord{
		Equipment: "pump-1", Metric: "spp", Count: 500,
		Locked: true, LockedMean: 3200, LockedStd: 45,
	}
	require.NoError(t, db.PutBaseline(rec))

	got, err := db.GetBaseline("pump-1", "spp")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec.LockedMean, got.LockedMean)
	require.True(t, got.Locked)
}

func TestGetBaseline_MissingReturnsNilNil(t *testing.T) {
	db := openTestDB(t, 0)
	got, err := db.GetBaseline("no-such", "metric")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAllBaselines_ReturnsEveryRecord(t *testing.T) {
	db := openTestDB(t, 0)
	require.NoError(t, db.PutBaseline(storage.BaselineRecord{Equipment: "pump-1", Metric: "spp"}))
	require.NoError(t, db.PutBaseline(storage.BaselineRecord{Equipment: "top-drive", Metric: "torque"}))

	all, err := db.AllBaselines()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestPutCheckpoint_PrunesBeyondRetention(t *testing.T) {
	db := openTestDB(t, 2)
	dual := cfc.NewDual(1)

	base := time.Now()
	for i := 0; i < 5; i++ {
		ck := dual.Snapshot("rig-a", "well-1", base.Add(time.Duration(i)*time.Second).Unix())
		require.NoError(t, db.PutCheckpoint("rig-a", base.Add(time.Duration(i)*time.Second), ck))
	}

	latest, err := db.LatestCheckpoint("rig-a")
	require.NoError(t, err)
	require.NotNil(t, latest)
}

func TestLatestCheckpoint_MissingRigReturnsNilNil(t *testing.T) {
	db := openTestDB(t, 0)
	got, err := db.LatestCheckpoint("no-such-rig")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAppendReadAdvisories_RoundTrips(t *testing.T) {
	db := openTestDB(t, 0)
	require.NoError(t, db.AppendAdvisory(storage.AdvisoryRecord{
		Category: "WellControl", Severity: "Critical", EfficiencyScore: 42,
	}))

	recs, err := db.ReadAdvisories()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "WellControl", recs[0].Category)
}

func TestBackup_CreatesRestorableFile(t *testing.T) {
	db := openTestDB(t, 0)
	require.NoError(t, db.PutBaseline(storage.BaselineRecord{Equipment: "pump-1", Metric: "spp"}))

	backupPath := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, db.Backup(backupPath))

	restored, err := storage.Open(backupPath, 0)
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.GetBaseline("pump-1", "spp")
	require.NoError(t, err)
	require.NotNil(t, got)
}
