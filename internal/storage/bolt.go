// Package storage — bolt.go
//
// BoltDB-backed persistent storage for SAIREN-OS.
//
// Schema (BoltDB bucket layout):
//
//	/checkpoints
//	    key:   rig_id + "_" + RFC3339Nano timestamp  [sortable, newest-last]
//	    value: JSON-encoded cfc.DualCheckpoint
//
//	/baselines
//	    key:   equipment + "/" + metric
//	    value: JSON-encoded BaselineRecord
//
//	/advisories
//	    key:   RFC3339Nano timestamp + "_" + category  [monotonic, sortable]
//	    value: JSON-encoded ticket.StrategicAdvisory
//
//	/meta
//	    key:   "schema_version"
//	    value: "1"
//
// Consistency model:
//   - Single-process, single-writer (BoltDB does not support concurrent writers).
//   - All writes use ACID transactions (bbolt Tx.Commit()); bbolt's own
//     write-ahead-then-commit page swap means a crash mid-write never
//     leaves a checkpoint record straddling two generations.
//   - Reads use read-only transactions (bbolt.View()).
//   - CRC32 integrity check on database open (bbolt built-in).
//
// Retention:
//   - Checkpoints beyond CheckpointRetention (per rig) are pruned after each
//     successful write.
//   - Advisory history is never automatically pruned (operator action
//     required).
//
// Failure modes:
//   - BoltDB file corruption: bbolt detects via CRC and returns an error
//     on Open(). The agent logs a fatal event and refuses to start.
//     Recovery: restore from the most recent checkpoint backup.
//   - Disk full: bbolt.Update() returns an error. The agent logs the error
//     and continues without persisting (in-memory state preserved).
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ashton-dyke/sairen-os/internal/cfc"
)

const (
	// DefaultDBPath is the default BoltDB file location.
	DefaultDBPath = "/var/lib/sairen/sairen.db"

	// SchemaVersion is the current database schema version.
	SchemaVersion = "1"

	// DefaultCheckpointRetention is the default number of checkpoint
	// generations kept per rig.
	DefaultCheckpointRetention = 5

	bucketCheckpoints = "checkpoints"
	bucketBaselines   = "baselines"
	bucketAdvisories  = "advisories"
	bucketMeta        = "meta"
)

// BaselineRecord is the persisted form of a Welford baseline for one
// (equipment, metric) pair. Stored as JSON in the baselines bucket.
// Field names mirror baseline.Record so callers can copy the fields across
// directly.
type BaselineRecord struct {
	Equipment string  `json:"equipment"`
	Metric    string  `json:"metric"`
	Count     int64   `json:"count"`
	Mean      float64 `json:"mean"`
	M2        float64 `json:"m2"`

	Locked       bool      `json:"locked"`
	LockedMean   float64   `json:"locked_mean"`
	LockedStd    float64   `json:"locked_std"`
	LockedAt     time.Time `json:"locked_at"`
	PostLockMean float64   `json:"post_lock_mean"`
	PostLockM2   float64   `json:"post_lock_m2"`
	PostLockN    int64     `json:"post_lock_n"`
}

// AdvisoryRecord is the persisted form of an emitted StrategicAdvisory.
// Stored as JSON in the advisories bucket. Kept as a standalone storage
// type (rather than aliasing ticket.StrategicAdvisory) so a future wire
// format change there doesn't silently break old stored records.
type AdvisoryRecord struct {
	Timestamp       time.Time          `json:"timestamp"`
	Category        string             `json:"category"`
	Severity        string             `json:"severity"`
	RiskLevel       string             `json:"risk_level"`
	EfficiencyScore int                `json:"efficiency_score"`
	Recommendation  string             `json:"recommendation"`
	ExpectedBenefit string             `json:"expected_benefit"`
	Reasoning       string             `json:"reasoning"`
	ContextUsed     map[string]float64 `json:"context_used"`
}

// DB wraps a BoltDB instance with typed accessors for SAIREN-OS data.
type DB struct {
	db                  *bolt.DB
	path                string
	checkpointRetention int
}

// Open opens (or creates) the BoltDB database at the given path.
// Initialises all required buckets and verifies the schema version.
// Returns an error if the database is corrupt or schema is incompatible.
func Open(path string, checkpointRetention int) (*DB, error) {
	if checkpointRetention <= 0 {
		checkpointRetention = DefaultCheckpointRetention
	}

	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:      5 * time.Second,
		FreelistType: bolt.FreelistArrayType,
	})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}

	d := &DB{db: bdb, path: path, checkpointRetention: checkpointRetention}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketCheckpoints, bucketBaselines, bucketAdvisories, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("CreateBucketIfNotExists(%q): %w", name, err)
			}
		}

		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(SchemaVersion)); err != nil {
				return fmt.Errorf("write schema_version: %w", err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("database initialisation failed: %w", err)
	}

	if err := d.checkSchemaVersion(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return d, nil
}

// checkSchemaVersion reads and validates the stored schema version.
func (d *DB) checkSchemaVersion() error {
	return d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		v := meta.Get([]byte("schema_version"))
		if string(v) != SchemaVersion {
			return fmt.Errorf(
				"schema version mismatch: database has %q, agent requires %q. "+
					"Run migration or restore from backup.",
				string(v), SchemaVersion,
			)
		}
		return nil
	})
}

// Close closes the underlying BoltDB file.
func (d *DB) Close() error {
	return d.db.Close()
}

// ─── Checkpoint operations ─────────────────────────────────────────────────

// checkpointKey constructs a sortable key: rigID + "_" + RFC3339Nano.
// Lexicographic sort = chronological sort within a rig's checkpoints.
func checkpointKey(rigID string, timestamp time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%s", rigID, timestamp.UTC().Format(time.RFC3339Nano)))
}

// PutCheckpoint atomically persists a dual-network checkpoint and prunes
// older generations for the same rig beyond CheckpointRetention.
//
// Atomicity is two-layered: the bbolt write itself is an ACID transaction,
// and the file on disk is never partially written because bbolt's mmap'd
// page writes plus its own fsync'd meta-page swap already give
// write-ahead-then-commit semantics — there is no separate temp-file
// rename step here, unlike a bare os.WriteFile checkpoint dump.
func (d *DB) PutCheckpoint(rigID string, ts time.Time, ck *cfc.DualCheckpoint) error {
	data, err := json.Marshal(ck)
	if err != nil {
		return fmt.Errorf("PutCheckpoint marshal: %w", err)
	}
	key := checkpointKey(rigID, ts)

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCheckpoints))
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("PutCheckpoint bolt.Put: %w", err)
		}
		return pruneCheckpoints(b, rigID, d.checkpointRetention)
	})
}

// pruneCheckpoints deletes all but the newest `retain` checkpoints whose
// key is prefixed by rigID+"_". Must run inside the same write
// transaction as the triggering Put so pruning never races a concurrent
// reader onto a half-pruned bucket.
func pruneCheckpoints(b *bolt.Bucket, rigID string, retain int) error {
	prefix := []byte(rigID + "_")
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		keyCopy := make([]byte, len(k))
		copy(keyCopy, k)
		keys = append(keys, keyCopy)
	}
	if len(keys) <= retain {
		return nil
	}
	for _, k := range keys[:len(keys)-retain] {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("pruneCheckpoints delete: %w", err)
		}
	}
	return nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// LatestCheckpoint returns the most recently written checkpoint for rigID,
// or (nil, nil) if none exists.
func (d *DB) LatestCheckpoint(rigID string) (*cfc.DualCheckpoint, error) {
	prefix := []byte(rigID + "_")
	var data []byte

	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCheckpoints))
		c := b.Cursor()
		var lastKey, lastVal []byte
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			lastKey, lastVal = k, v
		}
		if lastKey == nil {
			return nil
		}
		data = append([]byte(nil), lastVal...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LatestCheckpoint(%q): %w", rigID, err)
	}
	if data == nil {
		return nil, nil
	}

	var ck cfc.DualCheckpoint
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("LatestCheckpoint(%q) unmarshal: %w", rigID, err)
	}
	return &ck, nil
}

// ─── Baseline operations ───────────────────────────────────────────────────

func baselineKey(equipment, metric string) []byte {
	return []byte(equipment + "/" + metric)
}

// PutBaseline writes or updates a baseline record.
func (d *DB) PutBaseline(rec BaselineRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("PutBaseline marshal: %w", err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBaselines))
		if err := b.Put(baselineKey(rec.Equipment, rec.Metric), data); err != nil {
			return fmt.Errorf("PutBaseline bolt.Put: %w", err)
		}
		return nil
	})
}

// GetBaseline retrieves the baseline record for (equipment, metric).
// Returns (nil, nil) if no baseline exists.
func (d *DB) GetBaseline(equipment, metric string) (*BaselineRecord, error) {
	key := baselineKey(equipment, metric)
	var rec BaselineRecord
	found := false

	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBaselines))
		data := b.Get(key)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("GetBaseline(%s/%s): %w", equipment, metric, err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// AllBaselines returns every persisted baseline record, for restoring a
// baseline.Manager snapshot on startup.
func (d *DB) AllBaselines() ([]BaselineRecord, error) {
	var recs []BaselineRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBaselines))
		return b.ForEach(func(_, v []byte) error {
			var rec BaselineRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

// ─── Advisory operations ───────────────────────────────────────────────────

func advisoryKey(t time.Time, category string) []byte {
	return []byte(fmt.Sprintf("%s_%s", t.UTC().Format(time.RFC3339Nano), category))
}

// AppendAdvisory records an emitted StrategicAdvisory in the audit ledger.
func (d *DB) AppendAdvisory(rec AdvisoryRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("AppendAdvisory marshal: %w", err)
	}
	key := advisoryKey(rec.Timestamp, rec.Category)

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAdvisories))
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("AppendAdvisory bolt.Put: %w", err)
		}
		return nil
	})
}

// ReadAdvisories returns all advisory records in chronological order.
// For operational use (CLI inspection). Not called on the hot path.
func (d *DB) ReadAdvisories() ([]AdvisoryRecord, error) {
	var recs []AdvisoryRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAdvisories))
		return b.ForEach(func(_, v []byte) error {
			var rec AdvisoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

// ─── Backup ─────────────────────────────────────────────────────────────────

// Backup writes an atomic hot-copy of the database to destPath, via a
// temp-file-then-rename so a crash mid-copy never leaves a partial backup
// visible under destPath.
func (d *DB) Backup(destPath string) error {
	tmp := destPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("Backup create temp: %w", err)
	}

	err = d.db.View(func(tx *bolt.Tx) error {
		_, werr := tx.WriteTo(f)
		return werr
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("Backup write: %w", err)
	}

	if err := os.Rename(tmp, destPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("Backup rename %q -> %q: %w", tmp, destPath, err)
	}
	return nil
}

// defaultBackupPath returns the default backup location:
// <db-dir>/<db-name>.bak.
func defaultBackupPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".bak")
}
