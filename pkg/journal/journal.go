package journal

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/schuecal/avdroll/pkg/types"
)

var bucketRuns = []byte("runs")

// Journal is a bbolt-backed append-only record of completed pipeline runs.
// It is informational only: the pipeline never reads past records and
// every run starts from the top regardless of what is stored here.
type Journal struct {
	db *bolt.DB
}

// Open opens (or creates) the journal database under dataDir.
func Open(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "avdroll.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record persists one finished run. Keys are run IDs; re-recording the
// same run overwrites it.
func (j *Journal) Record(record *types.RunRecord) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

// Get retrieves a run record by ID.
func (j *Journal) Get(id string) (*types.RunRecord, error) {
	var record types.RunRecord
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns all recorded runs, newest first.
func (j *Journal) List() ([]*types.RunRecord, error) {
	var records []*types.RunRecord
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		return b.ForEach(func(k, v []byte) error {
			var record types.RunRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, k int) bool {
		return records[i].StartedAt.After(records[k].StartedAt)
	})
	return records, nil
}
