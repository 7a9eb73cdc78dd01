// Package storage keeps a persistent catalog of model loads in BoltDB. Every successful
// startup or reload records which artifacts were loaded or skipped and why, so the
// history survives restarts and can be listed by the API.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"iot-device-id/internal/common"
	"iot-device-id/internal/ml"

	"go.etcd.io/bbolt"
)

const (
	loadsBucket     = "loads"     // Load records keyed by sequence number
	artifactsBucket = "artifacts" // Latest status per artifact file
)

// Artifact statuses
const (
	StatusLoaded  = "loaded"
	StatusSkipped = "skipped"
)

// LoadRecord is one persisted runtime load.
type LoadRecord struct {
	ID          uint64              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	Trigger     string              `json:"trigger"`
	Strategy    string              `json:"strategy"`
	ModelDir    string              `json:"model_dir"`
	Features    int                 `json:"features"`
	Classes     int                 `json:"classes"`
	LabelSource string              `json:"label_source"`
	Loaded      []ml.ArtifactStatus `json:"loaded"`
	Skipped     []ml.ArtifactStatus `json:"skipped"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// ArtifactState is the last known status of one artifact file.
type ArtifactState struct {
	File     string    `json:"file"`
	Kind     string    `json:"kind,omitempty"`
	Classes  int       `json:"classes,omitempty"`
	Status   string    `json:"status"`
	Reason   string    `json:"reason,omitempty"`
	LastSeen time.Time `json:"last_seen"`
	LoadID   uint64    `json:"load_id"`
}

// Store provides persistent storage for the load catalog using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens or creates the catalog under dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, common.CatalogFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(loadsBucket)); err != nil {
			return fmt.Errorf("create loads bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(artifactsBucket)); err != nil {
			return fmt.Errorf("create artifacts bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewLoadRecord describes rt as a record ready to be stored.
func NewLoadRecord(trigger string, rt *ml.Runtime) LoadRecord {
	report := rt.Report()
	return LoadRecord{
		Timestamp:   rt.LoadedAt(),
		Trigger:     trigger,
		Strategy:    report.Strategy,
		ModelDir:    report.ModelDir,
		Features:    rt.NumFeatures(),
		Classes:     rt.Registry().Len(),
		LabelSource: rt.Registry().Source(),
		Loaded:      report.Loaded,
		Skipped:     report.Skipped,
		Warnings:    report.Warnings,
	}
}

// RecordLoad appends rec to the catalog and refreshes the per-artifact states in the same
// transaction. It returns the assigned id.
func (s *Store) RecordLoad(rec LoadRecord) (uint64, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		loads := tx.Bucket([]byte(loadsBucket))
		id, err := loads.NextSequence()
		if err != nil {
			return fmt.Errorf("next load id: %w", err)
		}
		rec.ID = id

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal load record: %w", err)
		}
		if err := loads.Put(itob(id), data); err != nil {
			return err
		}

		artifacts := tx.Bucket([]byte(artifactsBucket))
		put := func(a ml.ArtifactStatus, status string) error {
			data, err := json.Marshal(ArtifactState{
				File:     a.File,
				Kind:     a.Kind,
				Classes:  a.Classes,
				Status:   status,
				Reason:   a.Reason,
				LastSeen: rec.Timestamp,
				LoadID:   id,
			})
			if err != nil {
				return fmt.Errorf("marshal artifact state: %w", err)
			}
			return artifacts.Put([]byte(a.File), data)
		}
		for _, a := range rec.Loaded {
			if err := put(a, StatusLoaded); err != nil {
				return err
			}
		}
		for _, a := range rec.Skipped {
			if err := put(a, StatusSkipped); err != nil {
				return err
			}
		}
		return nil
	})
	return rec.ID, err
}

// ListLoads returns up to limit records, newest first. A limit of zero or less returns all.
func (s *Store) ListLoads(limit int) ([]LoadRecord, error) {
	var records []LoadRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(loadsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec LoadRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// GetLoad returns the record with id.
func (s *Store) GetLoad(id uint64) (LoadRecord, bool, error) {
	var (
		rec   LoadRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(loadsBucket)).Get(itob(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	return rec, found, err
}

// Artifacts returns the last known state of every artifact ever seen, ordered by file.
func (s *Store) Artifacts() ([]ArtifactState, error) {
	var states []ArtifactState

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(artifactsBucket)).ForEach(func(_, v []byte) error {
			var st ArtifactState
			if err := json.Unmarshal(v, &st); err != nil {
				return nil
			}
			states = append(states, st)
			return nil
		})
	})
	sort.Slice(states, func(i, j int) bool { return states[i].File < states[j].File })

	return states, err
}

// itob encodes ids big-endian so cursor order is numeric order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
