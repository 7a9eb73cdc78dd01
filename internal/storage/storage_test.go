package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"iot-device-id/internal/common"
	"iot-device-id/internal/ml"
)

type fixedProvider []float64

func (p fixedProvider) Probabilities([]float64) ([]float64, error) { return p, nil }

func testRuntime(t *testing.T) *ml.Runtime {
	t.Helper()
	report := &ml.LoadReport{
		Strategy: common.StrategyEnsemble,
		ModelDir: "models",
		Loaded:   []ml.ArtifactStatus{{File: "a.json", Kind: common.KindRandomForest, Classes: 2}},
		Skipped:  []ml.ArtifactStatus{{File: "b.json", Reason: "parse artifact envelope"}},
	}
	scaler, err := ml.FitScaler([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}
	rt, err := ml.NewRuntime([]string{"x", "y"}, scaler, ml.NewRegistry([]string{"TV", "watch"}, "default"),
		ml.NewPool(ml.Model{Name: "a", Provider: fixedProvider{1, 0}}), report)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	// Check if database file was created
	dbPath := filepath.Join(tempDir, common.CatalogFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_CreatesDataDirectory(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "nested", "data")

	store, err := New(dataPath)
	if err != nil {
		t.Fatalf("Failed to create store in nested path: %v", err)
	}
	defer store.Close()
}

func TestNew_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(filepath.Join(file, "sub")); err == nil {
		t.Error("Expected error for path under a regular file, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}

	// Test closing already closed store
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestNewLoadRecord(t *testing.T) {
	rt := testRuntime(t)
	rec := NewLoadRecord("startup", rt)

	if rec.Trigger != "startup" || rec.Strategy != common.StrategyEnsemble {
		t.Errorf("Unexpected trigger/strategy %s/%s", rec.Trigger, rec.Strategy)
	}
	if rec.Features != 2 || rec.Classes != 2 {
		t.Errorf("Expected 2 features and 2 classes, got %d/%d", rec.Features, rec.Classes)
	}
	if rec.LabelSource != "default" {
		t.Errorf("Expected default label source, got %s", rec.LabelSource)
	}
	if !rec.Timestamp.Equal(rt.LoadedAt()) {
		t.Error("Expected record timestamp to match runtime load time")
	}
}

func TestRecordLoad_ListNewestFirst(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id, err := store.RecordLoad(LoadRecord{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Trigger:   "reload",
			Strategy:  common.StrategyEnsemble,
		})
		if err != nil {
			t.Fatalf("RecordLoad: %v", err)
		}
		if id != uint64(i+1) {
			t.Errorf("Expected id %d, got %d", i+1, id)
		}
	}

	records, err := store.ListLoads(2)
	if err != nil {
		t.Fatalf("ListLoads: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != 3 || records[1].ID != 2 {
		t.Errorf("Expected newest first, got ids %d, %d", records[0].ID, records[1].ID)
	}

	all, err := store.ListLoads(0)
	if err != nil {
		t.Fatalf("ListLoads: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 records, got %d", len(all))
	}
}

func TestRecordLoad_TracksArtifactStates(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	first, err := store.RecordLoad(NewLoadRecord("startup", testRuntime(t)))
	if err != nil {
		t.Fatalf("RecordLoad: %v", err)
	}

	// b.json is fixed and loads on the next reload.
	second, err := store.RecordLoad(LoadRecord{
		Trigger: "reload",
		Loaded:  []ml.ArtifactStatus{{File: "b.json", Kind: common.KindSoftmaxLinear, Classes: 9}},
	})
	if err != nil {
		t.Fatalf("RecordLoad: %v", err)
	}

	states, err := store.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("Expected 2 artifact states, got %d", len(states))
	}
	if states[0].File != "a.json" || states[0].Status != StatusLoaded || states[0].LoadID != first {
		t.Errorf("Unexpected state for a.json: %+v", states[0])
	}
	if states[1].File != "b.json" || states[1].Status != StatusLoaded || states[1].LoadID != second {
		t.Errorf("Unexpected state for b.json: %+v", states[1])
	}

	rec, found, err := store.GetLoad(first)
	if err != nil || !found {
		t.Fatalf("GetLoad(%d): found=%v err=%v", first, found, err)
	}
	if len(rec.Skipped) != 1 || rec.Skipped[0].File != "b.json" {
		t.Errorf("Expected skipped b.json in first record, got %+v", rec.Skipped)
	}

	if _, found, _ := store.GetLoad(99); found {
		t.Error("Expected missing record for unknown id")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := store.RecordLoad(LoadRecord{Trigger: "startup"}); err != nil {
		t.Fatalf("RecordLoad: %v", err)
	}
	store.Close()

	store, err = New(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()

	records, err := store.ListLoads(10)
	if err != nil {
		t.Fatalf("ListLoads: %v", err)
	}
	if len(records) != 1 || records[0].Trigger != "startup" {
		t.Errorf("Expected persisted startup record, got %+v", records)
	}
	if records[0].Timestamp.IsZero() {
		t.Error("Expected zero timestamp to be filled in")
	}
}
