package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	randomforest "github.com/malaschitz/randomForest"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      int
	failures         int
	latencySum       float64
	latencyCount     int
	predictionScores []float64
	predictedClasses map[string]int
	cacheHits        int
	cacheMisses      int
	modelsLoaded     float64
	skipped          float64
	fallbackUse      int
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLPredictedClassInc(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictedClasses == nil {
		m.predictedClasses = make(map[string]int)
	}
	m.predictedClasses[label]++
}

func (m *MockMetrics) MLCacheHitsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *MockMetrics) MLCacheMissesInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

func (m *MockMetrics) MLModelsLoadedSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelsLoaded = v
}

func (m *MockMetrics) MLArtifactsSkippedAdd(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped += v
}

func (m *MockMetrics) MLFallbackUseInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUse++
}

// fixedProvider always returns the same distribution.
type fixedProvider []float64

func (p fixedProvider) Probabilities([]float64) ([]float64, error) {
	return append([]float64(nil), p...), nil
}

type panicProvider struct{}

func (panicProvider) Probabilities([]float64) ([]float64, error) {
	panic("corrupt model state")
}

// recordingProvider captures the vector it was asked to score.
type recordingProvider struct {
	mu   sync.Mutex
	seen [][]float64
	out  []float64
}

func (p *recordingProvider) Probabilities(x []float64) ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, append([]float64(nil), x...))
	return append([]float64(nil), p.out...), nil
}

// identityScaler leaves vectors unchanged.
func identityScaler(dim int) *Scaler {
	s := &Scaler{Mean: make([]float64, dim), Scale: make([]float64, dim)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

// newTestRuntime builds a runtime over n features with the given labels and providers.
func newTestRuntime(t *testing.T, features []string, labels []string, providers ...ClassProbabilityProvider) *Runtime {
	t.Helper()
	models := make([]Model, len(providers))
	for i, p := range providers {
		models[i] = Model{Name: "m" + string(rune('a'+i)), Kind: "test", Provider: p}
	}
	rt, err := NewRuntime(features, identityScaler(len(features)), NewRegistry(labels, "test"),
		NewPool(models...), &LoadReport{Strategy: "ensemble"})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

// leafForest builds a one-tree forest whose single leaf always votes dist.
func leafForest(features int, dist []float64) *randomforest.Forest {
	return &randomforest.Forest{
		Classes:  len(dist),
		NTrees:   1,
		Features: features,
		Trees: []randomforest.Tree{
			{Root: randomforest.Branch{IsLeaf: true, LeafValue: append([]float64(nil), dist...)}},
		},
	}
}

// writeArtifact writes an envelope into dir.
func writeArtifact(t *testing.T, dir, file, kind string, model any) {
	t.Helper()
	data, err := EncodeArtifact(kind, "", model)
	if err != nil {
		t.Fatalf("EncodeArtifact: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// blockingProvider signals started on every call and returns out once release is closed.
type blockingProvider struct {
	started chan struct{}
	release chan struct{}
	out     []float64
}

func newBlockingProvider(out ...float64) *blockingProvider {
	return &blockingProvider{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		out:     out,
	}
}

func (b *blockingProvider) Probabilities([]float64) ([]float64, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return append([]float64(nil), b.out...), nil
}
