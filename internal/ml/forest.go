package ml

import (
	"encoding/json"
	"fmt"

	randomforest "github.com/malaschitz/randomForest"
)

// ForestModel scores with a pre-trained random forest. Vote averages the per-tree leaf
// distributions, which is the class probability vector.
type ForestModel struct {
	forest *randomforest.Forest
}

// NewForestModel wraps an already trained forest.
func NewForestModel(f *randomforest.Forest) (*ForestModel, error) {
	if f == nil {
		return nil, fmt.Errorf("forest is nil")
	}
	if f.Classes <= 0 {
		return nil, fmt.Errorf("forest has %d classes", f.Classes)
	}
	if f.NTrees <= 0 || len(f.Trees) < f.NTrees {
		return nil, fmt.Errorf("forest declares %d trees but holds %d", f.NTrees, len(f.Trees))
	}
	// Training data is never needed for scoring.
	f.Data = randomforest.ForestData{}
	return &ForestModel{forest: f}, nil
}

// DecodeForest reads a JSON-encoded forest.
func DecodeForest(data []byte) (*ForestModel, error) {
	var f randomforest.Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse forest: %w", err)
	}
	return NewForestModel(&f)
}

// Classes is the forest's native class count.
func (m *ForestModel) Classes() int {
	return m.forest.Classes
}

// Features is the attribute count the forest was trained on.
func (m *ForestModel) Features() int {
	return m.forest.Features
}

// Probabilities implements ClassProbabilityProvider.
func (m *ForestModel) Probabilities(features []float64) ([]float64, error) {
	if m.forest.Features > 0 && len(features) < m.forest.Features {
		return nil, fmt.Errorf("forest expects %d features, got %d", m.forest.Features, len(features))
	}
	return m.forest.Vote(features), nil
}
