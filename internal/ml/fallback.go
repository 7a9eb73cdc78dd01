package ml

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"iot-device-id/internal/common"
)

// BoosterAdapter exposes a Booster as a ClassProbabilityProvider. The booster's native
// output is treated as already probability-shaped and normalized by the aggregator together
// with the rest of the pool. Raw-margin objectives can score below zero; those entries are
// clamped to 0 so every distribution stays non-negative.
type BoosterAdapter struct {
	booster *Booster
	calls   atomic.Int64
}

// NewBoosterAdapter wraps b.
func NewBoosterAdapter(b *Booster) *BoosterAdapter {
	return &BoosterAdapter{booster: b}
}

// Probabilities implements ClassProbabilityProvider.
func (a *BoosterAdapter) Probabilities(features []float64) ([]float64, error) {
	a.calls.Add(1)
	p, err := a.booster.Predict(features)
	if err != nil {
		return nil, err
	}
	for i, v := range p {
		if v < 0 {
			p[i] = 0
		}
	}
	return p, nil
}

// Calls reports how many times the adapter scored a vector.
func (a *BoosterAdapter) Calls() int64 {
	return a.calls.Load()
}

// Booster returns the wrapped booster.
func (a *BoosterAdapter) Booster() *Booster {
	return a.booster
}

// LoadLegacyBooster reads a bare XGBoost JSON model, the format used by deployments that
// predate the ensemble directory, and wraps it as a single pool member.
func LoadLegacyBooster(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy booster: %w", err)
	}
	b, err := DecodeBooster(data)
	if err != nil {
		return nil, fmt.Errorf("legacy booster %s: %w", path, err)
	}
	return &Model{
		Name:     filepath.Base(path),
		Kind:     common.KindXGBoost,
		Classes:  b.Classes(),
		Provider: NewBoosterAdapter(b),
	}, nil
}
