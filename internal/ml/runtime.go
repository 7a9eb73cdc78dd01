package ml

import (
	"fmt"
	"time"
)

// ReferenceData supplies the feature order and the rows the scaler is fit on.
type ReferenceData interface {
	FeatureNames() []string
	Rows() [][]float64
}

// LoadConfig names everything Load reads from disk.
type LoadConfig struct {
	ModelDir        string
	LegacyModelPath string
	Reference       ReferenceData
}

// Runtime is the read-only state shared by every prediction: feature order, fitted
// scaler, class registry and model pool. It is never modified after Load; a reload builds
// a new Runtime.
type Runtime struct {
	features []string
	scaler   *Scaler
	registry *Registry
	pool     *Pool
	report   *LoadReport
	loadedAt time.Time
}

// NewRuntime assembles a runtime from parts. The scaler must match the feature count.
func NewRuntime(features []string, scaler *Scaler, registry *Registry, pool *Pool, report *LoadReport) (*Runtime, error) {
	if scaler == nil || registry == nil || pool == nil {
		return nil, fmt.Errorf("%w: incomplete runtime", ErrLoadFailure)
	}
	if scaler.Dim() != len(features) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, feature list has %d",
			ErrLoadFailure, scaler.Dim(), len(features))
	}
	if pool.Len() == 0 {
		return nil, ErrNoModelsFound
	}
	if report == nil {
		report = &LoadReport{}
	}
	return &Runtime{
		features: append([]string(nil), features...),
		scaler:   scaler,
		registry: registry,
		pool:     pool,
		report:   report,
		loadedAt: time.Now(),
	}, nil
}

// Load fits the scaler on the reference data, resolves the class registry and loads the
// model pool. Any error wraps ErrLoadFailure and the service must not start serving.
func Load(cfg LoadConfig) (*Runtime, error) {
	if cfg.Reference == nil {
		return nil, fmt.Errorf("%w: no reference dataset", ErrLoadFailure)
	}
	features := cfg.Reference.FeatureNames()
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: reference dataset has no feature columns", ErrLoadFailure)
	}

	scaler, err := FitScaler(cfg.Reference.Rows())
	if err != nil {
		return nil, fmt.Errorf("%w: fit scaler: %v", ErrLoadFailure, err)
	}

	registry := ResolveRegistry(cfg.ModelDir)

	pool, report, err := LoadPool(cfg.ModelDir, cfg.LegacyModelPath)
	if err != nil {
		return nil, err
	}
	if w := registry.Warning(); w != "" {
		report.Warnings = append(report.Warnings, w)
	}

	return NewRuntime(features, scaler, registry, pool, report)
}

// FeatureNames returns the ordered feature columns.
func (r *Runtime) FeatureNames() []string {
	return append([]string(nil), r.features...)
}

// NumFeatures is the fitted dimensionality.
func (r *Runtime) NumFeatures() int {
	return len(r.features)
}

// Scaler returns the fitted scaler.
func (r *Runtime) Scaler() *Scaler {
	return r.scaler
}

// Registry returns the class registry.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// Pool returns the model pool.
func (r *Runtime) Pool() *Pool {
	return r.pool
}

// Report describes the load that produced this runtime.
func (r *Runtime) Report() *LoadReport {
	return r.report
}

// LoadedAt is when the runtime was assembled.
func (r *Runtime) LoadedAt() time.Time {
	return r.loadedAt
}
