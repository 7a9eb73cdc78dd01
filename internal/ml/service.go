package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"iot-device-id/internal/common"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MetricsInterface defines metrics methods needed by the prediction service
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLPredictedClassInc(string)
	MLCacheHitsInc()
	MLCacheMissesInc()
	MLModelsLoadedSet(float64)
	MLArtifactsSkippedAdd(float64)
	MLFallbackUseInc()
}

// ServiceConfig contains configuration for the prediction service
type ServiceConfig struct {
	InputPolicy     string
	ParallelScoring bool
	CacheSize       int
	CacheTTL        time.Duration
}

// LabelScore is one entry of a ranked distribution. It encodes as a [label, probability]
// pair.
type LabelScore struct {
	Label       string
	Probability float64
}

func (l LabelScore) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.Label, l.Probability})
}

func (l *LabelScore) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("label score pair has %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &l.Label); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &l.Probability)
}

// PredictionResult is the outcome of one successful prediction. Results may be shared
// through the cache and must be treated as read-only.
type PredictionResult struct {
	Label        string             `json:"predicted_class"`
	Index        int                `json:"-"`
	Distribution []float64          `json:"-"`
	Confidence   map[string]float64 `json:"confidence_scores"`
	Ranked       []LabelScore       `json:"sorted_confidence"`
}

// Top returns at most n ranked entries.
func (r *PredictionResult) Top(n int) []LabelScore {
	if n < 0 {
		n = 0
	}
	if n > len(r.Ranked) {
		n = len(r.Ranked)
	}
	return r.Ranked[:n]
}

// Service runs predictions against the current Runtime.
type Service struct {
	rt      atomic.Pointer[Runtime]
	config  ServiceConfig
	cache   *PredictionCache
	metrics MetricsInterface
}

// NewService creates the prediction service. metrics may be nil.
func NewService(rt *Runtime, config ServiceConfig, metrics MetricsInterface) *Service {
	if config.InputPolicy == "" {
		config.InputPolicy = common.InputPolicyTolerant
	}
	s := &Service{
		config:  config,
		cache:   NewPredictionCache(config.CacheSize, config.CacheTTL),
		metrics: metrics,
	}
	s.rt.Store(rt)
	s.publishLoad(rt)
	return s
}

// Runtime returns the runtime currently serving requests.
func (s *Service) Runtime() *Runtime {
	return s.rt.Load()
}

// Swap replaces the runtime. In-flight predictions finish on the runtime they started with.
func (s *Service) Swap(rt *Runtime) {
	if rt == nil {
		return
	}
	s.rt.Store(rt)
	s.cache.Purge()
	s.publishLoad(rt)
	log.Info().
		Int("models", rt.Pool().Len()).
		Int("classes", rt.Registry().Len()).
		Msg("prediction runtime swapped")
}

// InputPolicy reports the configured policy for named inputs.
func (s *Service) InputPolicy() string {
	return s.config.InputPolicy
}

func (s *Service) publishLoad(rt *Runtime) {
	if s.metrics == nil || rt == nil {
		return
	}
	s.metrics.MLModelsLoadedSet(float64(rt.Pool().Len()))
	if n := len(rt.Report().Skipped); n > 0 {
		s.metrics.MLArtifactsSkippedAdd(float64(n))
	}
}

// Vector orders values by the runtime's feature names according to the input policy.
// Keys that are not features are ignored.
func (s *Service) Vector(values map[string]string) ([]float64, error) {
	rt := s.rt.Load()
	strict := s.config.InputPolicy == common.InputPolicyStrict
	features := rt.features

	vec := make([]float64, len(features))
	for i, name := range features {
		raw, ok := values[name]
		if !ok {
			if strict {
				return nil, fmt.Errorf("%w: missing feature %q", ErrDimensionMismatch, name)
			}
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			if strict {
				return nil, fmt.Errorf("%w: %q=%q", ErrInvalidFeature, name, raw)
			}
			continue
		}
		vec[i] = v
	}
	return vec, nil
}

// PredictNamed builds the feature vector from a name to value mapping and predicts.
func (s *Service) PredictNamed(ctx context.Context, values map[string]string) (*PredictionResult, error) {
	vec, err := s.Vector(values)
	if err != nil {
		return nil, err
	}
	return s.Predict(ctx, vec)
}

// Predict scales vec, scores it with every model in the pool and aggregates the result.
// A wrong-length vector yields ErrDimensionMismatch; every other failure is reported as
// ErrPredictionFailed.
func (s *Service) Predict(ctx context.Context, vec []float64) (*PredictionResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	rt := s.rt.Load()
	if len(vec) != rt.NumFeatures() {
		return nil, dimensionError(rt.NumFeatures(), len(vec))
	}

	key := vectorKey(vec)
	if cached, ok := s.cache.get(key); ok {
		if s.metrics != nil {
			s.metrics.MLCacheHitsInc()
		}
		return cached, nil
	}
	if s.cache != nil && s.metrics != nil {
		s.metrics.MLCacheMissesInc()
	}

	result, err := s.predict(ctx, rt, vec)
	if err != nil {
		log.Error().Err(err).Int("models", rt.Pool().Len()).Msg("prediction failed")
		if s.metrics != nil {
			s.metrics.MLFailuresInc()
		}
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}

	// A result scored on a runtime that was swapped out meanwhile must not outlive the purge.
	if s.rt.Load() == rt {
		s.cache.put(key, result)
	}
	if s.metrics != nil {
		s.metrics.MLPredictionsInc()
		s.metrics.MLPredictedClassInc(result.Label)
		s.metrics.MLPredictionScoresObserve(result.Confidence[result.Label])
		if rt.Report().Strategy == common.StrategyLegacy {
			s.metrics.MLFallbackUseInc()
		}
	}
	return result, nil
}

func (s *Service) predict(ctx context.Context, rt *Runtime, vec []float64) (*PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaled, err := rt.scaler.Transform(vec)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}

	dists, err := s.score(ctx, rt.pool, scaled)
	if err != nil {
		return nil, err
	}

	classes := rt.registry.Len()
	dist, idx := Aggregate(dists, classes)
	if idx < 0 {
		return nil, fmt.Errorf("registry has no classes")
	}
	for i, p := range dist {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("non-finite probability at class %d", i)
		}
	}
	return buildResult(rt.registry, dist, idx), nil
}

func (s *Service) score(ctx context.Context, pool *Pool, scaled []float64) ([][]float64, error) {
	dists := make([][]float64, len(pool.models))

	if !s.config.ParallelScoring || len(pool.models) < 2 {
		for i, m := range pool.models {
			p, err := scoreModel(m, scaled)
			if err != nil {
				return nil, err
			}
			dists[i] = p
		}
		return dists, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range pool.models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := scoreModel(m, scaled)
			if err != nil {
				return err
			}
			dists[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dists, nil
}

// scoreModel isolates a misbehaving provider so a panic fails only this request.
func scoreModel(m Model, scaled []float64) (p []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model %s panicked: %v", m.Name, r)
		}
	}()
	// Providers get their own copy; none of them may alter the shared scaled vector.
	p, err = m.Provider.Probabilities(append([]float64(nil), scaled...))
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	return p, nil
}

func buildResult(reg *Registry, dist []float64, idx int) *PredictionResult {
	label, _ := reg.Label(idx)
	confidence := make(map[string]float64, len(dist))
	ranked := make([]LabelScore, len(dist))
	for i, p := range dist {
		l, _ := reg.Label(i)
		confidence[l] = p
		ranked[i] = LabelScore{Label: l, Probability: p}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	return &PredictionResult{
		Label:        label,
		Index:        idx,
		Distribution: dist,
		Confidence:   confidence,
		Ranked:       ranked,
	}
}
