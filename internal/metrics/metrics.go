// Package metrics provides Prometheus metrics collection for the device identification
// service. It defines the prediction, model loading, cache and HTTP metrics exposed via
// the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	MLPredictions      prometheus.Counter     // Total number of successful predictions
	MLFailures         prometheus.Counter     // Total number of failed predictions
	MLLatency          prometheus.Histogram   // Prediction latency in seconds
	MLPredictionScores prometheus.Histogram   // Confidence of the winning class
	MLPredictedClass   *prometheus.CounterVec // Predictions per device category
	MLFallbackUse      prometheus.Counter     // Predictions served by the legacy booster

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Model loading metrics
	ModelsLoaded     prometheus.Gauge   // Models in the active pool
	ArtifactsSkipped prometheus.Counter // Artifacts rejected during loads
	Reloads          prometheus.Counter // Successful runtime reloads
	ReloadFailures   prometheus.Counter // Reloads that kept the previous runtime

	// API metrics
	HTTPRequests *prometheus.CounterVec // Requests by route and status code
	ChatMessages prometheus.Counter     // Assistant messages answered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of device predictions made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of failed device predictions",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Prediction latency in seconds (scaling, scoring and aggregation)",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of winning class confidence",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLPredictedClass: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predicted_class_total",
			Help: "Predictions per device category",
		}, []string{"category"}),
		MLFallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_fallback_use_total",
			Help: "Total number of predictions served by the legacy booster",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_cache_hits_total",
			Help: "Predictions answered from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_cache_misses_total",
			Help: "Predictions that had to be computed",
		}),
		ModelsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "models_loaded",
			Help: "Number of models in the active pool",
		}),
		ArtifactsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_artifacts_skipped_total",
			Help: "Model artifacts rejected while loading",
		}),
		Reloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_reloads_total",
			Help: "Successful model reloads",
		}),
		ReloadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_reload_failures_total",
			Help: "Model reloads that failed and kept the previous models",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		ChatMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Assistant messages answered",
		}),
	}
}
