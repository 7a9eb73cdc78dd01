package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces the ml, api and watch packages
// depend on, so none of them import prometheus.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLPredictedClassInc(category string) {
	w.m.MLPredictedClass.WithLabelValues(category).Inc()
}

func (w *MetricsWrapper) MLCacheHitsInc() {
	w.m.CacheHits.Inc()
}

func (w *MetricsWrapper) MLCacheMissesInc() {
	w.m.CacheMisses.Inc()
}

func (w *MetricsWrapper) MLModelsLoadedSet(v float64) {
	w.m.ModelsLoaded.Set(v)
}

func (w *MetricsWrapper) MLArtifactsSkippedAdd(v float64) {
	w.m.ArtifactsSkipped.Add(v)
}

func (w *MetricsWrapper) MLFallbackUseInc() {
	w.m.MLFallbackUse.Inc()
}

func (w *MetricsWrapper) ReloadsInc() {
	w.m.Reloads.Inc()
}

func (w *MetricsWrapper) ReloadFailuresInc() {
	w.m.ReloadFailures.Inc()
}

func (w *MetricsWrapper) HTTPRequestInc(route string, code int) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (w *MetricsWrapper) ChatMessagesInc() {
	w.m.ChatMessages.Inc()
}
