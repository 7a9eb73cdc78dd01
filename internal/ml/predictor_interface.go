// Package ml provides the ensemble inference pipeline of the device identification service.
// It covers loading serialized classifiers from disk, the reference-data feature scaler,
// the class registry, probability aggregation across the model pool and the prediction
// service that ties them together.
//
// Every model variant the service can load is adapted to ClassProbabilityProvider, including
// the legacy single-booster deployments that predate the ensemble directory format.
package ml

// ClassProbabilityProvider is the capability every loadable classifier must expose.
// Implementations must be safe for concurrent use once constructed.
type ClassProbabilityProvider interface {
	// Probabilities returns one score per class for an already scaled feature vector.
	// The width is the model's native class count and may differ from the registry.
	Probabilities(features []float64) ([]float64, error)
}

// Model is a named pool member.
type Model struct {
	Name     string
	Kind     string
	Classes  int
	Provider ClassProbabilityProvider
}
