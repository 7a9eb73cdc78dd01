package ml

import (
	"errors"
	"fmt"
)

// Load and inference failures. Callers should match with errors.Is.
var (
	// ErrLoadFailure covers every fatal startup problem: missing model directory with no
	// legacy fallback, zero usable models, unreadable reference dataset.
	ErrLoadFailure = errors.New("load failure")

	// ErrNoModelsFound is returned when neither the model directory nor the legacy
	// booster produced a usable classifier. It wraps ErrLoadFailure.
	ErrNoModelsFound = fmt.Errorf("%w: no usable models found", ErrLoadFailure)

	// ErrDimensionMismatch is a per-request error for vectors of the wrong length.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidFeature is returned by the strict input policy for unparseable values.
	ErrInvalidFeature = errors.New("invalid feature value")

	// ErrPredictionFailed hides any unexpected scaling or scoring failure.
	ErrPredictionFailed = errors.New("prediction failed")
)

func dimensionError(expected, got int) error {
	return fmt.Errorf("%w: expected %d features, got %d", ErrDimensionMismatch, expected, got)
}
