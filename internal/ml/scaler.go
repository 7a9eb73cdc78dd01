package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler is a fitted standardization transform: (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column mean and population standard deviation over rows.
// NaN and infinite values are left out of their column's statistics. Columns with zero
// variance get a scale of 1 so they are only centred; a column with no finite values is
// neither centred nor scaled.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty dataset")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("cannot fit scaler on zero-width rows")
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d: %w", i, dimensionError(width, len(row)))
		}
	}

	s := &Scaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}
	column := make([]float64, 0, len(rows))
	for j := 0; j < width; j++ {
		column = column[:0]
		for _, row := range rows {
			if v := row[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				column = append(column, v)
			}
		}
		if len(column) == 0 {
			s.Scale[j] = 1
			continue
		}
		mean, variance := stat.PopMeanVariance(column, nil)
		s.Mean[j] = mean
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
			std = 1
		}
		s.Scale[j] = std
	}
	return s, nil
}

// Dim is the fitted feature count.
func (s *Scaler) Dim() int {
	return len(s.Mean)
}

// Transform standardizes vec into a new slice.
func (s *Scaler) Transform(vec []float64) ([]float64, error) {
	if len(vec) != len(s.Mean) {
		return nil, dimensionError(len(s.Mean), len(vec))
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}
