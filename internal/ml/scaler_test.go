package ml

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler_PopulationStatistics(t *testing.T) {
	s, err := FitScaler([][]float64{{8, 1}, {12, 3}})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Dim())
	assert.InDelta(t, 10.0, s.Mean[0], 1e-12)
	assert.InDelta(t, 2.0, s.Scale[0], 1e-12)
	assert.InDelta(t, 2.0, s.Mean[1], 1e-12)
	assert.InDelta(t, 1.0, s.Scale[1], 1e-12)

	out, err := s.Transform([]float64{14, 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out[0], 1e-12)
	assert.InDelta(t, 0.0, out[1], 1e-12)
}

func TestFitScaler_ZeroVarianceColumnIsOnlyCentred(t *testing.T) {
	s, err := FitScaler([][]float64{{5, 1}, {5, 2}, {5, 3}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Scale[0])

	out, err := s.Transform([]float64{7, 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out[0])
	for _, v := range out {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestFitScaler_IgnoresNonFiniteValues(t *testing.T) {
	s, err := FitScaler([][]float64{
		{1, 2, math.NaN()},
		{math.NaN(), 4, math.Inf(1)},
		{3, 6, math.NaN()},
	})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, s.Mean[0], 1e-12)
	assert.InDelta(t, 1.0, s.Scale[0], 1e-12)
	assert.InDelta(t, 4.0, s.Mean[1], 1e-12)
	assert.Equal(t, 0.0, s.Mean[2])
	assert.Equal(t, 1.0, s.Scale[2])

	out, err := s.Transform([]float64{1, 2, 5})
	require.NoError(t, err)
	for i, v := range out {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "column %d", i)
	}
	assert.InDelta(t, -1.0, out[0], 1e-12)
	assert.Equal(t, 5.0, out[2])
}

func TestFitScaler_Errors(t *testing.T) {
	_, err := FitScaler(nil)
	assert.Error(t, err)

	_, err = FitScaler([][]float64{{}})
	assert.Error(t, err)

	_, err = FitScaler([][]float64{{1, 2}, {3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestScaler_TransformDimensionMismatch(t *testing.T) {
	s, err := FitScaler([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	for _, vec := range [][]float64{nil, {1, 2}, {1, 2, 3, 4}} {
		_, err := s.Transform(vec)
		assert.ErrorIs(t, err, ErrDimensionMismatch, "len %d", len(vec))
	}
}

func TestScaler_TransformDoesNotModifyInput(t *testing.T) {
	s, err := FitScaler([][]float64{{0}, {2}})
	require.NoError(t, err)

	in := []float64{4}
	_, err = s.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, in)
}
