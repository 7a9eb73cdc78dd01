package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sum(v []float64) float64 {
	var s float64
	for _, p := range v {
		s += p
	}
	return s
}

func TestAggregate_SingleModelPassesThrough(t *testing.T) {
	dist, idx := Aggregate([][]float64{{0.7, 0.3}}, 2)

	assert.InDeltaSlice(t, []float64{0.7, 0.3}, dist, 1e-12)
	assert.Equal(t, 0, idx)
}

func TestAggregate_AveragesModels(t *testing.T) {
	dist, idx := Aggregate([][]float64{{0.2, 0.8, 0}, {0.6, 0.2, 0.2}}, 3)

	assert.InDeltaSlice(t, []float64{0.4, 0.5, 0.1}, dist, 1e-12)
	assert.Equal(t, 1, idx)
}

func TestAggregate_TruncatesWideOutputs(t *testing.T) {
	wide := make([]float64, 12)
	for i := range wide {
		wide[i] = 1.0 / 12
	}
	dist, idx := Aggregate([][]float64{wide}, 9)

	assert.Len(t, dist, 9)
	assert.InDelta(t, 1.0, sum(dist), 1e-9)
	for _, p := range dist {
		assert.InDelta(t, 1.0/9, p, 1e-9)
	}
	assert.Equal(t, 0, idx)
}

func TestAggregate_PadsNarrowOutputs(t *testing.T) {
	dist, idx := Aggregate([][]float64{{0.1, 0.1, 0.5, 0.2, 0.1}}, 9)

	assert.Len(t, dist, 9)
	assert.InDelta(t, 1.0, sum(dist), 1e-9)
	for _, p := range dist[5:] {
		assert.Equal(t, 0.0, p)
	}
	assert.Equal(t, 2, idx)
}

func TestAggregate_MixedWidths(t *testing.T) {
	dist, idx := Aggregate([][]float64{{1, 0}, {0, 0, 1, 0}}, 3)

	assert.Len(t, dist, 3)
	assert.InDeltaSlice(t, []float64{0.5, 0, 0.5}, dist, 1e-12)
	// Ties resolve to the first index.
	assert.Equal(t, 0, idx)
}

func TestAggregate_RenormalizesUnnormalizedScores(t *testing.T) {
	dist, idx := Aggregate([][]float64{{2, 6}}, 2)

	assert.InDeltaSlice(t, []float64{0.25, 0.75}, dist, 1e-12)
	assert.Equal(t, 1, idx)
}

func TestAggregate_AllZeroStaysZero(t *testing.T) {
	dist, idx := Aggregate([][]float64{{0, 0, 0}}, 3)

	assert.Equal(t, []float64{0, 0, 0}, dist)
	assert.Equal(t, 0, idx)
}

func TestAggregate_EmptyInputs(t *testing.T) {
	dist, idx := Aggregate(nil, 4)
	assert.Equal(t, []float64{0, 0, 0, 0}, dist)
	assert.Equal(t, 0, idx)

	dist, idx = Aggregate([][]float64{{0.5, 0.5}}, 0)
	assert.Empty(t, dist)
	assert.Equal(t, -1, idx)
}

func TestAggregate_DistributionInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for classCount := 1; classCount <= 9; classCount++ {
		for poolSize := 1; poolSize <= 5; poolSize++ {
			for trial := 0; trial < 20; trial++ {
				dists := make([][]float64, poolSize)
				for m := range dists {
					// Widths range from below to above the registry size.
					width := classCount - 3 + rng.Intn(7)
					if width < 0 {
						width = 0
					}
					d := make([]float64, width)
					for i := range d {
						if rng.Intn(4) > 0 {
							d[i] = rng.Float64()
						}
					}
					dists[m] = d
				}

				dist, idx := Aggregate(dists, classCount)

				if !assert.Len(t, dist, classCount) {
					continue
				}
				allZero := true
				for i, p := range dist {
					assert.GreaterOrEqual(t, p, 0.0, "class %d", i)
					if p != 0 {
						allZero = false
					}
				}
				if !allZero {
					assert.InDelta(t, 1.0, sum(dist), 1e-9,
						"classes=%d pool=%d dists=%v", classCount, poolSize, dists)
				}

				want := 0
				for i, p := range dist {
					if p > dist[want] {
						want = i
					}
				}
				assert.Equal(t, want, idx, "classes=%d pool=%d dist=%v", classCount, poolSize, dist)
			}
		}
	}
}
