package ml

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// PredictionCache keeps recent results keyed by the raw feature vector.
// A nil cache is valid and never hits.
type PredictionCache struct {
	lru *expirable.LRU[uint64, *PredictionResult]
}

// NewPredictionCache returns nil when size is not positive.
func NewPredictionCache(size int, ttl time.Duration) *PredictionCache {
	if size <= 0 {
		return nil
	}
	return &PredictionCache{lru: expirable.NewLRU[uint64, *PredictionResult](size, nil, ttl)}
}

func (c *PredictionCache) get(key uint64) (*PredictionResult, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *PredictionCache) put(key uint64, r *PredictionResult) {
	if c == nil {
		return
	}
	c.lru.Add(key, r)
}

// Purge drops every entry.
func (c *PredictionCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len is the number of live entries.
func (c *PredictionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// vectorKey hashes the exact bit patterns, so -0 and 0 are distinct keys.
func vectorKey(vec []float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range vec {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
