// Package dataset loads the labelled reference CSV the scaler is fitted on. The same data
// backs the sample and summary endpoints and the assistant's canned answers.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoRows is returned for a header-only or empty file.
var ErrNoRows = errors.New("dataset has no rows")

// ErrNonFinite is returned for NaN or infinite cells.
var ErrNonFinite = errors.New("non-finite value")

// Dataset is the parsed reference data. It is read-only after Load.
type Dataset struct {
	path     string
	features []string
	rows     [][]float64
	labels   []string

	mu  sync.Mutex
	rng *rand.Rand
}

// CategoryCount is the number of rows carrying one label.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary describes the dataset for the info endpoint.
type Summary struct {
	TotalSamples   int             `json:"total_samples"`
	TotalFeatures  int             `json:"total_features"`
	Categories     []string        `json:"device_categories"`
	CategoryCounts []CategoryCount `json:"-"`
}

// Sample is one reference row with its label.
type Sample struct {
	Index    int
	Values   map[string]float64
	Vector   []float64
	Category string
}

// Load reads a CSV file whose header names the columns. Every column except labelColumn is
// a numeric feature; empty cells read as 0 and NaN or infinite cells are rejected.
func Load(path, labelColumn string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	ds, err := Read(file, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.path = path

	log.Info().
		Str("path", path).
		Int("rows", len(ds.rows)).
		Int("features", len(ds.features)).
		Msg("Reference dataset loaded")
	return ds, nil
}

// Read parses CSV data from r.
func Read(r io.Reader, labelColumn string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	labelIdx := -1
	features := make([]string, 0, len(header))
	featureIdx := make([]int, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == labelColumn {
			labelIdx = i
			continue
		}
		features = append(features, name)
		featureIdx = append(featureIdx, i)
	}
	if labelIdx == -1 {
		return nil, fmt.Errorf("label column %q not found", labelColumn)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("no feature columns besides %q", labelColumn)
	}

	ds := &Dataset{
		features: features,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(featureIdx))
		for j, col := range featureIdx {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, features[j], err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d column %q: %w", line, features[j], ErrNonFinite)
			}
			row[j] = v
		}
		ds.rows = append(ds.rows, row)
		ds.labels = append(ds.labels, strings.TrimSpace(record[labelIdx]))
	}

	if len(ds.rows) == 0 {
		return nil, ErrNoRows
	}
	return ds, nil
}

// SetRand replaces the sampling source.
func (d *Dataset) SetRand(r *rand.Rand) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng = r
}

// Path is the file the dataset came from, if any.
func (d *Dataset) Path() string {
	return d.path
}

// FeatureNames returns the feature columns in file order.
func (d *Dataset) FeatureNames() []string {
	return append([]string(nil), d.features...)
}

// Rows returns the feature matrix. Callers must not modify it.
func (d *Dataset) Rows() [][]float64 {
	return d.rows
}

// Len is the row count.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns row i as a sample.
func (d *Dataset) Row(i int) (Sample, error) {
	if i < 0 || i >= len(d.rows) {
		return Sample{}, fmt.Errorf("row %d out of range [0, %d)", i, len(d.rows))
	}
	values := make(map[string]float64, len(d.features))
	for j, name := range d.features {
		values[name] = d.rows[i][j]
	}
	return Sample{
		Index:    i,
		Values:   values,
		Vector:   append([]float64(nil), d.rows[i]...),
		Category: d.labels[i],
	}, nil
}

// RandomSample returns a uniformly chosen row.
func (d *Dataset) RandomSample() Sample {
	d.mu.Lock()
	i := d.rng.Intn(len(d.rows))
	d.mu.Unlock()

	s, _ := d.Row(i)
	return s
}

// Summary counts rows per label, most frequent first and ties by name.
func (d *Dataset) Summary() Summary {
	counts := make(map[string]int)
	for _, l := range d.labels {
		counts[l]++
	}
	cc := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		cc = append(cc, CategoryCount{Category: k, Count: v})
	}
	sort.Slice(cc, func(i, j int) bool {
		if cc[i].Count != cc[j].Count {
			return cc[i].Count > cc[j].Count
		}
		return cc[i].Category < cc[j].Category
	})
	categories := make([]string, len(cc))
	for i, c := range cc {
		categories[i] = c.Category
	}
	return Summary{
		TotalSamples:   len(d.rows),
		TotalFeatures:  len(d.features),
		Categories:     categories,
		CategoryCounts: cc,
	}
}

// Counts returns the per-label row counts as a map.
func (s Summary) Counts() map[string]int {
	m := make(map[string]int, len(s.CategoryCounts))
	for _, c := range s.CategoryCounts {
		m[c.Category] = c.Count
	}
	return m
}
