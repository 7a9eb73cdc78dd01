package ml

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SoftmaxLinear is a fitted logistic regression. With one coefficient row it is the binary
// form and yields [1-p, p]; with k rows it is multinomial and yields a softmax over k.
type SoftmaxLinear struct {
	coef      *mat.Dense
	intercept *mat.VecDense
}

type softmaxLinearFile struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// NewSoftmaxLinear builds the model from a classes x features coefficient matrix.
func NewSoftmaxLinear(coef [][]float64, intercept []float64) (*SoftmaxLinear, error) {
	rows := len(coef)
	if rows == 0 {
		return nil, fmt.Errorf("coefficient matrix is empty")
	}
	cols := len(coef[0])
	if cols == 0 {
		return nil, fmt.Errorf("coefficient rows are empty")
	}
	flat := make([]float64, 0, rows*cols)
	for i, r := range coef {
		if len(r) != cols {
			return nil, fmt.Errorf("coefficient row %d has %d values, want %d", i, len(r), cols)
		}
		flat = append(flat, r...)
	}
	b := make([]float64, rows)
	if len(intercept) != 0 {
		if len(intercept) != rows {
			return nil, fmt.Errorf("intercept has %d values, want %d", len(intercept), rows)
		}
		copy(b, intercept)
	}
	return &SoftmaxLinear{
		coef:      mat.NewDense(rows, cols, flat),
		intercept: mat.NewVecDense(rows, b),
	}, nil
}

// DecodeSoftmaxLinear reads {"coef": [[...]], "intercept": [...]}.
func DecodeSoftmaxLinear(data []byte) (*SoftmaxLinear, error) {
	var f softmaxLinearFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse linear model: %w", err)
	}
	return NewSoftmaxLinear(f.Coef, f.Intercept)
}

// Classes is the native output width.
func (m *SoftmaxLinear) Classes() int {
	r, _ := m.coef.Dims()
	if r == 1 {
		return 2
	}
	return r
}

// Probabilities implements ClassProbabilityProvider.
func (m *SoftmaxLinear) Probabilities(features []float64) ([]float64, error) {
	rows, cols := m.coef.Dims()
	if len(features) != cols {
		return nil, fmt.Errorf("linear model expects %d features, got %d", cols, len(features))
	}

	var z mat.VecDense
	z.MulVec(m.coef, mat.NewVecDense(cols, append([]float64(nil), features...)))
	z.AddVec(&z, m.intercept)

	if rows == 1 {
		p := sigmoid(z.AtVec(0))
		return []float64{1 - p, p}, nil
	}
	return softmax(z.RawVector().Data), nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func softmax(z []float64) []float64 {
	out := make([]float64, len(z))
	if len(z) == 0 {
		return out
	}
	hi := z[0]
	for _, v := range z[1:] {
		if v > hi {
			hi = v
		}
	}
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
