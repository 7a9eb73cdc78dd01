package ml

// Aggregate averages per-model distributions and reconciles the result to classCount.
//
// Widths that differ from classCount are truncated or zero-padded. This keeps models
// trained against a different class count usable, but it does not realign labels.
// The result is normalized to sum to 1, or left all-zero when nothing was scored.
// The returned index is the argmax, or -1 when classCount is zero.
func Aggregate(dists [][]float64, classCount int) ([]float64, int) {
	width := 0
	for _, d := range dists {
		if len(d) > width {
			width = len(d)
		}
	}

	sum := make([]float64, width)
	for _, d := range dists {
		for i, p := range d {
			sum[i] += p
		}
	}

	n := float64(len(dists))
	if n == 0 {
		n = 1
	}

	out := make([]float64, classCount)
	for i := 0; i < classCount && i < width; i++ {
		out[i] = sum[i] / n
	}

	var total float64
	for _, p := range out {
		total += p
	}
	if total == 0 {
		total = 1
	}
	for i := range out {
		out[i] /= total
	}

	return out, argmax(out)
}

func argmax(v []float64) int {
	best := -1
	for i, p := range v {
		if best == -1 || p > v[best] {
			best = i
		}
	}
	return best
}
