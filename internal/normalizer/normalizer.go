// Package normalizer — normalizer.go
//
// Per-feature Welford online normalizer.
//
// Welford's algorithm keeps (count, mean, M2) per feature and derives
// variance as M2/count without ever accumulating raw sums, so the running
// statistics stay numerically stable across an unbounded packet stream.
// The merge formula used by the federated checkpoint protocol
// (internal/federation) is the parallel generalisation of the same
// recurrence — see federation.MergeNormalizers.
package normalizer

import "math"

const minStd = 1e-8

// Normalizer holds Welford (count, mean, m2) triples, one per feature.
type Normalizer struct {
	Count int64     `json:"count"`
	Mean  []float64 `json:"mean"`
	M2    []float64 `json:"m2"`
}

// New creates a Normalizer for the given feature dimension.
func New(numFeatures int) *Normalizer {
	return &Normalizer{
		Count: 0,
		Mean:  make([]float64, numFeatures),
		M2:    make([]float64, numFeatures),
	}
}

// NumFeatures returns the configured feature dimension.
func (n *Normalizer) NumFeatures() int { return len(n.Mean) }

// Std returns the per-feature standard deviation, sqrt(M2/count).
func (n *Normalizer) Std() []float64 {
	std := make([]float64, len(n.Mean))
	if n.Count < 2 {
		return std
	}
	for i, m2 := range n.M2 {
		std[i] = math.Sqrt(m2 / float64(n.Count))
	}
	return std
}

// NormalizeAndUpdate updates the running statistics with one sample vector x
// and returns the standardized vector (x-mean)/max(std, 1e-8). For count < 2
// (too few samples to have a meaningful variance), it returns zeros without
// suppressing the statistics update.
func (n *Normalizer) NormalizeAndUpdate(x []float64) []float64 {
	n.Count++
	for i, xi := range x {
		delta := xi - n.Mean[i]
		n.Mean[i] += delta / float64(n.Count)
		delta2 := xi - n.Mean[i]
		n.M2[i] += delta * delta2
	}

	out := make([]float64, len(x))
	if n.Count < 2 {
		return out
	}
	for i, xi := range x {
		std := math.Sqrt(n.M2[i] / float64(n.Count))
		if std < minStd {
			std = minStd
		}
		out[i] = (xi - n.Mean[i]) / std
	}
	return out
}

// Normalize standardizes x against the current statistics without mutating
// them. For count < 2 it returns zeros.
func (n *Normalizer) Normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	if n.Count < 2 {
		return out
	}
	for i, xi := range x {
		std := math.Sqrt(n.M2[i] / float64(n.Count))
		if std < minStd {
			std = minStd
		}
		out[i] = (xi - n.Mean[i]) / std
	}
	return out
}
