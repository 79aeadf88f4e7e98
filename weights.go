package smoothmesh

import "math"

const maxWeight = 1

// ResolveWeights returns the influence of every vertex: its authored weight
// scaled by envelope, clamped above at 1. There is no lower clamp so negative
// authored weights pass through unchanged.
func ResolveWeights(raw []float64, envelope float64) []float64 {
	w := make([]float64, len(raw))
	for i, r := range raw {
		w[i] = math.Min(r*envelope, maxWeight)
	}
	return w
}

// ResolveWeightsN resolves weights for n vertices with no authored weights,
// which default to 1.
func ResolveWeightsN(n int, envelope float64) []float64 {
	w := make([]float64, n)
	wv := math.Min(envelope, maxWeight)
	for i := range w {
		w[i] = wv
	}
	return w
}
