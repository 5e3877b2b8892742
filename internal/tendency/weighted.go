package tendency

import (
	"math"

	"surveygen/internal/statmath"
)

// usableWeight treats negative, NaN and infinite weights as zero
func usableWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// UniformIndex picks an index in [0, n) with equal probability. n <= 0 yields 0
func UniformIndex(src statmath.Source, n int) int {
	if n <= 0 {
		return 0
	}
	idx := int(uniform(src) * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// WeightedIndex samples an index proportionally to weights. When no weight is
// usable the draw degrades to uniform over len(weights)
func WeightedIndex(src statmath.Source, weights []float64) int {
	if len(weights) == 0 {
		return 0
	}

	total := 0.0
	for _, w := range weights {
		total += usableWeight(w)
	}
	if total <= 0 {
		return UniformIndex(src, len(weights))
	}

	pivot := uniform(src) * total
	running := 0.0
	last := 0
	for i, w := range weights {
		w = usableWeight(w)
		if w == 0 {
			continue
		}
		running += w
		last = i
		if pivot < running {
			return i
		}
	}
	return last
}

// Normalize rescales usable weights to sum to 1. ok is false when nothing is usable
func Normalize(weights []float64) (probs []float64, ok bool) {
	total := 0.0
	for _, w := range weights {
		total += usableWeight(w)
	}
	if total <= 0 {
		return nil, false
	}
	probs = make([]float64, len(weights))
	for i, w := range weights {
		probs[i] = usableWeight(w) / total
	}
	return probs, true
}
