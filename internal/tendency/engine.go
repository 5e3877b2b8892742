// Package tendency generates answer indices that stay consistent within one
// respondent. Every item tagged with the same dimension is anchored to a
// single cached baseline and only fluctuates by one option around it.
package tendency

import (
	"math"
	"math/rand"

	"surveygen/internal/statmath"
	"surveygen/ports"
)

// Dimension names a group of related items that share one respondent-level
// preference. The zero value is the ungrouped dimension
type Dimension string

// Ungrouped bypasses consistency: items are sampled independently
const Ungrouped Dimension = ""

const (
	fluctuation    = 1
	personaJitter  = 0.1
	centerWeight   = 2.0
	neighborWeight = 1.0
	outsideDecay   = 0.05
)

// Engine holds the dimension baselines of exactly one respondent. It is not
// safe for concurrent use; each respondent owns its own Engine
type Engine struct {
	rng       statmath.Source
	persona   ports.PersonaProvider
	baselines map[Dimension]float64
}

// NewEngine creates an engine drawing from rng (nil uses math/rand) and
// consulting persona, when non-nil, for new baselines
func NewEngine(rng statmath.Source, persona ports.PersonaProvider) *Engine {
	return &Engine{
		rng:       rng,
		persona:   persona,
		baselines: make(map[Dimension]float64),
	}
}

// Reset forgets every dimension baseline. Call it before a respondent answers
// its first item
func (e *Engine) Reset() {
	e.baselines = make(map[Dimension]float64)
}

// Baseline returns the cached satisfaction ratio for a dimension
func (e *Engine) Baseline(dim Dimension) (float64, bool) {
	ratio, ok := e.baselines[dim]
	return ratio, ok
}

// Index returns an option index in [0, optionCount).
//
// weights must have one entry per option to be honoured; any other length is
// treated as absent. reverse marks an item whose option order runs against its
// dimension's axis. Baselines are stored in satisfaction space so items of
// either polarity read the same preference
func (e *Engine) Index(optionCount int, weights []float64, dim Dimension, reverse bool) int {
	if optionCount <= 0 {
		return 0
	}
	if len(weights) != optionCount {
		weights = nil
	}

	if dim == Ungrouped {
		idx := e.sample(optionCount, weights)
		if reverse {
			idx = optionCount - 1 - idx
		}
		return clampIndex(idx, optionCount)
	}

	ratio, ok := e.baselines[dim]
	if !ok {
		ratio = e.newBaseline(optionCount, weights, reverse)
		e.baselines[dim] = ratio
	}

	base := EffectiveBase(ratio, optionCount, reverse)

	if weights != nil {
		if probs, ok := Normalize(decayAround(weights, base)); ok {
			return clampIndex(WeightedIndex(e.rng, probs), optionCount)
		}
	}

	return clampIndex(e.sampleWindow(base, optionCount), optionCount)
}

// EffectiveBase converts a satisfaction ratio into the raw option index an item
// of the given polarity is anchored to
func EffectiveBase(ratio float64, optionCount int, reverse bool) int {
	if optionCount <= 0 {
		return 0
	}
	if math.IsNaN(ratio) {
		ratio = 0.5
	}
	absolute := clampIndex(int(math.Round(ratio*float64(optionCount-1))), optionCount)
	if reverse {
		return optionCount - 1 - absolute
	}
	return absolute
}

// Window returns the candidate indices within the fluctuation band of base
func Window(base, optionCount int) []int {
	low := base - fluctuation
	if low < 0 {
		low = 0
	}
	high := base + fluctuation
	if high > optionCount-1 {
		high = optionCount - 1
	}
	candidates := make([]int, 0, high-low+1)
	for i := low; i <= high; i++ {
		candidates = append(candidates, i)
	}
	return candidates
}

func (e *Engine) newBaseline(optionCount int, weights []float64, reverse bool) float64 {
	if e.persona != nil {
		if s, ok := e.persona.SatisfactionTendency(); ok && !math.IsNaN(s) && !math.IsInf(s, 0) {
			return clampRatio(s + personaJitter*statmath.Randn(e.rng))
		}
	}

	if weights != nil && optionCount > 1 {
		idx := WeightedIndex(e.rng, weights)
		ratio := float64(idx) / float64(optionCount-1)
		if reverse {
			ratio = 1 - ratio
		}
		return clampRatio(ratio)
	}

	return uniform(e.rng)
}

func (e *Engine) sample(optionCount int, weights []float64) int {
	if weights != nil {
		return WeightedIndex(e.rng, weights)
	}
	return UniformIndex(e.rng, optionCount)
}

func (e *Engine) sampleWindow(base, optionCount int) int {
	candidates := Window(base, optionCount)
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		if c == base {
			weights[i] = centerWeight
		} else {
			weights[i] = neighborWeight
		}
	}
	return candidates[WeightedIndex(e.rng, weights)]
}

// decayAround boosts the band around base and suppresses everything else
func decayAround(weights []float64, base int) []float64 {
	adjusted := make([]float64, len(weights))
	for i, w := range weights {
		w = usableWeight(w)
		switch distance(i, base) {
		case 0:
			adjusted[i] = w * centerWeight
		case fluctuation:
			adjusted[i] = w * neighborWeight
		default:
			adjusted[i] = w * outsideDecay
		}
	}
	return adjusted
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func clampIndex(idx, optionCount int) int {
	if idx < 0 {
		return 0
	}
	if idx > optionCount-1 {
		return optionCount - 1
	}
	return idx
}

func clampRatio(r float64) float64 {
	return math.Max(0, math.Min(1, r))
}

func uniform(src statmath.Source) float64 {
	if src == nil {
		return rand.Float64()
	}
	return src.Float64()
}
