// Package persona supplies respondent personas whose satisfaction tendency is
// drawn from a Beta distribution.
package persona

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"surveygen/ports"
)

const (
	DefaultAlpha = 2.5
	DefaultBeta  = 2.0
)

// Persona is a fixed satisfaction tendency for one respondent
type Persona struct {
	tendency float64
	present  bool
}

// Fixed returns a persona that always reports tendency
func Fixed(tendency float64) Persona {
	return Persona{tendency: tendency, present: true}
}

// SatisfactionTendency implements ports.PersonaProvider
func (p Persona) SatisfactionTendency() (float64, bool) {
	return p.tendency, p.present
}

// BetaGenerator draws one persona per respondent from Beta(alpha, beta)
type BetaGenerator struct {
	alpha float64
	beta  float64
}

// NewBetaGenerator creates a generator. Non-positive shape parameters fall
// back to the defaults
func NewBetaGenerator(alpha, beta float64) *BetaGenerator {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	if beta <= 0 {
		beta = DefaultBeta
	}
	return &BetaGenerator{alpha: alpha, beta: beta}
}

// Mean is the expected satisfaction tendency alpha/(alpha+beta)
func (g *BetaGenerator) Mean() float64 {
	return distuv.Beta{Alpha: g.alpha, Beta: g.beta}.Mean()
}

// Draw returns the persona for a respondent seeded with seed. The same seed
// always yields the same persona
func (g *BetaGenerator) Draw(seed uint64) Persona {
	dist := distuv.Beta{
		Alpha: g.alpha,
		Beta:  g.beta,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	return Fixed(dist.Rand())
}

var _ ports.PersonaProvider = Persona{}
