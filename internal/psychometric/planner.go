// Package psychometric builds latent-trait answer plans: every plan-covered
// item of one respondent is a noisy observation of a single shared value theta,
// with the noise sized so that Cronbach's alpha across many respondents
// converges to a target.
package psychometric

import (
	"math"

	domain "surveygen/domain/psychometric"
	"surveygen/internal"
	"surveygen/internal/statmath"
)

const (
	// DefaultTargetAlpha is used by callers that do not configure a target
	DefaultTargetAlpha = 0.85

	fallbackRho = 0.2
	minRho      = 1e-6
	maxRho      = 0.999999
)

// RhoFromAlpha inverts the Spearman-Brown formula
//
//	alpha = k*rho / (1 + (k-1)*rho)  =>  rho = alpha / (k - alpha*(k-1))
//
// Out-of-range targets and k < 2 fall back to rho = 0.2
func RhoFromAlpha(alpha float64, k int) float64 {
	if !(alpha > 0 && alpha < 1) || k < 2 {
		return fallbackRho
	}
	kf := float64(k)
	denom := kf - alpha*(kf-1)
	if denom <= 0 {
		return fallbackRho
	}
	return math.Max(minRho, math.Min(maxRho, alpha/denom))
}

// SigmaEFromAlpha returns the item error standard deviation under
// X_i = theta + e_i, where corr(X_i, X_j) = 1/(1+sigma_e^2) = rho
func SigmaEFromAlpha(alpha float64, k int) float64 {
	rho := RhoFromAlpha(alpha, k)
	return math.Sqrt(1/rho - 1)
}

// DrawAnswer observes theta through one item: z = theta + shift + sigma_e*eps,
// binned into optionCount equiprobable categories. The index is clamped into
// [0, optionCount-1], so items with fewer than two options always get 0
func DrawAnswer(src statmath.Source, theta float64, optionCount int, bias domain.Bias, sigmaE float64) int {
	z := theta + bias.Shift() + sigmaE*statmath.Randn(src)
	idx := statmath.ZToCategory(z, optionCount)
	if idx > optionCount-1 {
		idx = optionCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Planner builds one Plan per respondent. A Planner is owned by a single
// respondent context; its random source is not shared
type Planner struct {
	rng    statmath.Source
	logger *internal.Logger
}

// NewPlanner creates a planner drawing from rng. A nil logger uses the default
func NewPlanner(rng statmath.Source, logger *internal.Logger) *Planner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Planner{
		rng:    rng,
		logger: logger.WithComponent("Psychometric"),
	}
}

// BuildPlan draws theta once and one answer per item. It returns nil when
// fewer than two items are given, since reliability is undefined for one item
func (p *Planner) BuildPlan(specs []domain.ItemSpec, targetAlpha float64) *domain.Plan {
	items := make([]domain.Item, 0, len(specs))
	for _, spec := range specs {
		items = append(items, normalizeItem(spec))
	}

	k := len(items)
	if k < 2 {
		p.logger.Warn("latent trait mode needs at least 2 items, got %d", k)
		return nil
	}

	sigmaE := SigmaEFromAlpha(targetAlpha, k)
	theta := statmath.Randn(p.rng)

	choices := make(map[string]int, k)
	for _, item := range items {
		choices[item.Key()] = DrawAnswer(p.rng, theta, item.OptionCount, item.Bias, sigmaE)
	}

	p.logger.Debug("plan built | target_alpha=%.2f k=%d theta=%.2f sigma_e=%.2f", targetAlpha, k, theta, sigmaE)

	return domain.NewPlan(items, theta, sigmaE, targetAlpha, choices)
}

func normalizeItem(spec domain.ItemSpec) domain.Item {
	item := domain.Item{
		Kind:          spec.Kind,
		QuestionIndex: spec.QuestionIndex,
		OptionCount:   spec.OptionCount,
		Bias:          domain.ParseBias(string(spec.Bias)),
	}
	if spec.RowIndex != nil {
		row := *spec.RowIndex
		item.RowIndex = &row
		if spec.Kind == domain.KindMatrix {
			item.Kind = domain.KindMatrixRow
		}
	}
	if item.Kind == "" {
		item.Kind = domain.KindSingle
	}
	return item
}
