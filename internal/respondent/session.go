// Package respondent holds the per-respondent answering state: one tendency
// engine, one latent-trait plan and the random stream both draw from. A
// Session is owned by exactly one worker and is never shared.
package respondent

import (
	"math/rand"

	"surveygen/domain/core"
	domain "surveygen/domain/psychometric"
	"surveygen/internal"
	"surveygen/internal/psychometric"
	"surveygen/internal/statmath"
	"surveygen/internal/tendency"
	"surveygen/ports"
)

// Question describes one answerable item as the session sees it
type Question struct {
	Index       int
	Row         *int // matrix rows only
	OptionCount int
	Weights     []float64
	Dimension   tendency.Dimension
	Reverse     bool
}

// Session is the explicit per-respondent context
type Session struct {
	id      core.RespondentID
	rng     statmath.Source
	engine  *tendency.Engine
	planner *psychometric.Planner
	plan    *domain.Plan
	logger  *internal.Logger
}

// NewSession creates a session for one respondent. persona may be nil
func NewSession(id core.RespondentID, rng statmath.Source, persona ports.PersonaProvider, logger *internal.Logger) *Session {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Session{
		id:      id,
		rng:     rng,
		engine:  tendency.NewEngine(rng, persona),
		planner: psychometric.NewPlanner(rng, logger),
		logger:  logger.WithComponent("Respondent"),
	}
}

// ID returns the respondent identifier
func (s *Session) ID() core.RespondentID {
	return s.id
}

// Begin resets every dimension baseline and, when planItems holds at least
// two items, builds the latent-trait plan for this run. It must be called
// before the first Answer
func (s *Session) Begin(planItems []domain.ItemSpec, targetAlpha float64) {
	s.engine.Reset()
	s.plan = nil
	if len(planItems) > 0 {
		s.plan = s.planner.BuildPlan(planItems, targetAlpha)
	}
	if s.plan != nil {
		s.logger.Trace("%s planned %d items (theta=%.3f)", s.id, s.plan.Len(), s.plan.Theta)
	}
}

// Plan returns the current plan, nil when none was built
func (s *Session) Plan() *domain.Plan {
	return s.plan
}

// Answer picks an option index for q. Plan-covered items take the planned
// answer; every other item goes through the tendency engine
func (s *Session) Answer(q Question) int {
	if idx, ok := s.plan.Choice(q.Index, q.Row); ok {
		return idx
	}
	return s.engine.Index(q.OptionCount, q.Weights, q.Dimension, q.Reverse)
}

// Float64 exposes the session's random stream to callers that need extra
// draws (failure simulation, multiple choice) without breaking isolation
func (s *Session) Float64() float64 {
	if s.rng == nil {
		return rand.Float64()
	}
	return s.rng.Float64()
}
