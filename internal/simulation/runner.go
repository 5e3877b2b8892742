// Package simulation drives many simulated respondents through a blueprint,
// recording every confirmed submission into the shared collector.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"surveygen/domain/core"
	domain "surveygen/domain/psychometric"
	"surveygen/domain/responsestats"
	"surveygen/internal"
	"surveygen/internal/collector"
	"surveygen/internal/errors"
	"surveygen/internal/respondent"
	"surveygen/internal/statmath"
	"surveygen/internal/tendency"
	"surveygen/ports"
)

// PersonaFunc returns the persona of the i-th respondent. seed is drawn from
// that respondent's own stream
type PersonaFunc func(i int, seed uint64) ports.PersonaProvider

// Options controls one run
type Options struct {
	Respondents int
	Workers     int
	Seed        int64
	TargetAlpha float64
	FailureRate float64
	Persona     PersonaFunc
}

// ItemSummary describes the answers given to one plan-covered item
type ItemSummary struct {
	Key    string  `json:"key"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Result is the outcome of a run
type Result struct {
	SessionID   core.SessionID             `json:"session_id"`
	Columns     []string                   `json:"columns"`
	Matrix      [][]float64                `json:"matrix"` // committed respondent x plan item
	Alpha       float64                    `json:"alpha"`  // Cronbach's alpha over Matrix
	ApproxAlpha float64                    `json:"approx_alpha"`
	Committed   int                        `json:"committed"`
	Discarded   int                        `json:"discarded"`
	Stopped     bool                       `json:"stopped"`
	Items       []ItemSummary              `json:"items"`
	Stats       *responsestats.SurveyStats `json:"stats"`
	Elapsed     time.Duration              `json:"elapsed"`
}

// Runner executes blueprints against a collector
type Runner struct {
	collector *collector.Collector
	rng       ports.RNGPort
	logger    *internal.Logger
}

// NewRunner creates a runner. A nil logger uses the default
func NewRunner(c *collector.Collector, rng ports.RNGPort, logger *internal.Logger) *Runner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Runner{
		collector: c,
		rng:       rng,
		logger:    logger.WithComponent("Simulation"),
	}
}

type outcome struct {
	started   bool
	committed bool
	row       []float64
}

// Run opens a collector session, fills the blueprint once per respondent on
// opts.Workers goroutines and closes the session. Cancelling ctx stops new
// respondents from starting; those already answering finish their round and
// the partial result is returned with Stopped set
func (r *Runner) Run(ctx context.Context, bp Blueprint, opts Options) (*Result, error) {
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("workers must be at least 1, got %d", opts.Workers))
	}
	if opts.Respondents < 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("respondents must not be negative, got %d", opts.Respondents))
	}
	if opts.TargetAlpha == 0 {
		opts.TargetAlpha = 0.85
	}

	start := time.Now()
	sessionID := r.collector.StartSession(bp.URL, bp.Title)
	defer r.collector.EndSession()
	for _, it := range bp.Items {
		r.collector.RegisterQuestionLayout(it.Question, layoutFor(it))
	}

	specs := bp.PlanSpecs()
	outcomes := make([]outcome, opts.Respondents)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	r.logger.Info("running %q: %d respondents on %d workers (target alpha %.2f, %d plan items)",
		bp.Name, opts.Respondents, opts.Workers, opts.TargetAlpha, len(specs))

	for i := 0; i < opts.Respondents; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			out, err := r.respond(gctx, bp, specs, opts, i)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "simulation %q failed", bp.Name)
	}

	result := &Result{
		SessionID: sessionID,
		Columns:   columnKeys(specs),
		Stopped:   ctx.Err() != nil,
	}
	for _, out := range outcomes {
		if !out.started {
			continue
		}
		if !out.committed {
			result.Discarded++
			continue
		}
		result.Committed++
		if len(out.row) > 0 {
			result.Matrix = append(result.Matrix, out.row)
		}
	}

	result.Alpha = statmath.CronbachAlpha(result.Matrix)
	result.Items = summarize(result.Columns, result.Matrix)
	result.Stats = r.collector.CurrentStats()
	if approx, ok := result.Stats.ApproximateAlpha(); ok {
		result.ApproxAlpha = approx
	}
	result.Elapsed = time.Since(start)

	r.logger.Info("run %q finished: %d committed, %d discarded, alpha=%.4f (approx %.4f) in %s",
		bp.Name, result.Committed, result.Discarded, result.Alpha, result.ApproxAlpha, result.Elapsed)
	return result, nil
}

// respond performs one full answer-and-submit cycle
func (r *Runner) respond(ctx context.Context, bp Blueprint, specs []domain.ItemSpec, opts Options, i int) (outcome, error) {
	stream, err := r.rng.Stream(ctx, bp.Name, fmt.Sprintf("respondent-%d", i), opts.Seed)
	if err != nil {
		return outcome{}, err
	}

	var persona ports.PersonaProvider
	if opts.Persona != nil {
		persona = opts.Persona(i, stream.Uint64())
	}

	id := core.NewRespondentID()
	sess := respondent.NewSession(id, stream, persona, r.logger)
	sess.Begin(specs, opts.TargetAlpha)

	round := collector.BeginRound(r.collector, id)
	for _, it := range bp.Items {
		answerItem(sess, round, it)
	}

	out := outcome{started: true}
	if opts.FailureRate > 0 && sess.Float64() < opts.FailureRate {
		round.Discard()
		return out, nil
	}
	round.Commit()
	out.committed = true
	out.row = planRow(sess.Plan(), specs)
	return out, nil
}

func answerItem(sess *respondent.Session, round *collector.Round, it Item) {
	q := respondent.Question{
		Index:       it.Question,
		OptionCount: it.OptionCount,
		Weights:     it.Weights,
		Dimension:   it.Dimension,
		Reverse:     it.Reverse,
	}

	switch it.Type {
	case responsestats.TypeSingle:
		round.SingleChoice(it.Question, sess.Answer(q))
	case responsestats.TypeScale, responsestats.TypeScore:
		round.ScaleChoice(it.Question, sess.Answer(q))
	case responsestats.TypeDropdown:
		round.DropdownChoice(it.Question, sess.Answer(q))
	case responsestats.TypeSlider:
		q.Dimension = tendency.Ungrouped
		round.SliderChoice(it.Question, sess.Answer(q))
	case responsestats.TypeMatrix:
		for row := 0; row < it.MatrixRows; row++ {
			q.Row = domain.Row(row)
			round.MatrixChoice(it.Question, row, sess.Answer(q))
		}
	case responsestats.TypeMultiple:
		round.MultipleChoice(it.Question, pickMultiple(sess, it.OptionCount, it.Weights))
	case responsestats.TypeText:
		if len(it.TextAnswers) > 0 {
			round.TextAnswer(it.Question, it.TextAnswers[tendency.UniformIndex(sess, len(it.TextAnswers))])
		} else {
			round.TextAnswer(it.Question, "")
		}
	}
}

// pickMultiple selects each option independently with its weight read as a
// percent chance. At least one option is always selected
func pickMultiple(src statmath.Source, optionCount int, weights []float64) []int {
	if len(weights) != optionCount {
		weights = nil
	}
	var selected []int
	for i := 0; i < optionCount; i++ {
		p := defaultSelectPercent
		if weights != nil {
			p = weights[i]
		}
		if src.Float64()*100 < p {
			selected = append(selected, i)
		}
	}
	if len(selected) == 0 {
		if weights != nil {
			selected = append(selected, tendency.WeightedIndex(src, weights))
		} else {
			selected = append(selected, tendency.UniformIndex(src, optionCount))
		}
	}
	return selected
}

func planRow(plan *domain.Plan, specs []domain.ItemSpec) []float64 {
	if plan == nil {
		return nil
	}
	row := make([]float64, 0, len(specs))
	for _, spec := range specs {
		idx, ok := plan.Choice(spec.QuestionIndex, spec.RowIndex)
		if !ok {
			return nil
		}
		row = append(row, float64(idx))
	}
	return row
}

func columnKeys(specs []domain.ItemSpec) []string {
	keys := make([]string, 0, len(specs))
	for _, spec := range specs {
		keys = append(keys, domain.PlanKey(spec.QuestionIndex, spec.RowIndex))
	}
	return keys
}

func summarize(columns []string, matrix [][]float64) []ItemSummary {
	if len(matrix) == 0 {
		return nil
	}
	out := make([]ItemSummary, 0, len(columns))
	col := make([]float64, len(matrix))
	for j, key := range columns {
		for i, row := range matrix {
			col[i] = row[j]
		}
		mean, _ := stats.Mean(col)
		sd := 0.0
		if len(col) > 1 {
			sd, _ = stats.StandardDeviationSample(col)
		}
		out = append(out, ItemSummary{Key: key, Mean: mean, StdDev: sd})
	}
	return out
}

func layoutFor(it Item) collector.Layout {
	layout := collector.Layout{
		QuestionType: it.Type,
		Title:        it.Title,
		OptionCount:  it.OptionCount,
	}
	if it.Type == responsestats.TypeMatrix {
		layout.MatrixRows = it.MatrixRows
		layout.MatrixCols = it.OptionCount
	}
	return layout
}
