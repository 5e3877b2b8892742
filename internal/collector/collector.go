// Package collector aggregates per-question answer frequencies across every
// respondent of a collection session. Answers are buffered per respondent and
// only reach the shared tallies when that respondent's submission is
// confirmed, so statistics and submission counters never diverge.
package collector

import (
	"sync"
	"time"

	"surveygen/domain/core"
	"surveygen/domain/responsestats"
	"surveygen/internal"
	"surveygen/ports"
)

type actionKind int

const (
	actionSelect actionKind = iota
	actionMultiple
	actionMatrix
	actionText
)

// pendingAction is one recorded answer waiting for its round's outcome
type pendingAction struct {
	kind         actionKind
	questionNum  int
	questionType responsestats.QuestionType
	index        int
	indices      []int
	row, col     int
	text         string
}

// Layout describes a question's shape for display and export
type Layout struct {
	QuestionType responsestats.QuestionType
	Title        string
	OptionCount  int
	MatrixRows   int
	MatrixCols   int
}

// Collector is the single shared statistics aggregator. Every public method
// is serialized by one mutex and does constant work per call apart from
// CommitRound, which replays the committing respondent's own buffer
type Collector struct {
	mu       sync.Mutex
	current  *responsestats.SurveyStats
	enabled  bool
	pending  map[core.RespondentID][]pendingAction
	layouts  map[int]Layout
	observer ports.RoundObserver
	now      func() time.Time
	logger   *internal.Logger
}

// Option configures a Collector
type Option func(*Collector)

// WithObserver registers a RoundObserver notified outside the lock
func WithObserver(observer ports.RoundObserver) Option {
	return func(c *Collector) { c.observer = observer }
}

// WithClock overrides the time source used for created/updated stamps
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithLogger overrides the default logger
func WithLogger(logger *internal.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// NewCollector creates an idle collector. Construct one per process and
// inject it into every respondent worker
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		pending: make(map[core.RespondentID][]pendingAction),
		layouts: make(map[int]Layout),
		now:     time.Now,
		logger:  internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("StatsCollector")
	return c
}

// StartSession begins a fresh statistics session and enables recording.
// Buffered rounds and registered layouts from a previous session are dropped
func (c *Collector) StartSession(url, title string) core.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := core.NewSessionID()
	c.current = responsestats.NewSurveyStats(id, url, title, c.now())
	c.enabled = true
	c.pending = make(map[core.RespondentID][]pendingAction)
	c.layouts = make(map[int]Layout)

	c.logger.Info("session %s started for %s", id, url)
	return id
}

// EndSession disables recording and drops every pending round. The
// accumulated statistics stay readable until the next StartSession
func (c *Collector) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	c.pending = make(map[core.RespondentID][]pendingAction)
	if c.current != nil {
		c.logger.Info("session %s ended: %d submitted, %d failed",
			c.current.SessionID, c.current.TotalSubmissions, c.current.FailedSubmissions)
	}
}

// Reset forgets the current statistics entirely and disables recording
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.enabled = false
	c.pending = make(map[core.RespondentID][]pendingAction)
	c.layouts = make(map[int]Layout)
}

// IsEnabled reports whether a session is active
func (c *Collector) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// RegisterQuestionLayout records a question's shape. It is stamped onto the
// question's tallies when they are first created by a commit, so layouts
// never make an unanswered question appear in the statistics. A non-empty
// QuestionType overrides the type implied by the record call (e.g. "score"
// questions recorded through RecordScaleChoice)
func (c *Collector) RegisterQuestionLayout(questionNum int, layout Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.layouts[questionNum] = layout
	if q, ok := c.current.Questions[questionNum]; ok {
		applyLayout(q, layout)
	}
}

// StartRound clears the respondent's pending buffer. Calling it twice is harmless
func (c *Collector) StartRound(respondent core.RespondentID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.pending[respondent] = c.pending[respondent][:0]
}

// RecordSingleChoice buffers a single-choice answer
func (c *Collector) RecordSingleChoice(respondent core.RespondentID, questionNum, selectedIndex int) {
	c.buffer(respondent, pendingAction{kind: actionSelect, questionNum: questionNum, questionType: responsestats.TypeSingle, index: selectedIndex})
}

// RecordMultipleChoice buffers every option selected in a multiple-choice answer
func (c *Collector) RecordMultipleChoice(respondent core.RespondentID, questionNum int, selectedIndices []int) {
	indices := append([]int(nil), selectedIndices...)
	c.buffer(respondent, pendingAction{kind: actionMultiple, questionNum: questionNum, questionType: responsestats.TypeMultiple, indices: indices})
}

// RecordMatrixChoice buffers the column chosen for one matrix row
func (c *Collector) RecordMatrixChoice(respondent core.RespondentID, questionNum, rowIndex, colIndex int) {
	c.buffer(respondent, pendingAction{kind: actionMatrix, questionNum: questionNum, questionType: responsestats.TypeMatrix, row: rowIndex, col: colIndex})
}

// RecordScaleChoice buffers a scale answer
func (c *Collector) RecordScaleChoice(respondent core.RespondentID, questionNum, selectedIndex int) {
	c.buffer(respondent, pendingAction{kind: actionSelect, questionNum: questionNum, questionType: responsestats.TypeScale, index: selectedIndex})
}

// RecordDropdownChoice buffers a dropdown answer
func (c *Collector) RecordDropdownChoice(respondent core.RespondentID, questionNum, selectedIndex int) {
	c.buffer(respondent, pendingAction{kind: actionSelect, questionNum: questionNum, questionType: responsestats.TypeDropdown, index: selectedIndex})
}

// RecordSliderChoice buffers a slider answer
func (c *Collector) RecordSliderChoice(respondent core.RespondentID, questionNum, selectedIndex int) {
	c.buffer(respondent, pendingAction{kind: actionSelect, questionNum: questionNum, questionType: responsestats.TypeSlider, index: selectedIndex})
}

// RecordTextAnswer buffers a free-text answer
func (c *Collector) RecordTextAnswer(respondent core.RespondentID, questionNum int, text string) {
	c.buffer(respondent, pendingAction{kind: actionText, questionNum: questionNum, questionType: responsestats.TypeText, text: text})
}

func (c *Collector) buffer(respondent core.RespondentID, action pendingAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.pending[respondent] = append(c.pending[respondent], action)
}

// CommitRound applies the respondent's buffered answers to the statistics,
// counts exactly one successful submission and empties the buffer
func (c *Collector) CommitRound(respondent core.RespondentID) {
	c.mu.Lock()
	if !c.enabled || c.current == nil {
		c.mu.Unlock()
		return
	}

	actions := c.pending[respondent]
	delete(c.pending, respondent)

	for _, a := range actions {
		c.apply(a)
	}
	c.current.TotalSubmissions++
	c.current.UpdatedAt = c.now()
	observer := c.observer
	c.mu.Unlock()

	c.logger.Trace("round %s committed with %d answers", respondent, len(actions))
	if observer != nil {
		observer.RoundCommitted(len(actions))
	}
}

// DiscardRound drops the respondent's buffered answers and counts exactly one
// failed submission. Question tallies are untouched
func (c *Collector) DiscardRound(respondent core.RespondentID) {
	c.mu.Lock()
	if !c.enabled || c.current == nil {
		c.mu.Unlock()
		return
	}

	dropped := len(c.pending[respondent])
	delete(c.pending, respondent)

	c.current.FailedSubmissions++
	c.current.UpdatedAt = c.now()
	observer := c.observer
	c.mu.Unlock()

	c.logger.Trace("round %s discarded (%d answers dropped)", respondent, dropped)
	if observer != nil {
		observer.RoundDiscarded(dropped)
	}
}

// PendingRounds returns how many respondents currently hold buffered answers
func (c *Collector) PendingRounds() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, actions := range c.pending {
		if len(actions) > 0 {
			n++
		}
	}
	return n
}

// CurrentStats returns a deep copy of the current statistics, or nil before
// the first session. Mutating the copy never affects the collector
func (c *Collector) CurrentStats() *responsestats.SurveyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// apply must be called with c.mu held
func (c *Collector) apply(a pendingAction) {
	q, existed := c.current.Questions[a.questionNum]
	if !existed {
		questionType := a.questionType
		layout, hasLayout := c.layouts[a.questionNum]
		if hasLayout && layout.QuestionType != "" {
			questionType = layout.QuestionType
		}
		q = c.current.GetOrCreateQuestion(a.questionNum, questionType)
		if hasLayout {
			applyLayout(q, layout)
		}
	}

	switch a.kind {
	case actionSelect:
		q.RecordSelection(a.index)
	case actionMultiple:
		for _, idx := range a.indices {
			q.RecordSelection(idx)
		}
	case actionMatrix:
		q.RecordMatrixSelection(a.row, a.col)
	case actionText:
		q.RecordTextAnswer(a.text)
	}
}

func applyLayout(q *responsestats.QuestionStats, layout Layout) {
	if layout.Title != "" {
		q.Title = layout.Title
	}
	if layout.OptionCount > 0 {
		q.OptionCount = layout.OptionCount
	}
	if layout.MatrixRows > 0 {
		q.MatrixRows = layout.MatrixRows
	}
	if layout.MatrixCols > 0 {
		q.MatrixCols = layout.MatrixCols
	}
}

var (
	_ ports.StatsRecorder    = (*Collector)(nil)
	_ ports.StatsSnapshotter = (*Collector)(nil)
)
