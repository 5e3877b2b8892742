package collector

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"surveygen/domain/core"
	"surveygen/domain/responsestats"
	"surveygen/internal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingObserver struct {
	mu        sync.Mutex
	committed int
	discarded int
	actions   int
}

func (o *countingObserver) RoundCommitted(actions int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed++
	o.actions += actions
}

func (o *countingObserver) RoundDiscarded(actions int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discarded++
}

func newTestCollector(opts ...Option) *Collector {
	opts = append([]Option{WithLogger(internal.NewLogger(internal.LogLevelError))}, opts...)
	return NewCollector(opts...)
}

func TestCollector_DiscardLeavesNoTallies(t *testing.T) {
	c := newTestCollector()
	c.StartSession("https://example.test/s/1", "")
	r := core.RespondentID("r1")

	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 0)
	c.RecordSingleChoice(r, 2, 1)
	c.RecordSingleChoice(r, 3, 2)
	c.DiscardRound(r)

	stats := c.CurrentStats()
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.FailedSubmissions)
	assert.Equal(t, 0, stats.TotalSubmissions)
	assert.Empty(t, stats.Questions)
	assert.Equal(t, 0, c.PendingRounds())
}

func TestCollector_CommitAppliesBufferedAnswers(t *testing.T) {
	c := newTestCollector()
	c.StartSession("https://example.test/s/1", "Survey")
	r := core.RespondentID("r1")

	c.StartRound(r)
	for i := 0; i < 5; i++ {
		c.RecordSingleChoice(r, 3, 1)
	}
	c.CommitRound(r)

	stats := c.CurrentStats()
	q := stats.Questions[3]
	require.NotNil(t, q)
	assert.Equal(t, 5, q.Options[1].Count)
	assert.Equal(t, 5, q.TotalResponses)
	assert.Equal(t, 1, stats.TotalSubmissions)
	assert.Equal(t, responsestats.TypeSingle, q.QuestionType)
	assert.Equal(t, 0, c.PendingRounds())
}

func TestCollector_AllRecordKinds(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	r := core.RespondentID("r")

	c.StartRound(r)
	c.RecordMultipleChoice(r, 1, []int{0, 2})
	c.RecordMatrixChoice(r, 2, 0, 3)
	c.RecordMatrixChoice(r, 2, 1, 4)
	c.RecordScaleChoice(r, 3, 4)
	c.RecordDropdownChoice(r, 4, 2)
	c.RecordSliderChoice(r, 5, 70)
	c.RecordTextAnswer(r, 6, "more parking")
	c.CommitRound(r)

	stats := c.CurrentStats()
	assert.Equal(t, responsestats.TypeMultiple, stats.Questions[1].QuestionType)
	assert.Equal(t, 2, stats.Questions[1].TotalResponses)
	assert.Equal(t, 1, stats.Questions[2].Rows[1][4])
	assert.Equal(t, responsestats.TypeScale, stats.Questions[3].QuestionType)
	assert.Equal(t, responsestats.TypeDropdown, stats.Questions[4].QuestionType)
	assert.Equal(t, 1, stats.Questions[5].Options[70].Count)
	assert.Equal(t, 1, stats.Questions[6].TextAnswers["more parking"])

	for num, q := range stats.Questions {
		assert.Equalf(t, q.TotalResponses, q.TallyTotal(), "question %d", num)
	}
}

func TestCollector_MultipleChoiceCopiesInput(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	r := core.RespondentID("r")

	selected := []int{1, 2}
	c.StartRound(r)
	c.RecordMultipleChoice(r, 1, selected)
	selected[0] = 9
	c.CommitRound(r)

	stats := c.CurrentStats()
	assert.Equal(t, 1, stats.Questions[1].Options[1].Count)
	assert.NotContains(t, stats.Questions[1].Options, 9)
}

func TestCollector_InactiveOperationsAreNoOps(t *testing.T) {
	c := newTestCollector()
	r := core.RespondentID("r")

	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 1)
	c.CommitRound(r)
	c.DiscardRound(r)
	assert.Nil(t, c.CurrentStats())
	assert.False(t, c.IsEnabled())

	c.StartSession("u", "")
	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 1)
	c.CommitRound(r)
	c.EndSession()

	assert.False(t, c.IsEnabled())
	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 2)
	c.CommitRound(r)
	c.DiscardRound(r)

	stats := c.CurrentStats()
	require.NotNil(t, stats, "stats stay readable after the session ends")
	assert.Equal(t, 1, stats.TotalSubmissions)
	assert.Equal(t, 0, stats.FailedSubmissions)
	assert.Equal(t, 1, stats.Questions[1].TotalResponses)
}

func TestCollector_EndSessionDropsPendingRounds(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	r := core.RespondentID("r")

	c.StartRound(r)
	c.RecordScaleChoice(r, 1, 2)
	c.EndSession()
	c.StartSession("u", "")
	c.CommitRound(r)

	stats := c.CurrentStats()
	assert.Equal(t, 1, stats.TotalSubmissions)
	assert.Empty(t, stats.Questions, "answers buffered in the old session must not leak")
}

func TestCollector_StartRoundIsIdempotentAndClears(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	r := core.RespondentID("r")

	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 0)
	c.StartRound(r)
	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 2)
	c.CommitRound(r)

	q := c.CurrentStats().Questions[1]
	assert.Equal(t, 1, q.TotalResponses)
	assert.Equal(t, 1, q.Options[2].Count)
}

func TestCollector_RoundsArePartitionedByRespondent(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	a, b := core.RespondentID("a"), core.RespondentID("b")

	c.StartRound(a)
	c.StartRound(b)
	c.RecordSingleChoice(a, 1, 0)
	c.RecordSingleChoice(b, 1, 1)
	c.StartRound(a) // a restarts; b's answers must survive
	c.RecordSingleChoice(a, 1, 2)
	c.DiscardRound(a)
	c.CommitRound(b)

	stats := c.CurrentStats()
	assert.Equal(t, 1, stats.TotalSubmissions)
	assert.Equal(t, 1, stats.FailedSubmissions)
	assert.Equal(t, 1, stats.Questions[1].TotalResponses)
	assert.Equal(t, 1, stats.Questions[1].Options[1].Count)
}

func TestCollector_SnapshotIsDeepCopy(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	r := core.RespondentID("r")
	c.StartRound(r)
	c.RecordMatrixChoice(r, 1, 0, 0)
	c.CommitRound(r)

	snap := c.CurrentStats()
	snap.TotalSubmissions = 100
	snap.Questions[1].Rows[0][0] = 100
	delete(snap.Questions, 1)

	fresh := c.CurrentStats()
	assert.Equal(t, 1, fresh.TotalSubmissions)
	assert.Equal(t, 1, fresh.Questions[1].Rows[0][0])
}

func TestCollector_LayoutAppliedOnFirstCommit(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")
	c.RegisterQuestionLayout(1, Layout{QuestionType: responsestats.TypeScore, Title: "Rate us", OptionCount: 5})
	c.RegisterQuestionLayout(2, Layout{MatrixRows: 3, MatrixCols: 4})

	assert.Empty(t, c.CurrentStats().Questions, "layouts alone create no tallies")

	r := core.RespondentID("r")
	c.StartRound(r)
	c.RecordScaleChoice(r, 1, 4)
	c.RecordMatrixChoice(r, 2, 2, 1)
	c.CommitRound(r)

	stats := c.CurrentStats()
	assert.Equal(t, responsestats.TypeScore, stats.Questions[1].QuestionType)
	assert.Equal(t, "Rate us", stats.Questions[1].Title)
	assert.Equal(t, 5, stats.Questions[1].OptionCount)
	assert.Equal(t, responsestats.TypeMatrix, stats.Questions[2].QuestionType)
	assert.Equal(t, 3, stats.Questions[2].MatrixRows)
	assert.Equal(t, 4, stats.Questions[2].MatrixCols)
}

func TestCollector_TimestampsAndReset(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestCollector(WithClock(func() time.Time { return clock }))

	id := c.StartSession("u", "t")
	assert.False(t, id.String() == "")

	clock = clock.Add(time.Minute)
	r := core.RespondentID("r")
	c.StartRound(r)
	c.CommitRound(r)

	stats := c.CurrentStats()
	assert.Equal(t, id, stats.SessionID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), stats.CreatedAt)
	assert.Equal(t, clock, stats.UpdatedAt)

	c.Reset()
	assert.Nil(t, c.CurrentStats())
	assert.False(t, c.IsEnabled())
}

func TestCollector_ObserverSeesOutcomes(t *testing.T) {
	obs := &countingObserver{}
	c := newTestCollector(WithObserver(obs))
	c.StartSession("u", "")

	r := core.RespondentID("r")
	c.StartRound(r)
	c.RecordSingleChoice(r, 1, 0)
	c.RecordSingleChoice(r, 2, 0)
	c.CommitRound(r)
	c.StartRound(r)
	c.DiscardRound(r)

	assert.Equal(t, 1, obs.committed)
	assert.Equal(t, 1, obs.discarded)
	assert.Equal(t, 2, obs.actions)
}

func TestCollector_ConcurrentRounds(t *testing.T) {
	c := newTestCollector()
	c.StartSession("u", "")

	const (
		workers   = 32
		questions = 6
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r := core.RespondentID(fmt.Sprintf("worker-%d", w))
			round := BeginRound(c, r)
			for q := 1; q <= questions; q++ {
				round.ScaleChoice(q, (w+q)%5)
			}
			if w%4 == 0 {
				round.Discard()
				round.Commit() // ignored after Discard
				return
			}
			round.Commit()
		}(w)
	}
	wg.Wait()

	discarded := (workers + 3) / 4
	committed := workers - discarded

	stats := c.CurrentStats()
	assert.Equal(t, committed, stats.TotalSubmissions)
	assert.Equal(t, discarded, stats.FailedSubmissions)
	require.Len(t, stats.Questions, questions)
	for num, q := range stats.Questions {
		assert.Equalf(t, committed, q.TotalResponses, "question %d", num)
		assert.Equal(t, q.TotalResponses, q.TallyTotal())
	}
	assert.Equal(t, 0, c.PendingRounds())
}
