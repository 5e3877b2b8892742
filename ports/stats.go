package ports

import (
	"context"

	"surveygen/domain/core"
	"surveygen/domain/responsestats"
)

// StatsRecorder is the narrow view of the shared response statistics
// collector that respondent workers depend on. Pending answers are
// partitioned by respondent so concurrent rounds never see each other
type StatsRecorder interface {
	StartRound(respondent core.RespondentID)
	RecordSingleChoice(respondent core.RespondentID, questionNum, selectedIndex int)
	RecordMultipleChoice(respondent core.RespondentID, questionNum int, selectedIndices []int)
	RecordMatrixChoice(respondent core.RespondentID, questionNum, rowIndex, colIndex int)
	RecordScaleChoice(respondent core.RespondentID, questionNum, selectedIndex int)
	RecordDropdownChoice(respondent core.RespondentID, questionNum, selectedIndex int)
	RecordSliderChoice(respondent core.RespondentID, questionNum, selectedIndex int)
	RecordTextAnswer(respondent core.RespondentID, questionNum int, text string)
	CommitRound(respondent core.RespondentID)
	DiscardRound(respondent core.RespondentID)
}

// StatsSnapshotter exposes read-only snapshots of the current session
type StatsSnapshotter interface {
	// CurrentStats returns a deep copy, or nil when no session was started
	CurrentStats() *responsestats.SurveyStats
}

// RoundObserver is notified after a round's outcome has been applied
type RoundObserver interface {
	RoundCommitted(actions int)
	RoundDiscarded(actions int)
}

// StatsRepository persists one statistics document per collection session
type StatsRepository interface {
	Save(ctx context.Context, stats *responsestats.SurveyStats) error
	Load(ctx context.Context, sessionID core.SessionID) (*responsestats.SurveyStats, error)
	List(ctx context.Context, url string, limit int) ([]*responsestats.SurveyStats, error)
}
