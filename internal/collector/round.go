package collector

import (
	"surveygen/domain/core"
	"surveygen/ports"
)

// Round binds one respondent's answers to a recorder for the duration of a
// single answer-and-submit cycle. Exactly one of Commit or Discard should be
// called; later calls are ignored
type Round struct {
	recorder   ports.StatsRecorder
	respondent core.RespondentID
	closed     bool
}

// BeginRound starts a round for respondent on recorder
func BeginRound(recorder ports.StatsRecorder, respondent core.RespondentID) *Round {
	recorder.StartRound(respondent)
	return &Round{recorder: recorder, respondent: respondent}
}

// Respondent returns the respondent the round belongs to
func (r *Round) Respondent() core.RespondentID { return r.respondent }

// SingleChoice buffers a single-choice answer for the round's respondent
func (r *Round) SingleChoice(questionNum, selectedIndex int) {
	r.recorder.RecordSingleChoice(r.respondent, questionNum, selectedIndex)
}

// MultipleChoice buffers every selected option of a multiple-choice answer
func (r *Round) MultipleChoice(questionNum int, selectedIndices []int) {
	r.recorder.RecordMultipleChoice(r.respondent, questionNum, selectedIndices)
}

// MatrixChoice buffers the column chosen for one matrix row
func (r *Round) MatrixChoice(questionNum, rowIndex, colIndex int) {
	r.recorder.RecordMatrixChoice(r.respondent, questionNum, rowIndex, colIndex)
}

// ScaleChoice buffers a scale answer
func (r *Round) ScaleChoice(questionNum, selectedIndex int) {
	r.recorder.RecordScaleChoice(r.respondent, questionNum, selectedIndex)
}

// DropdownChoice buffers a dropdown answer
func (r *Round) DropdownChoice(questionNum, selectedIndex int) {
	r.recorder.RecordDropdownChoice(r.respondent, questionNum, selectedIndex)
}

// SliderChoice buffers a slider answer
func (r *Round) SliderChoice(questionNum, selectedIndex int) {
	r.recorder.RecordSliderChoice(r.respondent, questionNum, selectedIndex)
}

// TextAnswer buffers a free-text answer
func (r *Round) TextAnswer(questionNum int, text string) {
	r.recorder.RecordTextAnswer(r.respondent, questionNum, text)
}

// Commit applies the round after a confirmed submission
func (r *Round) Commit() {
	if r.closed {
		return
	}
	r.closed = true
	r.recorder.CommitRound(r.respondent)
}

// Discard drops the round after a failed submission
func (r *Round) Discard() {
	if r.closed {
		return
	}
	r.closed = true
	r.recorder.DiscardRound(r.respondent)
}
