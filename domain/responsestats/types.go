package responsestats

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"surveygen/domain/core"
)

// QuestionType identifies how a question's answers are tallied
type QuestionType string

const (
	TypeSingle   QuestionType = "single"
	TypeMultiple QuestionType = "multiple"
	TypeMatrix   QuestionType = "matrix"
	TypeScale    QuestionType = "scale"
	TypeScore    QuestionType = "score"
	TypeDropdown QuestionType = "dropdown"
	TypeSlider   QuestionType = "slider"
	TypeText     QuestionType = "text"
)

// Ordinal reports whether option indices of this type can be read as scores
func (t QuestionType) Ordinal() bool {
	switch t {
	case TypeSingle, TypeScale, TypeScore, TypeDropdown:
		return true
	default:
		return false
	}
}

// assumedInterItemCorrelation stands in for the correlation structure that
// aggregated histograms cannot recover
const assumedInterItemCorrelation = 0.3

// OptionStats counts how often one option was chosen
type OptionStats struct {
	OptionIndex int    `json:"option_index"`
	Label       string `json:"label,omitempty"`
	Count       int    `json:"count"`
}

// QuestionStats holds the tallies of a single question
type QuestionStats struct {
	QuestionNum    int                 `json:"question_num"`
	QuestionType   QuestionType        `json:"question_type"`
	Title          string              `json:"title,omitempty"`
	Options        map[int]OptionStats `json:"options"`
	TotalResponses int                 `json:"total_responses"`
	Rows           map[int]map[int]int `json:"rows,omitempty"`         // matrix: row -> col -> count
	TextAnswers    map[string]int      `json:"text_answers,omitempty"` // text: answer -> count

	// Layout metadata, zero when unknown
	OptionCount int `json:"option_count,omitempty"`
	MatrixRows  int `json:"matrix_rows,omitempty"`
	MatrixCols  int `json:"matrix_cols,omitempty"`
}

// NewQuestionStats creates an empty tally for a question
func NewQuestionStats(questionNum int, questionType QuestionType) *QuestionStats {
	return &QuestionStats{
		QuestionNum:  questionNum,
		QuestionType: questionType,
		Options:      make(map[int]OptionStats),
	}
}

// RecordSelection counts one choice of an option
func (q *QuestionStats) RecordSelection(optionIndex int) {
	if q.Options == nil {
		q.Options = make(map[int]OptionStats)
	}
	opt, ok := q.Options[optionIndex]
	if !ok {
		opt = OptionStats{OptionIndex: optionIndex}
	}
	opt.Count++
	q.Options[optionIndex] = opt
	q.TotalResponses++
}

// RecordMatrixSelection counts one choice of a column within a matrix row
func (q *QuestionStats) RecordMatrixSelection(rowIndex, colIndex int) {
	if q.Rows == nil {
		q.Rows = make(map[int]map[int]int)
	}
	if q.Rows[rowIndex] == nil {
		q.Rows[rowIndex] = make(map[int]int)
	}
	q.Rows[rowIndex][colIndex]++
	q.TotalResponses++
}

// RecordTextAnswer counts one free-text answer
func (q *QuestionStats) RecordTextAnswer(text string) {
	if q.TextAnswers == nil {
		q.TextAnswers = make(map[string]int)
	}
	q.TextAnswers[text]++
	q.TotalResponses++
}

// OptionPercentage returns the share of responses that chose the option, in percent
func (q *QuestionStats) OptionPercentage(optionIndex int) float64 {
	if q.TotalResponses == 0 {
		return 0.0
	}
	opt, ok := q.Options[optionIndex]
	if !ok {
		return 0.0
	}
	return float64(opt.Count) / float64(q.TotalResponses) * 100.0
}

// TallyTotal sums the option, matrix-cell and text counts. It always equals
// TotalResponses for tallies built through the Record methods
func (q *QuestionStats) TallyTotal() int {
	total := 0
	for _, opt := range q.Options {
		total += opt.Count
	}
	for _, cols := range q.Rows {
		for _, c := range cols {
			total += c
		}
	}
	for _, c := range q.TextAnswers {
		total += c
	}
	return total
}

// Clone returns a deep copy sharing no maps with q
func (q *QuestionStats) Clone() *QuestionStats {
	if q == nil {
		return nil
	}
	out := *q
	out.Options = make(map[int]OptionStats, len(q.Options))
	for k, v := range q.Options {
		out.Options[k] = v
	}
	if q.Rows != nil {
		out.Rows = make(map[int]map[int]int, len(q.Rows))
		for r, cols := range q.Rows {
			copied := make(map[int]int, len(cols))
			for c, n := range cols {
				copied[c] = n
			}
			out.Rows[r] = copied
		}
	}
	if q.TextAnswers != nil {
		out.TextAnswers = make(map[string]int, len(q.TextAnswers))
		for k, v := range q.TextAnswers {
			out.TextAnswers[k] = v
		}
	}
	return &out
}

// itemMoments returns the mean and population variance of the option-index
// histogram. ok is false when nothing was recorded
func (q *QuestionStats) itemMoments() (mean, variance float64, ok bool) {
	totalScore, totalCount := 0.0, 0
	for idx, opt := range q.Options {
		totalScore += float64(idx) * float64(opt.Count)
		totalCount += opt.Count
	}
	if totalCount == 0 {
		return 0, 0, false
	}
	mean = totalScore / float64(totalCount)
	for idx, opt := range q.Options {
		d := float64(idx) - mean
		variance += float64(opt.Count) * d * d
	}
	return mean, variance / float64(totalCount), true
}

// SurveyStats aggregates every committed response of one collection session
type SurveyStats struct {
	SessionID         core.SessionID         `json:"session_id"`
	URL               string                 `json:"url"`
	Title             string                 `json:"title,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	TotalSubmissions  int                    `json:"total_submissions"`
	FailedSubmissions int                    `json:"failed_submissions"`
	Questions         map[int]*QuestionStats `json:"questions"`
}

// NewSurveyStats creates empty statistics for a survey
func NewSurveyStats(sessionID core.SessionID, url, title string, now time.Time) *SurveyStats {
	return &SurveyStats{
		SessionID: sessionID,
		URL:       url,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Questions: make(map[int]*QuestionStats),
	}
}

// GetOrCreateQuestion returns the tally for a question, creating it on first sight
func (s *SurveyStats) GetOrCreateQuestion(questionNum int, questionType QuestionType) *QuestionStats {
	if s.Questions == nil {
		s.Questions = make(map[int]*QuestionStats)
	}
	q, ok := s.Questions[questionNum]
	if !ok {
		q = NewQuestionStats(questionNum, questionType)
		s.Questions[questionNum] = q
	}
	return q
}

// Clone returns a deep, independent copy
func (s *SurveyStats) Clone() *SurveyStats {
	if s == nil {
		return nil
	}
	out := *s
	out.Questions = make(map[int]*QuestionStats, len(s.Questions))
	for num, q := range s.Questions {
		out.Questions[num] = q.Clone()
	}
	return &out
}

// ApproximateAlpha estimates Cronbach's alpha from the ordinal option
// histograms (single, scale, score and dropdown questions).
//
// Per-respondent answer vectors are not retained, so the total-score variance
// is estimated by assuming a fixed inter-item correlation of 0.3. The value is
// an approximation and is clamped to [0,1]. ok is false with fewer than two
// applicable questions, fewer than two submissions or zero item variance
func (s *SurveyStats) ApproximateAlpha() (alpha float64, ok bool) {
	if s.TotalSubmissions < 2 {
		return 0, false
	}

	itemVariances := make([]float64, 0, len(s.Questions))
	for _, q := range s.Questions {
		if !q.QuestionType.Ordinal() || q.TotalResponses == 0 {
			continue
		}
		if _, v, ok := q.itemMoments(); ok {
			itemVariances = append(itemVariances, v)
		}
	}

	k := len(itemVariances)
	if k < 2 {
		return 0, false
	}

	sumItemVar, err := stats.Sum(itemVariances)
	if err != nil || sumItemVar == 0 {
		return 0, false
	}

	totalVar := sumItemVar + 2*assumedInterItemCorrelation*math.Sqrt(sumItemVar*sumItemVar/float64(k))
	if totalVar == 0 {
		return 0, false
	}

	kf := float64(k)
	alpha = (kf / (kf - 1)) * (1 - sumItemVar/totalVar)
	return math.Max(0, math.Min(1, alpha)), true
}

// Value implements driver.Valuer so a snapshot can be stored as one JSONB document
func (s SurveyStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB documents
func (s *SurveyStats) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = SurveyStats{Questions: make(map[int]*QuestionStats)}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported survey stats column type %T", value)
	}

	var decoded SurveyStats
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	if decoded.Questions == nil {
		decoded.Questions = make(map[int]*QuestionStats)
	}
	*s = decoded
	return nil
}
