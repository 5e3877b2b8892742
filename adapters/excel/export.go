package excel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"surveygen/domain/responsestats"
	"surveygen/internal/errors"
)

const (
	SheetSummary   = "Summary"
	SheetQuestions = "Questions"
	SheetMatrix    = "Matrix"
	SheetText      = "TextAnswers"
	SheetResponses = "Responses"
)

// Exporter writes statistics snapshots into an XLSX workbook
type Exporter struct {
	f *excelize.File
}

// NewExporter creates an empty workbook whose first sheet is the summary
func NewExporter() (*Exporter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	return &Exporter{f: f}, nil
}

// ExportStats writes a snapshot to path in one call
func ExportStats(stats *responsestats.SurveyStats, path string) error {
	e, err := NewExporter()
	if err != nil {
		return errors.StorageError("failed to create workbook", err)
	}
	defer e.Close()

	if err := e.WriteStats(stats); err != nil {
		return err
	}
	return e.SaveAs(path)
}

// WriteStats fills the Summary, Questions, Matrix and TextAnswers sheets
func (e *Exporter) WriteStats(stats *responsestats.SurveyStats) error {
	if stats == nil {
		return errors.InvalidInput("no statistics to export")
	}
	if err := e.writeSummary(stats); err != nil {
		return errors.StorageError("failed to write summary sheet", err)
	}

	nums := make([]int, 0, len(stats.Questions))
	for num := range stats.Questions {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	if err := e.writeQuestions(stats, nums); err != nil {
		return errors.StorageError("failed to write questions sheet", err)
	}
	if err := e.writeMatrix(stats, nums); err != nil {
		return errors.StorageError("failed to write matrix sheet", err)
	}
	if err := e.writeText(stats, nums); err != nil {
		return errors.StorageError("failed to write text sheet", err)
	}
	return nil
}

// WriteResponses adds the respondent x item answer matrix of a run
func (e *Exporter) WriteResponses(columns []string, matrix [][]float64) error {
	if _, err := e.f.NewSheet(SheetResponses); err != nil {
		return errors.StorageError("failed to add responses sheet", err)
	}
	header := []interface{}{"respondent"}
	for _, c := range columns {
		header = append(header, c)
	}
	if err := e.f.SetSheetRow(SheetResponses, "A1", &header); err != nil {
		return errors.StorageError("failed to write responses header", err)
	}
	for i, row := range matrix {
		values := make([]interface{}, 0, len(row)+1)
		values = append(values, i+1)
		for _, v := range row {
			values = append(values, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := e.f.SetSheetRow(SheetResponses, cell, &values); err != nil {
			return errors.StorageError("failed to write responses row", err)
		}
	}
	return nil
}

// SaveAs writes the workbook to path
func (e *Exporter) SaveAs(path string) error {
	if err := e.f.SaveAs(path); err != nil {
		return errors.StorageError("failed to save workbook "+path, err)
	}
	return nil
}

// Close releases the workbook
func (e *Exporter) Close() error {
	return e.f.Close()
}

func (e *Exporter) writeSummary(stats *responsestats.SurveyStats) error {
	alpha := interface{}("n/a")
	if a, ok := stats.ApproximateAlpha(); ok {
		alpha = a
	}
	rows := [][]interface{}{
		{"session_id", stats.SessionID.String()},
		{"url", stats.URL},
		{"title", stats.Title},
		{"created_at", stats.CreatedAt.Format(time.RFC3339)},
		{"updated_at", stats.UpdatedAt.Format(time.RFC3339)},
		{"total_submissions", stats.TotalSubmissions},
		{"failed_submissions", stats.FailedSubmissions},
		{"questions", len(stats.Questions)},
		{"approximate_alpha", alpha},
	}
	return e.writeRows(SheetSummary, rows)
}

func (e *Exporter) writeQuestions(stats *responsestats.SurveyStats, nums []int) error {
	rows := [][]interface{}{{"question", "type", "title", "option", "count", "percentage", "total_responses"}}
	for _, num := range nums {
		q := stats.Questions[num]
		for _, idx := range optionIndices(q) {
			rows = append(rows, []interface{}{
				num, string(q.QuestionType), q.Title, idx, q.Options[idx].Count,
				roundTo(q.OptionPercentage(idx), 2), q.TotalResponses,
			})
		}
	}
	return e.writeSheet(SheetQuestions, rows)
}

func (e *Exporter) writeMatrix(stats *responsestats.SurveyStats, nums []int) error {
	rows := [][]interface{}{{"question", "row", "column", "count"}}
	for _, num := range nums {
		q := stats.Questions[num]
		rowIdx := make([]int, 0, len(q.Rows))
		for r := range q.Rows {
			rowIdx = append(rowIdx, r)
		}
		sort.Ints(rowIdx)
		for _, r := range rowIdx {
			cols := make([]int, 0, len(q.Rows[r]))
			for c := range q.Rows[r] {
				cols = append(cols, c)
			}
			sort.Ints(cols)
			for _, c := range cols {
				rows = append(rows, []interface{}{num, r, c, q.Rows[r][c]})
			}
		}
	}
	return e.writeSheet(SheetMatrix, rows)
}

func (e *Exporter) writeText(stats *responsestats.SurveyStats, nums []int) error {
	rows := [][]interface{}{{"question", "answer", "count"}}
	for _, num := range nums {
		q := stats.Questions[num]
		answers := make([]string, 0, len(q.TextAnswers))
		for a := range q.TextAnswers {
			answers = append(answers, a)
		}
		sort.Strings(answers)
		for _, a := range answers {
			rows = append(rows, []interface{}{num, a, q.TextAnswers[a]})
		}
	}
	return e.writeSheet(SheetText, rows)
}

func (e *Exporter) writeSheet(sheet string, rows [][]interface{}) error {
	if _, err := e.f.NewSheet(sheet); err != nil {
		return err
	}
	return e.writeRows(sheet, rows)
}

func (e *Exporter) writeRows(sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := e.f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

// optionIndices lists every recorded option plus, when the layout is known,
// every unchosen option below OptionCount
func optionIndices(q *responsestats.QuestionStats) []int {
	seen := make(map[int]bool, len(q.Options))
	for idx := range q.Options {
		seen[idx] = true
	}
	if q.MatrixRows == 0 {
		for idx := 0; idx < q.OptionCount; idx++ {
			seen[idx] = true
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func roundTo(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}
