// Package report renders lesson summaries and learner dashboards as
// spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/session"
)

const (
	summarySheet   = "Summary"
	quizSheet      = "Quiz"
	dashboardSheet = "Dashboard"
)

// WriteLessonSummary writes s as an XLSX workbook with a Summary sheet of
// totals and a Quiz sheet listing every quiz item.
func WriteLessonSummary(w io.Writer, s session.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{
		{"Lesson", s.Title},
		{"Lesson ID", s.LessonID},
		{"Segments", s.TotalSegments},
		{"Completed", s.CompletedSegments},
		{"Remaining", s.RemainingSegments},
		{"Progress %", s.ProgressPercent},
		{"Correct", s.CorrectCount},
		{"Score", s.TotalScore},
		{"Max score", s.MaxScore},
		{"Submitted", s.AnswersLocked},
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(quizSheet); err != nil {
		return fmt.Errorf("create quiz sheet: %w", err)
	}
	quiz := [][]any{{"Segment", "Title", "Question", "Selected", "Answer", "Status", "Explanation"}}
	for _, item := range s.Items {
		quiz = append(quiz, []any{
			item.SegmentID,
			item.Title,
			item.Question,
			optionLabel(item.Selected, item.SelectedText),
			optionLabel(item.Answer, item.AnswerText),
			string(item.Status),
			item.Explanation,
		})
	}
	if err := writeRows(f, quizSheet, quiz); err != nil {
		return err
	}
	if err := boldHeader(f, quizSheet); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func boldHeader(f *excelize.File, sheet string) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

func optionLabel(key, text string) string {
	if key == "" {
		return ""
	}
	if text == "" {
		return key
	}
	return key + ". " + text
}
