// Package report exports quiz attempts and course progress as Excel
// workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const (
	attemptsSheet = "Attempts"
	progressSheet = "Progress"
	timeLayout    = time.RFC3339
)

// WriteAttempts writes one row per attempt, oldest first as given.
func WriteAttempts(w io.Writer, quizTitle string, attempts []quiz.Attempt) error {
	headers := []any{"Attempt", "Quiz", "User", "Score", "Total", "Passed", "Attempted At"}
	rows := make([][]any, 0, len(attempts))
	for i, a := range attempts {
		rows = append(rows, []any{
			i + 1,
			quizTitle,
			a.UserID,
			a.ScoreObtained,
			a.TotalQuestions,
			yesNo(a.IsPassed),
			a.AttemptedAt.UTC().Format(timeLayout),
		})
	}
	return writeSheet(w, attemptsSheet, headers, rows)
}

// WriteProgress writes one row per learner progress record.
func WriteProgress(w io.Writer, records []progress.CourseProgress) error {
	headers := []any{"User", "Course", "Completed Lessons", "Progress %", "Completed", "Started At", "Last Accessed At", "Completed At"}
	rows := make([][]any, 0, len(records))
	for _, p := range records {
		completedAt := ""
		if p.CompletedAt != nil {
			completedAt = p.CompletedAt.UTC().Format(timeLayout)
		}
		rows = append(rows, []any{
			p.UserID,
			p.CourseID,
			p.CompletedLessonsCount,
			p.ProgressPercentage,
			yesNo(p.IsCompleted),
			p.StartedAt.UTC().Format(timeLayout),
			p.LastAccessedAt.UTC().Format(timeLayout),
			completedAt,
		})
	}
	return writeSheet(w, progressSheet, headers, rows)
}

func writeSheet(w io.Writer, sheet string, headers []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
