package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/lesson"
)

// XPPerSegment is the experience awarded for each completed segment.
const XPPerSegment = 10

// LessonProgress is the stored unlock index for one lesson.
type LessonProgress struct {
	LessonID     string
	CurrentIndex int
}

// Lessons resolves lesson metadata by id.
type Lessons interface {
	Get(id string) (*lesson.Lesson, bool)
}

// DashboardRow is one lesson line of the dashboard.
type DashboardRow struct {
	LessonID  string `json:"lessonId"`
	Title     string `json:"title"`
	Segments  int    `json:"segments"`
	Completed int    `json:"completed"`
	Score     int    `json:"score"`
}

// Dashboard aggregates a learner's progress across lessons.
type Dashboard struct {
	ScoresByLesson map[string]int `json:"scoresByLesson"`
	TotalXP        int            `json:"totalXp"`
	AvgAccuracy    float64        `json:"avgAccuracy"`
	Lessons        []DashboardRow `json:"lessons"`
}

// BuildDashboard scores each lesson as the truncated percentage of completed
// segments. Lessons missing from the catalog count as a single segment titled
// by their id.
func BuildDashboard(progress []LessonProgress, lessons Lessons) Dashboard {
	d := Dashboard{
		ScoresByLesson: map[string]int{},
		Lessons:        []DashboardRow{},
	}
	if len(progress) == 0 {
		return d
	}

	var ratios float64
	for _, p := range progress {
		title, segments := p.LessonID, 1
		if lessons != nil {
			if l, ok := lessons.Get(p.LessonID); ok {
				title, segments = l.Title, max(l.Len(), 1)
			}
		}
		completed := min(segments, max(p.CurrentIndex+1, 0))
		ratio := float64(completed) / float64(segments)
		score := int(ratio * 100)

		d.ScoresByLesson[title] = score
		d.TotalXP += completed * XPPerSegment
		ratios += ratio
		d.Lessons = append(d.Lessons, DashboardRow{
			LessonID:  p.LessonID,
			Title:     title,
			Segments:  segments,
			Completed: completed,
			Score:     score,
		})
	}
	d.AvgAccuracy = math.Round(ratios/float64(len(progress))*100) / 100
	return d
}

// WriteDashboard writes d as an XLSX workbook with one row per lesson and a
// totals row.
func WriteDashboard(w io.Writer, d Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dashboardSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{{"Lesson ID", "Title", "Segments", "Completed", "Score"}}
	for _, r := range d.Lessons {
		rows = append(rows, []any{r.LessonID, r.Title, r.Segments, r.Completed, r.Score})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total XP", d.TotalXP},
		[]any{"Average accuracy", d.AvgAccuracy},
	)
	if err := writeRows(f, dashboardSheet, rows); err != nil {
		return err
	}
	if err := boldHeader(f, dashboardSheet); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
