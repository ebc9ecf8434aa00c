package report_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/report"
	"github.com/p-n-ai/pai-learn/internal/session"
)

func testLesson() *lesson.Lesson {
	return &lesson.Lesson{
		ID:    "nn",
		Title: "Neural Networks 101",
		Segments: []lesson.Segment{
			{ID: "intro", Type: lesson.SegmentLecture, Title: "Intro"},
			{
				ID: "q1", Type: lesson.SegmentQuiz, Title: "Bottleneck",
				Question: "What held early networks back?",
				Options:  []lesson.Option{{Key: "A", Text: "Math"}, {Key: "B", Text: "Compute"}},
				Answer:   "B", Explanation: "Compute.",
			},
			{ID: "outro", Type: lesson.SegmentLecture, Title: "Wrap up"},
			{ID: "extra", Type: lesson.SegmentLecture, Title: "Extra"},
		},
	}
}

func open(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteLessonSummary(t *testing.T) {
	l := testLesson()
	sum := session.Summarize(l, session.Snapshot{
		LessonID:             l.ID,
		HighestUnlockedIndex: 3,
		QuizState:            session.QuizState{"q1": {Selected: "A"}},
		AnswersLocked:        true,
	})

	var buf bytes.Buffer
	if err := report.WriteLessonSummary(&buf, sum); err != nil {
		t.Fatalf("WriteLessonSummary() error = %v", err)
	}
	f := open(t, &buf)

	if got := f.GetSheetList(); len(got) != 2 || got[0] != "Summary" || got[1] != "Quiz" {
		t.Fatalf("sheets = %v, want [Summary Quiz]", got)
	}
	if v, _ := f.GetCellValue("Summary", "B1"); v != "Neural Networks 101" {
		t.Errorf("title cell = %q", v)
	}
	if v, _ := f.GetCellValue("Summary", "B4"); v != "4" {
		t.Errorf("completed cell = %q, want 4", v)
	}

	rows, err := f.GetRows("Quiz")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("quiz rows = %d, want header + 1", len(rows))
	}
	if rows[1][3] != "A. Math" || rows[1][4] != "B. Compute" || rows[1][5] != "incorrect" {
		t.Errorf("quiz row = %v", rows[1])
	}
}

func TestBuildDashboard(t *testing.T) {
	catalog := lesson.NewStaticCatalog(testLesson())

	d := report.BuildDashboard([]report.LessonProgress{
		{LessonID: "nn", CurrentIndex: 1},
		{LessonID: "lr", CurrentIndex: 5},
	}, catalog)

	if d.ScoresByLesson["Neural Networks 101"] != 50 {
		t.Errorf("nn score = %d, want 50", d.ScoresByLesson["Neural Networks 101"])
	}
	if d.ScoresByLesson["lr"] != 100 {
		t.Errorf("unknown lesson score = %d, want 100", d.ScoresByLesson["lr"])
	}
	if d.TotalXP != 30 {
		t.Errorf("TotalXP = %d, want 30", d.TotalXP)
	}
	if d.AvgAccuracy != 0.75 {
		t.Errorf("AvgAccuracy = %v, want 0.75", d.AvgAccuracy)
	}
}

func TestBuildDashboard_Truncates(t *testing.T) {
	l := &lesson.Lesson{ID: "three", Title: "Three", Segments: make([]lesson.Segment, 3)}

	d := report.BuildDashboard([]report.LessonProgress{{LessonID: "three", CurrentIndex: 1}}, lesson.NewStaticCatalog(l))

	if d.ScoresByLesson["Three"] != 66 {
		t.Errorf("score = %d, want 66", d.ScoresByLesson["Three"])
	}
	if d.AvgAccuracy != 0.67 {
		t.Errorf("AvgAccuracy = %v, want 0.67", d.AvgAccuracy)
	}
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := report.BuildDashboard(nil, nil)
	if d.TotalXP != 0 || d.AvgAccuracy != 0 || len(d.ScoresByLesson) != 0 {
		t.Errorf("empty dashboard = %+v", d)
	}
}

func TestWriteDashboard(t *testing.T) {
	d := report.BuildDashboard([]report.LessonProgress{{LessonID: "nn", CurrentIndex: 3}}, lesson.NewStaticCatalog(testLesson()))

	var buf bytes.Buffer
	if err := report.WriteDashboard(&buf, d); err != nil {
		t.Fatalf("WriteDashboard() error = %v", err)
	}
	f := open(t, &buf)

	rows, err := f.GetRows("Dashboard")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if rows[1][0] != "nn" || rows[1][4] != "100" {
		t.Errorf("lesson row = %v", rows[1])
	}
	if v, _ := f.GetCellValue("Dashboard", "B4"); v != "40" {
		t.Errorf("total xp = %q, want 40", v)
	}
}
