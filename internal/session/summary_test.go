package session_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/session"
	"github.com/p-n-ai/pai-learn/internal/storage"
)

func TestSummarize(t *testing.T) {
	l := threeSegmentLesson()
	l.Segments = append(l.Segments, lesson.Segment{
		ID: "q2", Type: lesson.SegmentQuiz, Title: "Second",
		Options: []lesson.Option{{Key: "A", Text: "yes"}, {Key: "B", Text: "no"}},
		Answer:  "A",
	}, lesson.Segment{
		ID: "q3", Type: lesson.SegmentQuiz, Title: "Third",
		Options: []lesson.Option{{Key: "A", Text: "yes"}, {Key: "B", Text: "no"}},
		Answer:  "B",
	})

	sum := session.Summarize(l, session.Snapshot{
		LessonID:             l.ID,
		HighestUnlockedIndex: 2,
		QuizState: session.QuizState{
			"seg2": {Selected: "B", IsCorrect: true},
			"q2":   {Selected: "B", IsCorrect: false},
		},
		AnswersLocked: true,
	})

	if sum.TotalSegments != 5 || sum.CompletedSegments != 3 || sum.RemainingSegments != 2 {
		t.Errorf("segments = %d/%d/%d, want 5/3/2", sum.TotalSegments, sum.CompletedSegments, sum.RemainingSegments)
	}
	if sum.ProgressPercent != 60 {
		t.Errorf("ProgressPercent = %d, want 60", sum.ProgressPercent)
	}
	if sum.CorrectCount != 1 || sum.TotalScore != 10 || sum.MaxScore != 30 {
		t.Errorf("score = %d correct, %d/%d, want 1, 10/30", sum.CorrectCount, sum.TotalScore, sum.MaxScore)
	}

	want := []session.ItemStatus{session.StatusCorrect, session.StatusIncorrect, session.StatusUnanswered}
	for i, item := range sum.Items {
		if item.Status != want[i] {
			t.Errorf("Items[%d].Status = %q, want %q", i, item.Status, want[i])
		}
	}
	if sum.Items[1].SelectedText != "no" || sum.Items[1].AnswerText != "yes" {
		t.Errorf("Items[1] texts = %q/%q", sum.Items[1].SelectedText, sum.Items[1].AnswerText)
	}
}

func TestSummarize_Rounding(t *testing.T) {
	l := threeSegmentLesson()
	sum := session.Summarize(l, session.Snapshot{HighestUnlockedIndex: 1})
	if sum.ProgressPercent != 67 {
		t.Errorf("ProgressPercent = %d, want 67", sum.ProgressPercent)
	}
}

func TestSummarize_EmptyLesson(t *testing.T) {
	sum := session.Summarize(&lesson.Lesson{ID: "empty"}, session.Snapshot{})
	if sum.TotalSegments != 0 || sum.CompletedSegments != 0 || sum.ProgressPercent != 0 || sum.MaxScore != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
}

func TestLoadSummary_OpenedDirectly(t *testing.T) {
	ctx := context.Background()
	l := threeSegmentLesson()
	local := session.NewLocalCache(storage.NewMemoryKV(), nil)
	local.SaveQuizState(ctx, l.ID, session.QuizState{"seg2": {Selected: "B", IsCorrect: true}})
	local.SaveAnswersLocked(ctx, l.ID, true)
	remote := &fakeProgress{index: 1, found: true}

	sum := session.LoadSummary(ctx, l, nil, remote, local, nil)

	if sum.CompletedSegments != 2 {
		t.Errorf("CompletedSegments = %d, want 2 from remote progress", sum.CompletedSegments)
	}
	if !sum.AnswersLocked || sum.TotalScore != 10 {
		t.Errorf("summary = locked %v score %d, want locked 10", sum.AnswersLocked, sum.TotalScore)
	}
}

func TestLoadSummary_NoRecordedProgress(t *testing.T) {
	ctx := context.Background()
	l := threeSegmentLesson()
	local := session.NewLocalCache(storage.NewMemoryKV(), nil)

	tests := []struct {
		name          string
		remote        *fakeProgress
		wantCompleted int
		wantPercent   int
	}{
		{name: "service reports nothing", remote: &fakeProgress{index: -1, found: false}, wantCompleted: 1, wantPercent: 33},
		{name: "service reports negative index", remote: &fakeProgress{index: -1, found: true}, wantCompleted: 1, wantPercent: 33},
		{name: "service unavailable", remote: &fakeProgress{getErr: errNetwork}, wantCompleted: 3, wantPercent: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := session.LoadSummary(ctx, l, nil, tt.remote, local, nil)
			if sum.CompletedSegments != tt.wantCompleted || sum.ProgressPercent != tt.wantPercent {
				t.Errorf("completed = %d (%d%%), want %d (%d%%)",
					sum.CompletedSegments, sum.ProgressPercent, tt.wantCompleted, tt.wantPercent)
			}
		})
	}
}
