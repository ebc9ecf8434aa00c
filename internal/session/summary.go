package session

import (
	"context"
	"log/slog"
	"math"

	"github.com/p-n-ai/pai-learn/internal/lesson"
)

// PointsPerQuiz is the score awarded for each correctly answered quiz.
const PointsPerQuiz = 10

// ItemStatus is the outcome of one quiz in the summary.
type ItemStatus string

const (
	StatusCorrect    ItemStatus = "correct"
	StatusIncorrect  ItemStatus = "incorrect"
	StatusUnanswered ItemStatus = "unanswered"
)

// QuizItem is the summary line for one quiz segment.
type QuizItem struct {
	SegmentID    string     `json:"segmentId"`
	Title        string     `json:"title"`
	Question     string     `json:"question"`
	Selected     string     `json:"selected,omitempty"`
	SelectedText string     `json:"selectedText,omitempty"`
	Answer       string     `json:"answer"`
	AnswerText   string     `json:"answerText"`
	Explanation  string     `json:"explanation"`
	Status       ItemStatus `json:"status"`
}

// Summary is the scored view of a lesson session.
type Summary struct {
	LessonID          string     `json:"lessonId"`
	Title             string     `json:"title"`
	TotalSegments     int        `json:"totalSegments"`
	CompletedSegments int        `json:"completedSegments"`
	RemainingSegments int        `json:"remainingSegments"`
	ProgressPercent   int        `json:"progressPercent"`
	Items             []QuizItem `json:"items"`
	CorrectCount      int        `json:"correctCount"`
	TotalScore        int        `json:"totalScore"`
	MaxScore          int        `json:"maxScore"`
	AnswersLocked     bool       `json:"answersLocked"`
}

// Summarize scores snap against l.
func Summarize(l *lesson.Lesson, snap Snapshot) Summary {
	total := l.Len()
	completed := 0
	if total > 0 {
		completed = clamp(snap.HighestUnlockedIndex, 0, total-1) + 1
	}
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(completed) / float64(total) * 100))
	}

	sum := Summary{
		LessonID:          l.ID,
		Title:             l.Title,
		TotalSegments:     total,
		CompletedSegments: completed,
		RemainingSegments: max(total-completed, 0),
		ProgressPercent:   percent,
		Items:             []QuizItem{},
		AnswersLocked:     snap.AnswersLocked,
	}

	for _, seg := range l.Quizzes() {
		item := QuizItem{
			SegmentID:   seg.ID,
			Title:       seg.Title,
			Question:    seg.Question,
			Answer:      seg.Answer,
			AnswerText:  seg.OptionText(seg.Answer),
			Explanation: seg.Explanation,
			Status:      StatusUnanswered,
		}
		if ans, ok := snap.QuizState[seg.ID]; ok && ans.Selected != "" {
			item.Selected = ans.Selected
			item.SelectedText = seg.OptionText(ans.Selected)
			item.Status = StatusIncorrect
			if ans.IsCorrect {
				item.Status = StatusCorrect
				sum.CorrectCount++
			}
		}
		sum.Items = append(sum.Items, item)
	}

	sum.TotalScore = sum.CorrectCount * PointsPerQuiz
	sum.MaxScore = len(sum.Items) * PointsPerQuiz
	return sum
}

// LoadSummary builds the summary for a view opened either with a carried
// snapshot or directly, re-deriving state from the progress service and local
// persistence.
func LoadSummary(ctx context.Context, l *lesson.Lesson, carried *Snapshot, remote ProgressReader, local LocalStore, logger *slog.Logger) Summary {
	rec := NewReconciler(logger, SummaryProviders(l, carried, remote, local)...)
	s := rec.Reconcile(ctx, l)
	return Summarize(l, s.Snapshot())
}
