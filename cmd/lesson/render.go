package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/session"
)

// renderSegment prints segment i. Quiz correctness is not revealed until the
// summary.
func renderSegment(w io.Writer, l *lesson.Lesson, i int, quiz session.QuizState) {
	seg := l.Segments[i]
	fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, l.Len(), seg.Title)
	if seg.Duration != "" {
		fmt.Fprintf(w, "(%s)\n", seg.Duration)
	}

	if !seg.IsQuiz() {
		if seg.Speaker != "" {
			fmt.Fprintf(w, "%s:\n", seg.Speaker)
		}
		if seg.Video != nil && seg.Video.Src != "" {
			fmt.Fprintf(w, "Video: %s\n", seg.Video.Src)
		}
		for _, line := range seg.Transcript {
			fmt.Fprintf(w, "  %s\n", line)
		}
		if len(seg.KeyPoints) > 0 {
			fmt.Fprintln(w, "Key points:")
			for _, kp := range seg.KeyPoints {
				fmt.Fprintf(w, "  - %s\n", kp)
			}
		}
		return
	}

	fmt.Fprintf(w, "%s\n", seg.Question)
	selected := quiz[seg.ID].Selected
	for _, opt := range seg.Options {
		mark := " "
		if opt.Key == selected {
			mark = "*"
		}
		fmt.Fprintf(w, " %s %s. %s\n", mark, opt.Key, opt.Text)
	}
}

func printSummary(w io.Writer, sum session.Summary) {
	fmt.Fprintf(w, "\n%s: summary\n", sum.Title)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Completed: %d/%d segments (%d%%)\n", sum.CompletedSegments, sum.TotalSegments, sum.ProgressPercent)
	fmt.Fprintf(w, "Score: %d/%d\n", sum.TotalScore, sum.MaxScore)
	for _, item := range sum.Items {
		fmt.Fprintf(w, "\n%s [%s]\n", item.Title, item.Status)
		if item.Selected != "" {
			fmt.Fprintf(w, "  Your answer: %s. %s\n", item.Selected, item.SelectedText)
		}
		fmt.Fprintf(w, "  Correct answer: %s. %s\n", item.Answer, item.AnswerText)
		if item.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", item.Explanation)
		}
	}
	if !sum.AnswersLocked {
		fmt.Fprintln(w, "\nAnswers have not been submitted yet.")
	}
}
