package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/session"
)

const playHelp = `Commands:
  next, n          go to the next segment
  prev, p          go to the previous segment
  goto N           jump to segment N (unlocked segments only)
  select KEY       answer the current quiz
  submit           submit all answers
  confirm, cancel  answer a pending submission
  outline          list segments
  summary          show progress
  help             show this help
  quit, q          leave the lesson`

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play <lesson-id>",
		Short: "Play a lesson interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.lesson(ctx, args[0])
			if err != nil {
				return err
			}

			ctrl := session.NewController(session.ControllerConfig{
				Lesson:   l,
				Progress: a.progressService(),
				Local:    a.local,
				Logger:   a.logger,
			})
			defer func() {
				ctrl.Close()
				ctrl.Wait()
			}()

			ctrl.Mount(ctx, nil)
			p := &player{ctrl: ctrl, lesson: l, out: cmd.OutOrStdout()}
			return p.run(cmd.InOrStdin())
		},
	}
}

type player struct {
	ctrl   *session.Controller
	lesson *lesson.Lesson
	out    io.Writer
}

func (p *player) run(in io.Reader) error {
	fmt.Fprintf(p.out, "%s\n", p.lesson.Title)
	if p.lesson.Intro != "" {
		fmt.Fprintf(p.out, "%s\n", p.lesson.Intro)
	}
	if p.lesson.Len() == 0 {
		fmt.Fprintln(p.out, "This lesson has no segments.")
		return nil
	}
	p.show()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(p.out)
			return scanner.Err()
		}
		if done := p.handle(scanner.Text()); done {
			return nil
		}
	}
}

// handle runs one command line and reports whether the session is over.
func (p *player) handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "next", "n":
		before := p.ctrl.State()
		after := p.ctrl.Advance()
		if after.CurrentIndex == before.CurrentIndex {
			fmt.Fprintln(p.out, "This is the last segment. Type 'submit' to finish.")
			return false
		}
		p.show()

	case "prev", "p":
		before := p.ctrl.State()
		if p.ctrl.Back().CurrentIndex == before.CurrentIndex {
			fmt.Fprintln(p.out, "Already at the first segment.")
			return false
		}
		p.show()

	case "goto", "g":
		if len(args) != 1 {
			fmt.Fprintln(p.out, "Usage: goto N")
			return false
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > p.lesson.Len() {
			fmt.Fprintf(p.out, "Segment must be between 1 and %d.\n", p.lesson.Len())
			return false
		}
		before := p.ctrl.State()
		after := p.ctrl.GoToSegment(n - 1)
		switch {
		case n-1 > before.HighestUnlockedIndex:
			fmt.Fprintf(p.out, "Segment %d is locked. Keep going with 'next'.\n", n)
		case after.CurrentIndex != before.CurrentIndex:
			p.show()
		}

	case "select", "s":
		if len(args) != 1 {
			fmt.Fprintln(p.out, "Usage: select KEY")
			return false
		}
		p.selectOption(args[0])

	case "submit":
		snap, ok := p.ctrl.RequestSubmit()
		if ok {
			p.finish(snap)
			return true
		}
		if p.ctrl.State().Phase == session.PhaseConfirming {
			fmt.Fprintln(p.out, "Submit your answers? They cannot be changed afterwards. Type 'confirm' or 'cancel'.")
		}

	case "confirm", "yes", "y":
		snap, ok := p.ctrl.ConfirmSubmit()
		if !ok {
			fmt.Fprintln(p.out, "Nothing to confirm. Type 'submit' first.")
			return false
		}
		p.finish(snap)
		return true

	case "cancel":
		if p.ctrl.State().Phase == session.PhaseConfirming {
			p.ctrl.CancelSubmit()
			fmt.Fprintln(p.out, "Submission cancelled.")
		}

	case "outline", "o":
		p.outline()

	case "summary":
		s := p.ctrl.State()
		sum := session.Summarize(p.lesson, s.Snapshot())
		fmt.Fprintf(p.out, "Progress: %d/%d segments (%d%%), %d of %d quizzes answered.\n",
			sum.CompletedSegments, sum.TotalSegments, sum.ProgressPercent, answered(sum), len(sum.Items))

	case "help", "h", "?":
		fmt.Fprintln(p.out, playHelp)

	case "quit", "q", "exit":
		return true

	default:
		fmt.Fprintf(p.out, "Unknown command %q. Type 'help' for commands.\n", cmd)
	}
	return false
}

func (p *player) selectOption(input string) {
	s := p.ctrl.State()
	seg := p.lesson.Segments[s.CurrentIndex]
	switch {
	case s.AnswersLocked:
		fmt.Fprintln(p.out, "Answers are locked.")
		return
	case !seg.IsQuiz():
		fmt.Fprintln(p.out, "This segment has no question.")
		return
	}

	key := lesson.NormalizeOptionKey(input)
	if !seg.HasOption(key) {
		fmt.Fprintf(p.out, "No option %q.\n", input)
		return
	}
	p.ctrl.SelectOption(seg.ID, key)
	fmt.Fprintf(p.out, "Selected %s.\n", key)
}

func (p *player) show() {
	s := p.ctrl.State()
	renderSegment(p.out, p.lesson, s.CurrentIndex, s.QuizState)
}

func (p *player) outline() {
	s := p.ctrl.State()
	for i, seg := range p.lesson.Segments {
		marker := " "
		switch {
		case i == s.CurrentIndex:
			marker = ">"
		case i > s.HighestUnlockedIndex:
			marker = "#"
		}
		answered := ""
		if seg.IsQuiz() {
			if _, ok := s.QuizState[seg.ID]; ok {
				answered = " (answered)"
			}
		}
		fmt.Fprintf(p.out, "%s %2d. %s%s\n", marker, i+1, seg.Title, answered)
	}
}

func (p *player) finish(snap session.Snapshot) {
	printSummary(p.out, session.Summarize(p.lesson, snap))
}

func answered(sum session.Summary) int {
	n := 0
	for _, item := range sum.Items {
		if item.Status != session.StatusUnanswered {
			n++
		}
	}
	return n
}
