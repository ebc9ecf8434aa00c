// Package session implements the lesson progress state machine: how a learner
// moves through a lesson's segments, how quiz answers are captured and locked,
// and how the starting state is reconciled from remote and local stores.
//
// The deterministic part lives in Reduce, a pure function over State. The
// Controller owns one State and executes the Effects that Reduce emits against
// the progress service and local persistence.
package session

import "maps"

// Phase is the lifecycle stage of a lesson session.
type Phase string

const (
	// PhaseLoading: reconciliation has not finished; navigation and answering are disabled.
	PhaseLoading Phase = "loading"
	// PhaseActive: the learner navigates and answers freely within the unlock frontier.
	PhaseActive Phase = "active"
	// PhaseConfirming: submission was requested and awaits explicit confirmation.
	PhaseConfirming Phase = "confirming"
	// PhaseFinalized: the learner has moved on to the summary.
	PhaseFinalized Phase = "finalized"
)

// QuizAnswer is the learner's recorded selection for one quiz segment.
type QuizAnswer struct {
	Selected    string `json:"selected"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// QuizState maps quiz segment ids to recorded answers.
type QuizState map[string]QuizAnswer

// Clone returns an independent copy. A nil map clones to an empty one.
func (q QuizState) Clone() QuizState {
	out := make(QuizState, len(q))
	maps.Copy(out, q)
	return out
}

// State is the per-lesson, per-learner session value.
//
// Invariants for a lesson with N > 0 segments:
// 0 <= CurrentIndex <= HighestUnlockedIndex <= N-1, and HighestUnlockedIndex
// never decreases. Once AnswersLocked is true QuizState is frozen.
type State struct {
	LessonID             string    `json:"lessonId"`
	CurrentIndex         int       `json:"currentIndex"`
	HighestUnlockedIndex int       `json:"highestUnlockedIndex"`
	QuizState            QuizState `json:"quizState"`
	AnswersLocked        bool      `json:"answersLocked"`
	Phase                Phase     `json:"phase"`
}

// NewState returns the defaulted state of a freshly mounted lesson view.
func NewState(lessonID string) State {
	return State{
		LessonID:  lessonID,
		QuizState: QuizState{},
		Phase:     PhaseLoading,
	}
}

func (s State) clone() State {
	s.QuizState = s.QuizState.Clone()
	return s
}

// Snapshot is the payload handed to the summary view and carried back into
// the lesson view when the learner returns from it.
type Snapshot struct {
	LessonID             string    `json:"lessonId"`
	HighestUnlockedIndex int       `json:"highestUnlockedIndex"`
	QuizState            QuizState `json:"quizState"`
	AnswersLocked        bool      `json:"answersLocked"`
}

// Snapshot returns the summary payload for s.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		LessonID:             s.LessonID,
		HighestUnlockedIndex: s.HighestUnlockedIndex,
		QuizState:            s.QuizState.Clone(),
		AnswersLocked:        s.AnswersLocked,
	}
}
