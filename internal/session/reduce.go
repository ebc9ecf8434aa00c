package session

import "github.com/p-n-ai/pai-learn/internal/lesson"

// Reduce applies a to s and returns the next state with the effects to run.
// It performs no I/O and never mutates s. Invalid actions return s unchanged
// with no effects.
func Reduce(l *lesson.Lesson, s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case Reconciled:
		return reconciled(l, s, a.State)
	case GoTo:
		return goTo(l, s, a.Index)
	case Back:
		return goTo(l, s, s.CurrentIndex-1)
	case Advance:
		return advance(l, s)
	case SelectOption:
		return selectOption(l, s, a.SegmentID, a.Key)
	case RequestSubmit:
		return requestSubmit(s)
	case ConfirmSubmit:
		return confirmSubmit(l, s)
	case CancelSubmit:
		if s.Phase != PhaseConfirming {
			return s, nil
		}
		next := s.clone()
		next.Phase = PhaseActive
		return next, nil
	default:
		return s, nil
	}
}

func reconciled(l *lesson.Lesson, s, incoming State) (State, []Effect) {
	if s.Phase != PhaseLoading {
		return s, nil
	}
	next := normalize(l, incoming)
	next.LessonID = s.LessonID
	next.Phase = PhaseActive
	return next, nil
}

func goTo(l *lesson.Lesson, s State, target int) (State, []Effect) {
	if s.Phase != PhaseActive || l.Len() == 0 {
		return s, nil
	}
	target = clamp(target, 0, l.LastIndex())
	if target > s.HighestUnlockedIndex || target == s.CurrentIndex {
		return s, nil
	}
	next := s.clone()
	next.CurrentIndex = target
	return next, nil
}

func advance(l *lesson.Lesson, s State) (State, []Effect) {
	if s.Phase != PhaseActive || l.Len() == 0 {
		return s, nil
	}
	nextIndex := s.CurrentIndex + 1
	if nextIndex > l.LastIndex() {
		return s, nil
	}

	next := s.clone()
	var effects []Effect
	if nextIndex > next.HighestUnlockedIndex {
		next.HighestUnlockedIndex = min(nextIndex, l.LastIndex())
		effects = append(effects, PushProgress{LessonID: s.LessonID, Index: next.HighestUnlockedIndex})
	}
	next.CurrentIndex = nextIndex
	return next, effects
}

func selectOption(l *lesson.Lesson, s State, segmentID, key string) (State, []Effect) {
	if s.AnswersLocked || s.Phase != PhaseActive {
		return s, nil
	}
	seg, idx, ok := l.SegmentByID(segmentID)
	if !ok || !seg.IsQuiz() || !seg.HasOption(key) {
		return s, nil
	}
	// Segments past the frontier have never been shown.
	if idx > s.HighestUnlockedIndex {
		return s, nil
	}

	next := s.clone()
	next.QuizState[segmentID] = QuizAnswer{
		Selected:    key,
		IsCorrect:   key == seg.Answer,
		Explanation: seg.Explanation,
	}
	return next, []Effect{SaveQuizState{LessonID: s.LessonID, QuizState: next.QuizState.Clone()}}
}

func requestSubmit(s State) (State, []Effect) {
	switch {
	case s.Phase == PhaseLoading || s.Phase == PhaseConfirming:
		return s, nil
	case s.AnswersLocked:
		next := s.clone()
		next.Phase = PhaseFinalized
		return next, []Effect{ShowSummary{Snapshot: next.Snapshot()}}
	case s.Phase == PhaseActive:
		next := s.clone()
		next.Phase = PhaseConfirming
		return next, nil
	default:
		return s, nil
	}
}

func confirmSubmit(l *lesson.Lesson, s State) (State, []Effect) {
	if s.Phase != PhaseConfirming {
		if s.AnswersLocked {
			return requestSubmit(s)
		}
		return s, nil
	}

	next := s.clone()
	next.HighestUnlockedIndex = max(next.HighestUnlockedIndex, l.LastIndex(), 0)
	next.AnswersLocked = true
	next.Phase = PhaseFinalized

	var effects []Effect
	if l.Len() > 0 {
		effects = append(effects, PushProgress{LessonID: s.LessonID, Index: next.HighestUnlockedIndex})
	}
	return next, append(effects,
		SaveQuizState{LessonID: s.LessonID, QuizState: next.QuizState.Clone()},
		SaveAnswersLocked{LessonID: s.LessonID, Locked: true},
		ShowSummary{Snapshot: next.Snapshot()},
	)
}

// normalize enforces the index invariants against l.
func normalize(l *lesson.Lesson, s State) State {
	s = s.clone()
	last := max(l.LastIndex(), 0)
	s.HighestUnlockedIndex = clamp(s.HighestUnlockedIndex, 0, last)
	s.CurrentIndex = clamp(s.CurrentIndex, 0, s.HighestUnlockedIndex)
	return s
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
