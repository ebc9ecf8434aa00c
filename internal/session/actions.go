package session

// Action is an input to Reduce.
type Action interface {
	isAction()
}

// GoTo jumps to a segment, e.g. from the outline.
type GoTo struct{ Index int }

// Advance moves to the next segment, raising the unlock frontier if needed.
type Advance struct{}

// Back moves to the previous segment.
type Back struct{}

// SelectOption records an answer for a quiz segment.
type SelectOption struct {
	SegmentID string
	Key       string
}

// RequestSubmit asks to finalize the lesson. It needs a ConfirmSubmit to take effect.
type RequestSubmit struct{}

// ConfirmSubmit commits a pending submission.
type ConfirmSubmit struct{}

// CancelSubmit abandons a pending submission.
type CancelSubmit struct{}

// Reconciled installs the state produced by a Reconciler. It is ignored
// unless the session is still loading.
type Reconciled struct{ State State }

func (GoTo) isAction()          {}
func (Advance) isAction()       {}
func (Back) isAction()          {}
func (SelectOption) isAction()  {}
func (RequestSubmit) isAction() {}
func (ConfirmSubmit) isAction() {}
func (CancelSubmit) isAction()  {}
func (Reconciled) isAction()    {}

// Effect is a side effect requested by Reduce.
type Effect interface {
	isEffect()
}

// PushProgress mirrors an unlock index to the progress service. Best effort.
type PushProgress struct {
	LessonID string
	Index    int
}

// SaveQuizState writes the full quiz map to local persistence.
type SaveQuizState struct {
	LessonID  string
	QuizState QuizState
}

// SaveAnswersLocked writes the answer lock flag to local persistence.
type SaveAnswersLocked struct {
	LessonID string
	Locked   bool
}

// ShowSummary hands the finalized snapshot to the summary view.
type ShowSummary struct {
	Snapshot Snapshot
}

func (PushProgress) isEffect()      {}
func (SaveQuizState) isEffect()     {}
func (SaveAnswersLocked) isEffect() {}
func (ShowSummary) isEffect()       {}
