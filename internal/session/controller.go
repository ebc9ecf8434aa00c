package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-learn/internal/lesson"
)

const defaultPushTimeout = 10 * time.Second

// ControllerConfig holds dependencies for a Controller.
type ControllerConfig struct {
	Lesson      *lesson.Lesson
	Progress    ProgressService // optional; nil disables remote sync
	Local       LocalStore      // optional; nil keeps state in memory only
	Logger      *slog.Logger
	PushTimeout time.Duration // bound on each best-effort progress push (default 10s)
}

// Controller owns the State of one lesson view. Every operation is applied
// atomically; remote pushes run in the background and never roll back state.
type Controller struct {
	lesson      *lesson.Lesson
	progress    ProgressService
	local       LocalStore
	logger      *slog.Logger
	pushTimeout time.Duration

	mu     sync.Mutex
	state  State
	closed bool

	inflight sync.WaitGroup
}

// NewController creates a controller in the loading phase. Call Mount to
// reconcile the starting state.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pushTimeout := cfg.PushTimeout
	if pushTimeout == 0 {
		pushTimeout = defaultPushTimeout
	}
	return &Controller{
		lesson:      cfg.Lesson,
		progress:    cfg.Progress,
		local:       cfg.Local,
		logger:      logger.With("lesson_id", cfg.Lesson.ID),
		pushTimeout: pushTimeout,
		state:       NewState(cfg.Lesson.ID),
	}
}

// Lesson returns the lesson being viewed.
func (c *Controller) Lesson() *lesson.Lesson {
	return c.lesson
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Mount reconciles the starting state from carried, remote and local sources.
// It blocks on the remote fetch; until it returns the controller stays in the
// loading phase. A result arriving after Close is discarded.
func (c *Controller) Mount(ctx context.Context, carried *Snapshot) State {
	rec := NewReconciler(c.logger, MountProviders(c.lesson.ID, carried, c.progress, c.local)...)
	reconciled := rec.Reconcile(ctx, c.lesson)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("discarding reconciliation after close")
		return c.state.clone()
	}
	c.applyLocked(Reconciled{State: reconciled})
	c.logger.Info("lesson mounted",
		"current_index", c.state.CurrentIndex,
		"highest_unlocked_index", c.state.HighestUnlockedIndex,
		"answers_locked", c.state.AnswersLocked,
	)
	return c.state.clone()
}

// GoToSegment moves to index if it lies within the unlock frontier.
func (c *Controller) GoToSegment(index int) State {
	s, _ := c.Dispatch(GoTo{Index: index})
	return s
}

// Advance moves to the next segment, unlocking it if necessary.
func (c *Controller) Advance() State {
	s, _ := c.Dispatch(Advance{})
	return s
}

// Back moves to the previous segment.
func (c *Controller) Back() State {
	s, _ := c.Dispatch(Back{})
	return s
}

// SelectOption records an answer. It is a no-op once answers are locked.
func (c *Controller) SelectOption(segmentID, key string) State {
	s, _ := c.Dispatch(SelectOption{SegmentID: segmentID, Key: key})
	return s
}

// RequestSubmit starts submission. When answers are already locked it goes
// straight to the summary and returns its snapshot with ok=true.
func (c *Controller) RequestSubmit() (Snapshot, bool) {
	_, effects := c.Dispatch(RequestSubmit{})
	return summaryOf(effects)
}

// ConfirmSubmit commits a pending submission, locking answers, and returns
// the finalized snapshot. ok is false when no submission was pending.
func (c *Controller) ConfirmSubmit() (Snapshot, bool) {
	_, effects := c.Dispatch(ConfirmSubmit{})
	return summaryOf(effects)
}

// CancelSubmit abandons a pending submission.
func (c *Controller) CancelSubmit() State {
	s, _ := c.Dispatch(CancelSubmit{})
	return s
}

// Dispatch applies a, runs its effects and returns the resulting state.
func (c *Controller) Dispatch(a Action) (State, []Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.state.clone(), nil
	}
	effects := c.applyLocked(a)
	return c.state.clone(), effects
}

// Close detaches the controller. Late reconciliation results are dropped and
// further operations are no-ops. Pushes already in flight are left to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Wait blocks until background progress pushes have finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) applyLocked(a Action) []Effect {
	next, effects := Reduce(c.lesson, c.state, a)
	c.state = next
	for _, e := range effects {
		c.run(e)
	}
	return effects
}

func (c *Controller) run(e Effect) {
	switch e := e.(type) {
	case PushProgress:
		c.push(e)
	case SaveQuizState:
		if c.local != nil {
			c.local.SaveQuizState(context.Background(), e.LessonID, e.QuizState)
		}
	case SaveAnswersLocked:
		if c.local != nil {
			c.local.SaveAnswersLocked(context.Background(), e.LessonID, e.Locked)
		}
	case ShowSummary:
		// Returned to the caller.
	}
}

func (c *Controller) push(e PushProgress) {
	if c.progress == nil {
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.pushTimeout)
		defer cancel()
		if err := c.progress.SaveProgress(ctx, e.LessonID, e.Index); err != nil {
			c.logger.Warn("sync progress failed", "index", e.Index, "error", err)
			return
		}
		c.logger.Debug("progress synced", "index", e.Index)
	}()
}

func summaryOf(effects []Effect) (Snapshot, bool) {
	for _, e := range effects {
		if s, ok := e.(ShowSummary); ok {
			return s.Snapshot, true
		}
	}
	return Snapshot{}, false
}
