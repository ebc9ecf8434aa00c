package session

import (
	"context"
	"log/slog"

	"github.com/p-n-ai/pai-learn/internal/lesson"
)

// Field is a bit set naming the parts of State a Provider can supply.
type Field uint8

const (
	FieldIndex Field = 1 << iota
	FieldQuizState
	FieldAnswersLocked

	FieldAll = FieldIndex | FieldQuizState | FieldAnswersLocked
)

// Partial is an optionally-populated State. Nil fields are absent.
type Partial struct {
	HighestUnlockedIndex *int
	CurrentIndex         *int
	QuizState            QuizState
	AnswersLocked        *bool
}

func (p Partial) fields() Field {
	var f Field
	if p.HighestUnlockedIndex != nil {
		f |= FieldIndex
	}
	if p.QuizState != nil {
		f |= FieldQuizState
	}
	if p.AnswersLocked != nil {
		f |= FieldAnswersLocked
	}
	return f
}

// merge fills fields absent from p with those present in other.
func (p Partial) merge(other Partial) Partial {
	if p.HighestUnlockedIndex == nil && other.HighestUnlockedIndex != nil {
		p.HighestUnlockedIndex = other.HighestUnlockedIndex
		p.CurrentIndex = other.CurrentIndex
	}
	if p.QuizState == nil && other.QuizState != nil {
		p.QuizState = other.QuizState.Clone()
	}
	if p.AnswersLocked == nil && other.AnswersLocked != nil {
		p.AnswersLocked = other.AnswersLocked
	}
	return p
}

// resolve turns the folded partial into a State, defaulting absent fields to
// the safe minimum and clamping indices into the lesson.
func (p Partial) resolve(l *lesson.Lesson) State {
	s := NewState(l.ID)
	if p.HighestUnlockedIndex != nil {
		s.HighestUnlockedIndex = *p.HighestUnlockedIndex
		s.CurrentIndex = *p.HighestUnlockedIndex
		if p.CurrentIndex != nil {
			s.CurrentIndex = *p.CurrentIndex
		}
	}
	if p.QuizState != nil {
		s.QuizState = p.QuizState.Clone()
	}
	if p.AnswersLocked != nil {
		s.AnswersLocked = *p.AnswersLocked
	}
	return normalize(l, s)
}

// Provider is one source of starting state.
type Provider interface {
	Name() string
	// Fields reports what the provider can supply. A provider is skipped when
	// every one of its fields has already been supplied by an earlier provider.
	Fields() Field
	// Provide returns whatever the source currently holds. An error means the
	// source is unavailable and is treated as supplying nothing.
	Provide(ctx context.Context) (Partial, error)
}

// Reconciler folds an ordered provider chain into a State, first present wins.
type Reconciler struct {
	providers []Provider
	logger    *slog.Logger
}

// NewReconciler creates a reconciler over providers in priority order.
func NewReconciler(logger *slog.Logger, providers ...Provider) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{providers: providers, logger: logger}
}

// Reconcile queries providers in order and resolves the result against l.
func (r *Reconciler) Reconcile(ctx context.Context, l *lesson.Lesson) State {
	var acc Partial
	for _, p := range r.providers {
		want := p.Fields()
		if acc.fields()&want == want {
			continue
		}
		part, err := p.Provide(ctx)
		if err != nil {
			r.logger.Warn("progress source unavailable, falling back",
				"source", p.Name(),
				"lesson_id", l.ID,
				"error", err,
			)
			continue
		}
		acc = acc.merge(restrict(part, want))
	}
	return acc.resolve(l)
}

func restrict(p Partial, f Field) Partial {
	if f&FieldIndex == 0 {
		p.HighestUnlockedIndex, p.CurrentIndex = nil, nil
	}
	if f&FieldQuizState == 0 {
		p.QuizState = nil
	}
	if f&FieldAnswersLocked == 0 {
		p.AnswersLocked = nil
	}
	return p
}

// ProgressReader reads the furthest unlocked index for a lesson.
type ProgressReader interface {
	// GetProgress returns found=false when the service holds no progress.
	GetProgress(ctx context.Context, lessonID string) (index int, found bool, err error)
}

// ProgressService is the remote progress store.
type ProgressService interface {
	ProgressReader
	SaveProgress(ctx context.Context, lessonID string, index int) error
}

// CarriedProvider supplies state passed along by in-session navigation, such
// as returning from the summary view. A nil snapshot supplies nothing.
type CarriedProvider struct {
	Snapshot *Snapshot
}

func (CarriedProvider) Name() string  { return "carried" }
func (CarriedProvider) Fields() Field { return FieldAll }

func (p CarriedProvider) Provide(context.Context) (Partial, error) {
	if p.Snapshot == nil {
		return Partial{}, nil
	}
	idx := p.Snapshot.HighestUnlockedIndex
	locked := p.Snapshot.AnswersLocked
	part := Partial{
		HighestUnlockedIndex: &idx,
		CurrentIndex:         &idx,
		AnswersLocked:        &locked,
	}
	if p.Snapshot.QuizState != nil {
		part.QuizState = p.Snapshot.QuizState.Clone()
	}
	return part, nil
}

// RemoteProvider supplies the unlock index from the progress service. The
// current index starts at the same position. With EmptyAsStart set, a reachable
// service holding no progress supplies index 0 instead of nothing.
type RemoteProvider struct {
	Reader       ProgressReader
	LessonID     string
	EmptyAsStart bool
}

func (RemoteProvider) Name() string  { return "remote" }
func (RemoteProvider) Fields() Field { return FieldIndex }

func (p RemoteProvider) Provide(ctx context.Context) (Partial, error) {
	if p.Reader == nil {
		return Partial{}, nil
	}
	idx, found, err := p.Reader.GetProgress(ctx, p.LessonID)
	if err != nil {
		return Partial{}, err
	}
	if !found || idx < 0 {
		if !p.EmptyAsStart {
			return Partial{}, nil
		}
		idx = 0
	}
	return Partial{HighestUnlockedIndex: &idx, CurrentIndex: &idx}, nil
}

// LocalProvider supplies quiz answers and the lock flag from local persistence.
type LocalProvider struct {
	Store    LocalStore
	LessonID string
	Only     Field
}

func (LocalProvider) Name() string { return "local" }

func (p LocalProvider) Fields() Field {
	if p.Only != 0 {
		return p.Only
	}
	return FieldQuizState | FieldAnswersLocked
}

func (p LocalProvider) Provide(ctx context.Context) (Partial, error) {
	if p.Store == nil {
		return Partial{}, nil
	}
	var part Partial
	if quiz, ok := p.Store.LoadQuizState(ctx, p.LessonID); ok {
		part.QuizState = quiz
	}
	if locked, ok := p.Store.LoadAnswersLocked(ctx, p.LessonID); ok {
		part.AnswersLocked = &locked
	}
	return part, nil
}

// DefaultProvider supplies a fixed unlock index.
type DefaultProvider struct {
	Index int
}

func (DefaultProvider) Name() string  { return "default" }
func (DefaultProvider) Fields() Field { return FieldIndex }

func (p DefaultProvider) Provide(context.Context) (Partial, error) {
	idx := p.Index
	return Partial{HighestUnlockedIndex: &idx, CurrentIndex: &idx}, nil
}

// MountProviders is the chain used when a lesson view opens: carried state,
// then remote progress, then local persistence. Anything still absent falls
// back to index 0, no answers and unlocked.
func MountProviders(lessonID string, carried *Snapshot, remote ProgressReader, local LocalStore) []Provider {
	return []Provider{
		CarriedProvider{Snapshot: carried},
		RemoteProvider{Reader: remote, LessonID: lessonID},
		LocalProvider{Store: local, LessonID: lessonID},
	}
}

// SummaryProviders is the chain used when the summary view opens. Remote
// progress outranks the carried index and a reachable service with no recorded
// progress counts as the first segment. The persisted lock flag outranks the
// carried one. Only when the service is unavailable does the lesson count as
// completed.
func SummaryProviders(l *lesson.Lesson, carried *Snapshot, remote ProgressReader, local LocalStore) []Provider {
	return []Provider{
		RemoteProvider{Reader: remote, LessonID: l.ID, EmptyAsStart: true},
		LocalProvider{Store: local, LessonID: l.ID, Only: FieldAnswersLocked},
		CarriedProvider{Snapshot: carried},
		LocalProvider{Store: local, LessonID: l.ID, Only: FieldQuizState},
		DefaultProvider{Index: max(l.LastIndex(), 0)},
	}
}
