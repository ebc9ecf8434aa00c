// Package progress implements the Progress Service: the server-side store of
// per-learner unlock indices, its HTTP API, and the client used by lesson
// sessions to mirror their frontier remotely.
package progress

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no progress has been recorded.
	ErrNotFound = errors.New("progress not found")
	// ErrUnauthorized is returned when a request carries no valid credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Record is the stored unlock index of one learner in one lesson.
type Record struct {
	LearnerID    string    `json:"-"`
	LessonID     string    `json:"lessonId"`
	CurrentIndex int       `json:"currentIndex"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store persists progress records. Save never lowers a stored index.
type Store interface {
	Get(ctx context.Context, learnerID, lessonID string) (Record, error)
	Save(ctx context.Context, learnerID, lessonID string, index int) (Record, error)
	List(ctx context.Context, learnerID string) ([]Record, error)
	HealthCheck(ctx context.Context) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]Record
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, learnerID, lessonID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordKey(learnerID, lessonID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Save(_ context.Context, learnerID, lessonID string, index int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(learnerID, lessonID)
	rec, ok := s.records[key]
	if !ok {
		rec = Record{LearnerID: learnerID, LessonID: lessonID, CurrentIndex: index}
	}
	rec.CurrentIndex = max(rec.CurrentIndex, index)
	rec.UpdatedAt = s.now()
	s.records[key] = rec
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context, learnerID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, rec := range s.records {
		if rec.LearnerID == learnerID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.LessonID, b.LessonID) })
	return out, nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

func recordKey(learnerID, lessonID string) string {
	return learnerID + "\x00" + lessonID
}
