package session_test

import (
	"context"
	"errors"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/storage"
)

var errNetwork = errors.New("dial tcp: connection refused")

// threeSegmentLesson is [lecture, quiz(answer=B), lecture].
func threeSegmentLesson() *lesson.Lesson {
	return &lesson.Lesson{
		ID:    "nn",
		Title: "Neural Networks 101",
		Segments: []lesson.Segment{
			{ID: "intro", Type: lesson.SegmentLecture, Title: "Intro"},
			{
				ID:       "seg2",
				Type:     lesson.SegmentQuiz,
				Title:    "Why was progress slow?",
				Question: "What held early networks back?",
				Options: []lesson.Option{
					{Key: "A", Text: "Wrong formulas"},
					{Key: "B", Text: "Not enough compute"},
					{Key: "C", Text: "No interest"},
				},
				Answer:      "B",
				Explanation: "Compute was the bottleneck.",
			},
			{ID: "outro", Type: lesson.SegmentLecture, Title: "Wrap up"},
		},
	}
}

// fakeProgress is an in-memory ProgressService that records pushes.
type fakeProgress struct {
	mu      sync.Mutex
	index   int
	found   bool
	getErr  error
	saveErr error
	saves   []int
	gets    int
}

func (f *fakeProgress) GetProgress(_ context.Context, _ string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return 0, false, f.getErr
	}
	return f.index, f.found, nil
}

func (f *fakeProgress) SaveProgress(_ context.Context, _ string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, index)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.index = max(f.index, index)
	f.found = true
	return nil
}

func (f *fakeProgress) Saves() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int{}, f.saves...)
}

func (f *fakeProgress) Gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// brokenKV fails every operation, like storage that is disabled or full.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, error) { return "", errors.New("storage disabled") }
func (brokenKV) Set(context.Context, string, string) error   { return errors.New("quota exceeded") }

var _ storage.KV = brokenKV{}
