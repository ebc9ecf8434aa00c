package session_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/session"
	"github.com/p-n-ai/pai-learn/internal/storage"
)

func newTestController(t *testing.T, remote *fakeProgress, kv storage.KV) *session.Controller {
	t.Helper()
	var local session.LocalStore
	if kv != nil {
		local = session.NewLocalCache(kv, nil)
	}
	var progress session.ProgressService
	if remote != nil {
		progress = remote
	}
	return session.NewController(session.ControllerConfig{
		Lesson:   threeSegmentLesson(),
		Progress: progress,
		Local:    local,
	})
}

func TestController_FullLesson(t *testing.T) {
	remote := &fakeProgress{}
	kv := storage.NewMemoryKV()
	c := newTestController(t, remote, kv)

	if c.State().Phase != session.PhaseLoading {
		t.Fatalf("Phase = %q before mount, want loading", c.State().Phase)
	}
	if s := c.Advance(); s.CurrentIndex != 0 {
		t.Error("Advance() should be ignored while loading")
	}

	s := c.Mount(context.Background(), nil)
	if s.Phase != session.PhaseActive || s.CurrentIndex != 0 {
		t.Fatalf("after mount = %+v", s)
	}

	c.Advance()
	c.Wait()
	c.SelectOption("seg2", "B")
	s = c.Advance()
	c.Wait()
	if s.CurrentIndex != 2 || s.HighestUnlockedIndex != 2 {
		t.Fatalf("after advances = %d/%d, want 2/2", s.CurrentIndex, s.HighestUnlockedIndex)
	}

	if _, ok := c.RequestSubmit(); ok {
		t.Fatal("RequestSubmit() should wait for confirmation on an unlocked lesson")
	}
	snap, ok := c.ConfirmSubmit()
	if !ok {
		t.Fatal("ConfirmSubmit() should return the summary snapshot")
	}
	c.Wait()

	if !snap.AnswersLocked || snap.HighestUnlockedIndex != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if got := remote.Saves(); !reflect.DeepEqual(got, []int{1, 2, 2}) {
		t.Errorf("progress pushes = %v, want [1 2 2]", got)
	}

	locked, _ := kv.Get(context.Background(), session.AnswersLockedKey("nn"))
	if locked != "true" {
		t.Errorf("lock flag = %q, want true", locked)
	}
	if _, err := kv.Get(context.Background(), session.QuizStateKey("nn")); err != nil {
		t.Errorf("quiz state not persisted: %v", err)
	}

	sum := session.Summarize(c.Lesson(), snap)
	if sum.TotalScore != 10 || sum.CorrectCount != 1 {
		t.Errorf("summary score = %d (%d correct), want 10 (1)", sum.TotalScore, sum.CorrectCount)
	}
}

func TestController_RemoteWriteFailureKeepsLocalState(t *testing.T) {
	remote := &fakeProgress{saveErr: errNetwork}
	c := newTestController(t, remote, nil)
	c.Mount(context.Background(), nil)

	s := c.Advance()
	c.Wait()

	if s.HighestUnlockedIndex != 1 || c.State().HighestUnlockedIndex != 1 {
		t.Errorf("frontier = %d, want 1 despite push failure", c.State().HighestUnlockedIndex)
	}
	if len(remote.Saves()) != 1 {
		t.Errorf("pushes = %v, want one attempt", remote.Saves())
	}
}

func TestController_NoRemoteOrLocal(t *testing.T) {
	c := newTestController(t, nil, nil)
	c.Mount(context.Background(), nil)

	c.Advance()
	s := c.SelectOption("seg2", "A")
	if s.QuizState["seg2"].Selected != "A" {
		t.Errorf("in-memory selection lost: %+v", s.QuizState)
	}
}

func TestController_BrokenLocalStorage(t *testing.T) {
	c := newTestController(t, &fakeProgress{}, brokenKV{})
	c.Mount(context.Background(), nil)

	c.Advance()
	s := c.SelectOption("seg2", "B")
	if !s.QuizState["seg2"].IsCorrect {
		t.Error("selection should still apply in memory when storage fails")
	}
	c.Wait()
}

func TestController_ResumeAfterReload(t *testing.T) {
	remote := &fakeProgress{}
	kv := storage.NewMemoryKV()

	first := newTestController(t, remote, kv)
	first.Mount(context.Background(), nil)
	first.Advance()
	first.SelectOption("seg2", "C")
	first.Wait()
	first.Close()

	second := newTestController(t, remote, kv)
	s := second.Mount(context.Background(), nil)
	if s.HighestUnlockedIndex != 1 || s.CurrentIndex != 1 {
		t.Errorf("resumed = %d/%d, want 1/1", s.CurrentIndex, s.HighestUnlockedIndex)
	}
	if s.QuizState["seg2"].Selected != "C" {
		t.Errorf("resumed quiz state = %+v", s.QuizState)
	}
}

func TestController_LockedLessonGoesStraightToSummary(t *testing.T) {
	remote := &fakeProgress{index: 2, found: true}
	kv := storage.NewMemoryKV()
	local := session.NewLocalCache(kv, nil)
	local.SaveAnswersLocked(context.Background(), "nn", true)

	c := newTestController(t, remote, kv)
	c.Mount(context.Background(), nil)

	snap, ok := c.RequestSubmit()
	if !ok || !snap.AnswersLocked {
		t.Fatalf("RequestSubmit() on locked lesson = %+v, %v", snap, ok)
	}
	c.Wait()
	if len(remote.Saves()) != 0 {
		t.Errorf("locked resubmit pushed progress %v, want none", remote.Saves())
	}
}

func TestController_CloseDiscardsLateMount(t *testing.T) {
	c := newTestController(t, &fakeProgress{index: 2, found: true}, nil)
	c.Close()

	s := c.Mount(context.Background(), nil)
	if s.Phase != session.PhaseLoading || s.HighestUnlockedIndex != 0 {
		t.Errorf("mount after close applied state: %+v", s)
	}
	if s := c.Advance(); s.CurrentIndex != 0 {
		t.Error("operations after close should be no-ops")
	}
}

func TestController_StateIsACopy(t *testing.T) {
	c := newTestController(t, nil, nil)
	c.Mount(context.Background(), nil)
	c.Advance()
	c.SelectOption("seg2", "B")

	s := c.State()
	s.QuizState["seg2"] = session.QuizAnswer{Selected: "A"}

	if c.State().QuizState["seg2"].Selected != "B" {
		t.Error("mutating a returned State leaked into the controller")
	}
}
