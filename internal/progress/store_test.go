package progress_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func newSQLiteStore(t *testing.T) *progress.SQLiteStore {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := progress.NewSQLiteStore(t.Context(), db)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	return store
}

// testStoreContract exercises behaviour every Store must share.
func testStoreContract(t *testing.T, store progress.Store) {
	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		_, err := store.Get(ctx, "alice", "nn")
		if !errors.Is(err, progress.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("save then get", func(t *testing.T) {
		rec, err := store.Save(ctx, "alice", "nn", 3)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if rec.CurrentIndex != 3 || rec.UpdatedAt.IsZero() {
			t.Errorf("Save() = %+v", rec)
		}

		got, err := store.Get(ctx, "alice", "nn")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.CurrentIndex != 3 || got.LessonID != "nn" {
			t.Errorf("Get() = %+v, want index 3", got)
		}
	})

	t.Run("never regresses", func(t *testing.T) {
		rec, err := store.Save(ctx, "alice", "nn", 1)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if rec.CurrentIndex != 3 {
			t.Errorf("Save(1) after 3 = %d, want 3", rec.CurrentIndex)
		}

		rec, _ = store.Save(ctx, "alice", "nn", 5)
		if rec.CurrentIndex != 5 {
			t.Errorf("Save(5) = %d, want 5", rec.CurrentIndex)
		}
	})

	t.Run("scoped per learner", func(t *testing.T) {
		if _, err := store.Get(ctx, "bob", "nn"); !errors.Is(err, progress.ErrNotFound) {
			t.Errorf("bob sees alice's progress: %v", err)
		}
	})

	t.Run("list sorted by lesson", func(t *testing.T) {
		if _, err := store.Save(ctx, "alice", "lr", 0); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := store.Save(ctx, "bob", "cv", 2); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.List(ctx, "alice")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 || got[0].LessonID != "lr" || got[1].LessonID != "nn" {
			t.Errorf("List() = %+v, want [lr nn]", got)
		}
	})

	t.Run("health", func(t *testing.T) {
		if err := store.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, progress.NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	testStoreContract(t, newSQLiteStore(t))
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	if _, err := progress.NewSQLiteStore(t.Context(), nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := progress.NewPostgresStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
