package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/brainbow/syncd/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadTasks(t *testing.T) {
	store := newTestStore(t)

	before := time.Now().Add(-time.Second)
	tasks := []domain.Task{
		{ID: "t1", UserID: "u1", Title: "first"},
		{ID: "t2", UserID: "u1", Title: "second", Completed: true},
	}
	if err := store.SaveTasks("u1", tasks); err != nil {
		t.Fatalf("save tasks: %v", err)
	}

	loaded, err := store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(loaded))
	}
	if loaded[0].ID != "t1" || loaded[1].ID != "t2" {
		t.Fatalf("expected snapshot order preserved, got %q, %q", loaded[0].ID, loaded[1].ID)
	}
	if !loaded[1].Completed {
		t.Fatalf("expected completion flag to round-trip")
	}

	stamp, err := store.LastSyncedAt("u1")
	if err != nil {
		t.Fatalf("last synced: %v", err)
	}
	if stamp.Before(before) {
		t.Fatalf("expected sync stamp after %v, got %v", before, stamp)
	}
}

func TestSaveTasksReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveTasks("u1", []domain.Task{{ID: "old", UserID: "u1", Title: "old"}}); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	if err := store.SaveTasks("u1", []domain.Task{{ID: "new", UserID: "u1", Title: "new"}}); err != nil {
		t.Fatalf("save tasks: %v", err)
	}

	loaded, err := store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "new" {
		t.Fatalf("expected snapshot to be replaced wholesale, got %+v", loaded)
	}
}

func TestLoadTasksEmptyUser(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadTasks("nobody")
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty snapshot, got %d tasks", len(loaded))
	}

	stamp, err := store.LastSyncedAt("nobody")
	if err != nil {
		t.Fatalf("last synced: %v", err)
	}
	if !stamp.IsZero() {
		t.Fatalf("expected zero stamp for unknown user, got %v", stamp)
	}
}

func TestPendingLogIsFIFO(t *testing.T) {
	store := newTestStore(t)

	ops := []domain.ChangeOperation{
		domain.ChangeCreate,
		domain.ChangeUpdate,
		domain.ChangeDelete,
	}
	for i, op := range ops {
		err := store.AppendPending("u1", domain.PendingChange{
			Operation: op,
			TaskID:    "t1",
			Timestamp: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	pending, err := store.LoadPending("u1")
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(pending))
	}
	for i, op := range ops {
		if pending[i].Operation != op {
			t.Fatalf("entry %d: expected %q, got %q", i, op, pending[i].Operation)
		}
		if pending[i].ID == "" {
			t.Fatalf("entry %d: expected an assigned id", i)
		}
	}

	size, err := store.PendingSize("u1")
	if err != nil {
		t.Fatalf("pending size: %v", err)
	}
	if size != 3 {
		t.Fatalf("expected size 3, got %d", size)
	}
}

func TestRemovePendingLeavesRestInOrder(t *testing.T) {
	store := newTestStore(t)

	for _, taskID := range []string{"a", "b", "c"} {
		err := store.AppendPending("u1", domain.PendingChange{
			Operation: domain.ChangeUpdate,
			TaskID:    taskID,
		})
		if err != nil {
			t.Fatalf("append %s: %v", taskID, err)
		}
	}

	pending, err := store.LoadPending("u1")
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if err := store.RemovePending("u1", pending[1].ID); err != nil {
		t.Fatalf("remove pending: %v", err)
	}

	remaining, err := store.LoadPending("u1")
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(remaining))
	}
	if remaining[0].TaskID != "a" || remaining[1].TaskID != "c" {
		t.Fatalf("expected a then c, got %q then %q", remaining[0].TaskID, remaining[1].TaskID)
	}
}

func TestClearPending(t *testing.T) {
	store := newTestStore(t)

	if err := store.AppendPending("u1", domain.PendingChange{Operation: domain.ChangeDelete, TaskID: "t1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.ClearPending("u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	size, err := store.PendingSize("u1")
	if err != nil {
		t.Fatalf("pending size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected empty log, got %d", size)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveTasks("alice", []domain.Task{{ID: "a1", UserID: "alice", Title: "mine"}}); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	if err := store.AppendPending("alice", domain.PendingChange{Operation: domain.ChangeCreate, TaskID: "a1"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	tasks, err := store.LoadTasks("bob")
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected bob to see no tasks, got %d", len(tasks))
	}
	size, err := store.PendingSize("bob")
	if err != nil {
		t.Fatalf("pending size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected bob's log to be empty, got %d", size)
	}
}
