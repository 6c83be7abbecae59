package sync

import (
	"context"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/internal/infrastructure/cache"
	"github.com/brainbow/syncd/pkg/retry"
)

// fakeGateway is an in-memory TaskGateway with injectable failures.
type fakeGateway struct {
	mu    stdsync.Mutex
	rows  map[string]domain.Task
	order []string

	insertErr error
	updateErr error
	deleteErr error
	selectErr error

	// failuresLeft makes the injected errors transient: each failing call
	// decrements it and the errors clear at zero.
	failuresLeft int

	rewriteID func(clientID string) string

	// updateHook runs at the top of Update, outside the gateway lock, so
	// tests can stall a remote round-trip mid-flight.
	updateHook func()

	inserts int
	updates int
	deletes int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{rows: make(map[string]domain.Task)}
}

func (g *fakeGateway) consumeFailure() {
	if g.failuresLeft > 0 {
		g.failuresLeft--
		if g.failuresLeft == 0 {
			g.insertErr = nil
			g.updateErr = nil
			g.deleteErr = nil
			g.selectErr = nil
		}
	}
}

func (g *fakeGateway) Select(ctx context.Context, userID string) ([]domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.selectErr != nil {
		err := g.selectErr
		g.consumeFailure()
		return nil, err
	}
	var out []domain.Task
	for i := len(g.order) - 1; i >= 0; i-- {
		if row, ok := g.rows[g.order[i]]; ok && row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (g *fakeGateway) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inserts++
	if g.insertErr != nil {
		err := g.insertErr
		g.consumeFailure()
		return nil, err
	}
	row := *task
	if g.rewriteID != nil {
		row.ID = g.rewriteID(row.ID)
	}
	if _, exists := g.rows[row.ID]; exists {
		return nil, domain.NewError(domain.ErrCodeConflict, "row already exists")
	}
	g.rows[row.ID] = row
	g.order = append(g.order, row.ID)
	return &row, nil
}

func (g *fakeGateway) Update(ctx context.Context, id, userID string, update domain.TaskUpdate) (*domain.Task, error) {
	if g.updateHook != nil {
		g.updateHook()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates++
	if g.updateErr != nil {
		err := g.updateErr
		g.consumeFailure()
		return nil, err
	}
	row, ok := g.rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	update.Apply(&row, userID, time.Now())
	g.rows[id] = row
	return &row, nil
}

func (g *fakeGateway) Delete(ctx context.Context, id, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes++
	if g.deleteErr != nil {
		err := g.deleteErr
		g.consumeFailure()
		return err
	}
	row, ok := g.rows[id]
	if !ok || row.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(g.rows, id)
	return nil
}

func errUnavailable() error {
	return domain.NewError(domain.ErrCodeUnavailable, "remote store unreachable")
}

type testEnv struct {
	engine  *Engine
	gateway *fakeGateway
	store   *cache.Store
	online  *bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gw := newFakeGateway()
	online := true
	env := &testEnv{gateway: gw, store: store, online: &online}
	env.engine = New(Config{
		UserID:  "u1",
		Gateway: gw,
		Cache:   store,
		Retry: &retry.Policy{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
		Online:  func() bool { return *env.online },
		Confirm: ConfirmFromContext,
	})
	return env
}

func (env *testEnv) pendingCount(t *testing.T) int {
	t.Helper()
	n, err := env.store.PendingSize("u1")
	if err != nil {
		t.Fatalf("pending size: %v", err)
	}
	return n
}

func TestCreateTaskOnline(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "buy milk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.UserID != "u1" {
		t.Fatalf("unexpected record %+v", created)
	}
	if created.Project != domain.ProjectWork || created.Priority != domain.PriorityMedium {
		t.Fatalf("expected defaults applied, got project %q priority %q", created.Project, created.Priority)
	}
	if created.Completed || created.CompletedAt != nil {
		t.Fatalf("new task must start open")
	}
	if env.pendingCount(t) != 0 {
		t.Fatalf("expected empty pending queue")
	}
	if env.gateway.inserts != 1 {
		t.Fatalf("expected 1 insert, got %d", env.gateway.inserts)
	}

	cached, err := env.store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != created.ID {
		t.Fatalf("expected cache to hold the confirmed record, got %+v", cached)
	}
}

func TestCreateTaskReconcilesServerID(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.rewriteID = func(string) string { return "server-1" }

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "renumbered"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "server-1" {
		t.Fatalf("expected server id, got %q", created.ID)
	}

	snapshot := env.engine.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected exactly one record after reconciliation, got %d", len(snapshot))
	}
	if snapshot[0].ID != "server-1" {
		t.Fatalf("expected temporary id to be re-keyed, got %q", snapshot[0].ID)
	}
}

func TestCreateTaskOfflineQueuesChange(t *testing.T) {
	env := newTestEnv(t)
	*env.online = false

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "offline"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if env.gateway.inserts != 0 {
		t.Fatalf("expected no remote call while offline")
	}
	if env.pendingCount(t) != 1 {
		t.Fatalf("expected 1 pending change, got %d", env.pendingCount(t))
	}

	pending, err := env.store.LoadPending("u1")
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if pending[0].Operation != domain.ChangeCreate || pending[0].TaskID != created.ID {
		t.Fatalf("unexpected pending entry %+v", pending[0])
	}
	buffered, err := pending[0].CreatePayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if buffered.Title != "offline" {
		t.Fatalf("expected the full record buffered, got %+v", buffered)
	}
}

func TestCreateTaskRetryExhaustionDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.insertErr = errUnavailable()
	env.gateway.failuresLeft = 100

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "flaky"})
	if err != nil {
		t.Fatalf("optimistic create must not fail on remote errors: %v", err)
	}
	if env.gateway.inserts != 3 {
		t.Fatalf("expected 3 attempts, got %d", env.gateway.inserts)
	}
	if env.pendingCount(t) != 1 {
		t.Fatalf("expected the create to be queued")
	}
	if got := env.engine.Status().State; got != StateDegraded {
		t.Fatalf("expected degraded state, got %q", got)
	}

	snapshot := env.engine.Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != created.ID {
		t.Fatalf("expected the optimistic record to survive, got %+v", snapshot)
	}
}

func TestCreateTaskRetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.insertErr = errUnavailable()
	env.gateway.failuresLeft = 2

	_, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "eventually"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if env.gateway.inserts != 3 {
		t.Fatalf("expected 3 attempts, got %d", env.gateway.inserts)
	}
	if env.pendingCount(t) != 0 {
		t.Fatalf("expected nothing queued after eventual success")
	}
	if got := env.engine.Status().State; got != StateSynced {
		t.Fatalf("expected synced state, got %q", got)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "   "}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid error for blank title, got %v", err)
	}
	if len(env.engine.Snapshot()) != 0 {
		t.Fatalf("rejected create must not touch the sequence")
	}
	if env.gateway.inserts != 0 {
		t.Fatalf("rejected create must not reach the remote")
	}
}

func TestUpdateTaskStampsCompletion(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "finish me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completed := true
	updated, err := env.engine.UpdateTask(context.Background(), created.ID, domain.TaskUpdate{Completed: &completed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Completed {
		t.Fatalf("expected completed flag set")
	}
	if updated.CompletedAt == nil || updated.CompletedBy != "u1" {
		t.Fatalf("expected completion stamp, got at=%v by=%q", updated.CompletedAt, updated.CompletedBy)
	}

	reopened := false
	updated, err = env.engine.UpdateTask(context.Background(), created.ID, domain.TaskUpdate{Completed: &reopened})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Completed || updated.CompletedAt != nil || updated.CompletedBy != "" {
		t.Fatalf("expected completion stamp cleared, got %+v", updated)
	}
}

func TestUpdateTaskUnknownID(t *testing.T) {
	env := newTestEnv(t)

	title := "nope"
	if _, err := env.engine.UpdateTask(context.Background(), uuid.NewString(), domain.TaskUpdate{Title: &title}); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestUpdateTaskOfflineBuffersStampedUpdate(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "stamp me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	*env.online = false
	completed := true
	if _, err := env.engine.UpdateTask(context.Background(), created.ID, domain.TaskUpdate{Completed: &completed}); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending, err := env.store.LoadPending("u1")
	if err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Operation != domain.ChangeUpdate {
		t.Fatalf("expected a buffered update, got %+v", pending)
	}
	update, err := pending[0].UpdatePayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	// the stamp of the original mutation must ride along for replay
	if update.CompletedAt == nil || update.CompletedBy == nil || *update.CompletedBy != "u1" {
		t.Fatalf("expected completion stamp in buffered payload, got %+v", update)
	}
}

func TestToggleCompleteRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "flip"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	toggled, err := env.engine.ToggleComplete(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed || toggled.CompletedAt == nil {
		t.Fatalf("expected completed with stamp, got %+v", toggled)
	}

	toggled, err = env.engine.ToggleComplete(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.Completed || toggled.CompletedAt != nil || toggled.CompletedBy != "" {
		t.Fatalf("expected reopened without stamp, got %+v", toggled)
	}
}

func TestDeleteTaskRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "keep me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := env.engine.DeleteTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Fatalf("expected deletion to be declined without confirmation")
	}
	if len(env.engine.Snapshot()) != 1 {
		t.Fatalf("declined deletion must not remove the task")
	}

	deleted, err = env.engine.DeleteTask(WithConfirmation(context.Background()), created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatalf("expected confirmed deletion to proceed")
	}
	if len(env.engine.Snapshot()) != 0 {
		t.Fatalf("expected the task to be removed")
	}
	if env.gateway.deletes != 1 {
		t.Fatalf("expected 1 remote delete, got %d", env.gateway.deletes)
	}
}

func TestDeleteTaskTreatsMissingRowAsSuccess(t *testing.T) {
	env := newTestEnv(t)
	*env.online = false

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "never uploaded"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	*env.online = true
	// the row never reached the remote, so the delete comes back not-found
	deleted, err := env.engine.DeleteTask(WithConfirmation(context.Background()), created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatalf("expected deletion to succeed")
	}
}

func TestLoadTasksOfflineServesCache(t *testing.T) {
	env := newTestEnv(t)

	seed := []domain.Task{{ID: "c1", UserID: "u1", Title: "cached", Project: domain.ProjectWork, Priority: domain.PriorityLow}}
	if err := env.store.SaveTasks("u1", seed); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	*env.online = false
	tasks, err := env.engine.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "c1" {
		t.Fatalf("expected the cached snapshot, got %+v", tasks)
	}
	if !env.engine.Hydrated() {
		t.Fatalf("expected hydration from cache")
	}
	if got := env.engine.Status().State; got != StateDegraded {
		t.Fatalf("expected degraded state offline, got %q", got)
	}
}

func TestLoadTasksRemoteFailureKeepsCacheAndQueue(t *testing.T) {
	env := newTestEnv(t)

	if err := env.store.SaveTasks("u1", []domain.Task{{ID: "c1", UserID: "u1", Title: "stale"}}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := env.store.AppendPending("u1", domain.PendingChange{Operation: domain.ChangeDelete, TaskID: "c9"}); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	env.gateway.selectErr = errUnavailable()
	env.gateway.failuresLeft = 100

	tasks, err := env.engine.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "c1" {
		t.Fatalf("expected the stale snapshot to survive, got %+v", tasks)
	}
	if env.pendingCount(t) != 1 {
		t.Fatalf("remote failure must not touch the pending queue")
	}
	if got := env.engine.Status().State; got != StateDegraded {
		t.Fatalf("expected degraded state, got %q", got)
	}
}

func TestLoadTasksDrainsPendingAgainstConfirmedBaseline(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.rows["r1"] = domain.Task{ID: "r1", UserID: "u1", Title: "already remote"}
	env.gateway.order = append(env.gateway.order, "r1")

	*env.online = false
	first, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "made offline"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "also offline"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if env.pendingCount(t) != 2 {
		t.Fatalf("expected 2 queued creates, got %d", env.pendingCount(t))
	}

	*env.online = true
	if _, err := env.engine.LoadTasks(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if env.pendingCount(t) != 0 {
		t.Fatalf("expected the queue drained after a successful load, got %d", env.pendingCount(t))
	}
	for _, id := range []string{first.ID, second.ID} {
		if _, ok := env.gateway.rows[id]; !ok {
			t.Fatalf("expected offline create %s replayed to the remote", id)
		}
	}

	snapshot := env.engine.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected replayed creates visible alongside the baseline, got %d tasks", len(snapshot))
	}
	if got := env.engine.Status().State; got != StateSynced {
		t.Fatalf("expected synced state, got %q", got)
	}
}

func TestLoadTasksReplacesSnapshotWholesale(t *testing.T) {
	env := newTestEnv(t)

	if err := env.store.SaveTasks("u1", []domain.Task{{ID: "stale", UserID: "u1", Title: "old"}}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	env.gateway.rows["r1"] = domain.Task{ID: "r1", UserID: "u1", Title: "remote truth"}
	env.gateway.order = append(env.gateway.order, "r1")

	tasks, err := env.engine.LoadTasks(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "r1" {
		t.Fatalf("expected the remote snapshot to replace the cache, got %+v", tasks)
	}

	cached, err := env.store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != "r1" {
		t.Fatalf("expected the cache rewritten from the remote, got %+v", cached)
	}
	if got := env.engine.Status().State; got != StateSynced {
		t.Fatalf("expected synced state, got %q", got)
	}
}

func seedCachedTasks(t *testing.T, env *testEnv, titles ...string) []domain.Task {
	t.Helper()
	now := time.Now()
	tasks := make([]domain.Task, 0, len(titles))
	for _, title := range titles {
		tasks = append(tasks, domain.Task{
			ID:        uuid.NewString(),
			UserID:    "u1",
			Title:     title,
			Project:   domain.ProjectWork,
			Priority:  domain.PriorityMedium,
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: "u1",
			UpdatedBy: "u1",
		})
	}
	if err := env.store.SaveTasks("u1", tasks); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	return tasks
}

func TestCreateTaskHydratesBeforeFirstPersist(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedCachedTasks(t, env, "water plants", "file taxes")
	*env.online = false

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "buy milk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cached, err := env.store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if len(cached) != 3 {
		t.Fatalf("expected the cache to keep earlier tasks, got %d records", len(cached))
	}
	ids := make(map[string]bool, len(cached))
	for _, task := range cached {
		ids[task.ID] = true
	}
	for _, task := range seeded {
		if !ids[task.ID] {
			t.Fatalf("cached task %q lost after create on a fresh engine", task.Title)
		}
	}
	if !ids[created.ID] {
		t.Fatalf("new task missing from the cache")
	}
	if snapshot := env.engine.Snapshot(); len(snapshot) != 3 || snapshot[0].ID != created.ID {
		t.Fatalf("expected the new task on top of the hydrated snapshot, got %+v", snapshot)
	}
}

func TestUpdateTaskFindsCachedTaskOnFreshEngine(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedCachedTasks(t, env, "water plants")
	*env.online = false

	title := "water the plants"
	updated, err := env.engine.UpdateTask(context.Background(), seeded[0].ID, domain.TaskUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("expected title %q, got %q", title, updated.Title)
	}
	if env.pendingCount(t) != 1 {
		t.Fatalf("expected the offline update buffered")
	}

	cached, err := env.store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if len(cached) != 1 || cached[0].Title != title {
		t.Fatalf("expected the cached record updated in place, got %+v", cached)
	}
}

func TestDeleteTaskFindsCachedTaskOnFreshEngine(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedCachedTasks(t, env, "water plants", "file taxes")
	*env.online = false

	removed, err := env.engine.DeleteTask(WithConfirmation(context.Background()), seeded[0].ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatalf("expected the delete applied")
	}

	cached, err := env.store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != seeded[1].ID {
		t.Fatalf("expected only the surviving task cached, got %+v", cached)
	}
}

func TestOverlappingUpdatesCommitInApplyOrder(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.engine.CreateTask(context.Background(), domain.Task{Title: "draft report"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var stallOnce stdsync.Once
	env.gateway.updateHook = func() {
		stallOnce.Do(func() {
			close(entered)
			<-release
		})
	}

	firstTitle := "draft v1"
	secondTitle := "draft v2"

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		if _, err := env.engine.UpdateTask(context.Background(), created.ID, domain.TaskUpdate{Title: &firstTitle}); err != nil {
			t.Errorf("first update: %v", err)
		}
	}()
	<-entered

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		if _, err := env.engine.UpdateTask(context.Background(), created.ID, domain.TaskUpdate{Title: &secondTitle}); err != nil {
			t.Errorf("second update: %v", err)
		}
	}()

	select {
	case <-secondDone:
		t.Fatalf("second update committed while the first still held the task")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-firstDone
	<-secondDone

	if snapshot := env.engine.Snapshot(); snapshot[0].Title != secondTitle {
		t.Fatalf("expected the later update to win, got %q", snapshot[0].Title)
	}
	cached, err := env.store.LoadTasks("u1")
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	if len(cached) != 1 || cached[0].Title != secondTitle {
		t.Fatalf("expected the later update cached, got %+v", cached)
	}
	if env.gateway.updates != 2 {
		t.Fatalf("expected both updates propagated, got %d", env.gateway.updates)
	}
}
