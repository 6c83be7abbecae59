// Package sync implements the offline-first synchronization core: optimistic
// local mutation, durable caching, retry-wrapped remote propagation and the
// pending-change queue replayed when connectivity returns.
package sync

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/internal/infrastructure/cache"
	"github.com/brainbow/syncd/pkg/events"
	"github.com/brainbow/syncd/pkg/retry"
	"github.com/brainbow/syncd/repository"
)

// State describes the engine's connectivity standing.
type State string

const (
	StateSynced   State = "synced"
	StateSyncing  State = "syncing"
	StateDegraded State = "degraded"
)

// Status is a point-in-time view of the engine for observability surfaces.
type Status struct {
	State        State     `json:"state"`
	PendingCount int       `json:"pending_count"`
	LastSyncedAt time.Time `json:"last_synced_at,omitzero"`
}

// ConfirmFunc guards destructive operations; deletion is only applied after
// it returns true.
type ConfirmFunc func(ctx context.Context, task domain.Task) bool

// OnlineFunc reports current connectivity.
type OnlineFunc func() bool

// Config wires an Engine. Gateway, Cache and UserID are required.
type Config struct {
	UserID  string
	Gateway repository.TaskGateway
	Cache   *cache.Store
	Retry   *retry.Policy
	Online  OnlineFunc
	Confirm ConfirmFunc
	Bus     *events.Bus
	Logger  *zap.Logger

	// Now is a clock override for tests.
	Now func() time.Time
}

// Engine owns the in-memory task sequence and the local cache for a single
// user. One engine per signed-in user; there is no process-wide state.
type Engine struct {
	userID  string
	gateway repository.TaskGateway
	cache   *cache.Store
	retry   *retry.Policy
	online  OnlineFunc
	confirm ConfirmFunc
	bus     *events.Bus
	logger  *zap.Logger
	now     func() time.Time

	mu       stdsync.RWMutex
	tasks    []domain.Task
	state    State
	hydrated bool

	lockMu  stdsync.Mutex
	idLocks map[string]*stdsync.Mutex

	drainMu stdsync.Mutex
}

// New builds an engine. It does not touch the cache; the snapshot is
// hydrated by LoadTasks or lazily before the first mutation.
func New(cfg Config) *Engine {
	if cfg.Retry == nil {
		cfg.Retry = retry.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Online == nil {
		cfg.Online = func() bool { return true }
	}
	return &Engine{
		userID:  cfg.UserID,
		gateway: cfg.Gateway,
		cache:   cfg.Cache,
		retry:   cfg.Retry,
		online:  cfg.Online,
		confirm: cfg.Confirm,
		bus:     cfg.Bus,
		logger:  cfg.Logger.With(zap.String("user_id", cfg.UserID)),
		now:     cfg.Now,
		state:   StateSynced,
		idLocks: make(map[string]*stdsync.Mutex),
	}
}

// UserID returns the owning user.
func (e *Engine) UserID() string { return e.userID }

// Hydrated reports whether LoadTasks has run at least once.
func (e *Engine) Hydrated() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hydrated
}

// Snapshot returns a read-only copy of the in-memory task sequence,
// most-recent-first.
func (e *Engine) Snapshot() []domain.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// Status reports the current sync standing.
func (e *Engine) Status() Status {
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()

	pending, err := e.cache.PendingSize(e.userID)
	if err != nil {
		e.logger.Warn("pending size check failed", zap.Error(err))
	}
	last, _ := e.cache.LastSyncedAt(e.userID)
	return Status{
		State:        state,
		PendingCount: pending,
		LastSyncedAt: last,
	}
}

// CreateTask applies the optimistic create, persists it, then attempts
// remote propagation. The returned record carries the server-confirmed id
// when the insert succeeded and the temporary id otherwise; callers must
// re-key on reconciliation, not assume id stability.
func (e *Engine) CreateTask(ctx context.Context, draft domain.Task) (*domain.Task, error) {
	now := e.now()

	task := draft
	task.ID = uuid.NewString()
	task.UserID = e.userID
	if task.Project == "" {
		task.Project = domain.ProjectWork
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	task.SetCompleted(false, "", now)
	task.CreatedAt = now
	task.UpdatedAt = now
	task.CreatedBy = e.userID
	task.UpdatedBy = e.userID

	if err := task.Validate(); err != nil {
		return nil, err
	}

	e.ensureHydrated()

	unlock := e.lockID(task.ID)
	defer unlock()

	e.mu.Lock()
	e.tasks = append([]domain.Task{task}, e.tasks...)
	e.mu.Unlock()
	e.persist()
	e.notifyState()

	if !e.online() {
		e.enqueue(domain.ChangeCreate, task.ID, task)
		return &task, nil
	}

	e.setState(StateSyncing)
	confirmed, err := e.remoteInsert(ctx, task)
	if err != nil {
		e.logger.Warn("task insert failed, queuing for later", zap.String("task_id", task.ID), zap.Error(err))
		e.enqueue(domain.ChangeCreate, task.ID, task)
		e.setState(StateDegraded)
		return &task, nil
	}

	e.replaceTask(task.ID, confirmed)
	e.persist()
	e.notifyState()
	e.setState(StateSynced)
	return confirmed, nil
}

// UpdateTask merges the partial update over the stored record, applies it
// optimistically and propagates it remotely scoped by (id, owner).
func (e *Engine) UpdateTask(ctx context.Context, id string, update domain.TaskUpdate) (*domain.Task, error) {
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}

	e.ensureHydrated()

	unlock := e.lockID(id)
	defer unlock()

	now := e.now()
	update.Normalize(e.userID, now)

	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		return nil, domain.ErrTaskNotFound
	}
	updated := e.tasks[idx]
	update.Apply(&updated, e.userID, now)
	if err := updated.Validate(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.tasks[idx] = updated
	e.mu.Unlock()
	e.persist()
	e.notifyState()

	if !e.online() {
		e.enqueue(domain.ChangeUpdate, id, update)
		return &updated, nil
	}

	e.setState(StateSyncing)
	confirmed, err := e.remoteUpdate(ctx, id, update)
	if err != nil {
		e.logger.Warn("task update failed, queuing for later", zap.String("task_id", id), zap.Error(err))
		e.enqueue(domain.ChangeUpdate, id, update)
		e.setState(StateDegraded)
		return &updated, nil
	}

	e.replaceTask(id, confirmed)
	e.persist()
	e.notifyState()
	e.setState(StateSynced)
	return confirmed, nil
}

// ToggleComplete flips the completion flag through UpdateTask.
func (e *Engine) ToggleComplete(ctx context.Context, id string) (*domain.Task, error) {
	e.ensureHydrated()

	e.mu.RLock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.RUnlock()
		return nil, domain.ErrTaskNotFound
	}
	completed := !e.tasks[idx].Completed
	e.mu.RUnlock()

	return e.UpdateTask(ctx, id, domain.TaskUpdate{Completed: &completed})
}

// DeleteTask removes the task after the confirmation hook approves. It
// returns false without error when confirmation was declined.
func (e *Engine) DeleteTask(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, domain.ErrInvalidPayload
	}

	e.ensureHydrated()

	unlock := e.lockID(id)
	defer unlock()

	e.mu.RLock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.RUnlock()
		return false, domain.ErrTaskNotFound
	}
	doomed := e.tasks[idx]
	e.mu.RUnlock()

	if e.confirm != nil && !e.confirm(ctx, doomed) {
		return false, nil
	}

	e.mu.Lock()
	if idx = e.indexOf(id); idx >= 0 {
		e.tasks = append(e.tasks[:idx], e.tasks[idx+1:]...)
	}
	e.mu.Unlock()
	e.persist()
	e.notifyState()

	if !e.online() {
		e.enqueue(domain.ChangeDelete, id, nil)
		return true, nil
	}

	e.setState(StateSyncing)
	if err := e.remoteDelete(ctx, id); err != nil {
		e.logger.Warn("task delete failed, queuing for later", zap.String("task_id", id), zap.Error(err))
		e.enqueue(domain.ChangeDelete, id, nil)
		e.setState(StateDegraded)
		return true, nil
	}

	e.setState(StateSynced)
	return true, nil
}

// LoadTasks hydrates from the local cache first, then replaces the snapshot
// wholesale from the remote store when reachable and drains the pending
// queue against the confirmed baseline. On remote failure the stale cache
// stays, the pending queue is untouched and the state degrades.
func (e *Engine) LoadTasks(ctx context.Context) ([]domain.Task, error) {
	cached, err := e.cache.LoadTasks(e.userID)
	if err != nil {
		e.logger.Warn("local cache read failed", zap.Error(err))
	} else {
		e.mu.Lock()
		e.tasks = cached
		e.hydrated = true
		e.mu.Unlock()
		e.notifyState()
	}

	if !e.online() {
		e.setState(StateDegraded)
		return e.Snapshot(), nil
	}

	e.setState(StateSyncing)
	remote, err := e.gateway.Select(ctx, e.userID)
	if err != nil {
		e.logger.Warn("remote load failed, serving cached snapshot", zap.Error(err))
		e.setState(StateDegraded)
		return e.Snapshot(), nil
	}

	e.mu.Lock()
	e.tasks = remote
	e.hydrated = true
	e.mu.Unlock()
	e.persist()
	e.notifyState()

	if err := e.Drain(ctx); err != nil {
		e.logger.Warn("post-load drain incomplete", zap.Error(err))
	}
	return e.Snapshot(), nil
}

func (e *Engine) remoteInsert(ctx context.Context, task domain.Task) (*domain.Task, error) {
	var confirmed *domain.Task
	err := e.retry.Execute(ctx, func(ctx context.Context) error {
		attempt := task
		row, err := e.gateway.Insert(ctx, &attempt)
		if err != nil {
			return err
		}
		confirmed = row
		return nil
	})
	return confirmed, err
}

func (e *Engine) remoteUpdate(ctx context.Context, id string, update domain.TaskUpdate) (*domain.Task, error) {
	var confirmed *domain.Task
	err := e.retry.Execute(ctx, func(ctx context.Context) error {
		row, err := e.gateway.Update(ctx, id, e.userID, update)
		if err != nil {
			return err
		}
		confirmed = row
		return nil
	})
	return confirmed, err
}

func (e *Engine) remoteDelete(ctx context.Context, id string) error {
	return e.retry.Execute(ctx, func(ctx context.Context) error {
		err := e.gateway.Delete(ctx, id, e.userID)
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			// the row is already gone, which is what we wanted
			return nil
		}
		return err
	})
}

// enqueue records a pending change. A cache failure here is logged and
// swallowed like every other persistence error.
func (e *Engine) enqueue(op domain.ChangeOperation, taskID string, payload interface{}) {
	change := domain.PendingChange{
		ID:        uuid.NewString(),
		Operation: op,
		TaskID:    taskID,
		Timestamp: e.now(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			e.logger.Error("pending payload marshal failed", zap.Error(err))
			return
		}
		change.Data = data
	}
	if err := e.cache.AppendPending(e.userID, change); err != nil {
		e.logger.Error("pending change persist failed", zap.Error(err))
	}
}

// ensureHydrated loads the cached snapshot before the first mutation, so
// an engine built after a restart never persists over tasks it has not
// seen. On a cache read failure the engine stays unhydrated and the next
// mutation tries again.
func (e *Engine) ensureHydrated() {
	e.mu.RLock()
	done := e.hydrated
	e.mu.RUnlock()
	if done {
		return
	}

	cached, err := e.cache.LoadTasks(e.userID)
	if err != nil {
		e.logger.Warn("local cache read failed", zap.Error(err))
		return
	}

	e.mu.Lock()
	if !e.hydrated {
		e.tasks = cached
		e.hydrated = true
	}
	e.mu.Unlock()
}

// persist writes the current snapshot to the local cache; failures never
// abort the in-memory mutation that triggered them.
func (e *Engine) persist() {
	e.mu.RLock()
	tasks := make([]domain.Task, len(e.tasks))
	copy(tasks, e.tasks)
	e.mu.RUnlock()

	if err := e.cache.SaveTasks(e.userID, tasks); err != nil {
		e.logger.Warn("local cache write failed", zap.Error(err))
	}
}

// replaceTask swaps the record stored under oldID for the confirmed row.
// When oldID is no longer present (a wholesale remote load ran before a
// buffered create replayed) the confirmed row is inserted at the head so
// the replayed mutation stays visible.
func (e *Engine) replaceTask(oldID string, confirmed *domain.Task) {
	if confirmed == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexOf(oldID); idx >= 0 {
		e.tasks[idx] = *confirmed
		return
	}
	if e.indexOf(confirmed.ID) < 0 {
		e.tasks = append([]domain.Task{*confirmed}, e.tasks...)
	}
}

// indexOf must be called with e.mu held.
func (e *Engine) indexOf(id string) int {
	for i := range e.tasks {
		if e.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// lockID serializes mutations per task id so a slow remote round-trip
// cannot clobber a later mutation that resolved first.
func (e *Engine) lockID(id string) func() {
	e.lockMu.Lock()
	m, ok := e.idLocks[id]
	if !ok {
		m = &stdsync.Mutex{}
		e.idLocks[id] = m
	}
	e.lockMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (e *Engine) setState(state State) {
	e.mu.Lock()
	changed := e.state != state
	e.state = state
	e.mu.Unlock()

	if changed && e.bus != nil {
		e.bus.Publish(events.Event{Type: events.SyncStatus, UserID: e.userID})
	}
}

func (e *Engine) notifyState() {
	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.StateChanged, UserID: e.userID})
	}
}
