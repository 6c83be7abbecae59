package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/brainbow/syncd/domain"
)

// Drain replays the pending queue in enqueue order. Each successfully
// replayed entry is removed immediately; a transient failure stops the
// drain and retains the remainder so an update is never applied before the
// create it depends on. Entries the store rejects outright are dropped as
// poison. Triggered on connectivity restore, explicit sync requests and
// after a successful LoadTasks.
func (e *Engine) Drain(ctx context.Context) error {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	e.ensureHydrated()

	changes, err := e.cache.LoadPending(e.userID)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	if !e.online() {
		e.logger.Debug("skipping drain while offline", zap.Int("pending", len(changes)))
		return nil
	}

	e.setState(StateSyncing)
	for _, change := range changes {
		if err := e.replay(ctx, change); err != nil {
			if domain.IsTerminal(err) {
				e.logger.Warn("dropping unreplayable pending change",
					zap.String("change_id", change.ID),
					zap.String("operation", string(change.Operation)),
					zap.Error(err))
				e.removePending(change.ID)
				continue
			}
			e.logger.Warn("drain interrupted, retaining remaining changes",
				zap.String("change_id", change.ID),
				zap.Error(err))
			e.setState(StateDegraded)
			return err
		}
		e.removePending(change.ID)
	}

	e.persist()
	e.notifyState()
	e.setState(StateSynced)
	e.logger.Info("pending queue drained", zap.Int("replayed", len(changes)))
	return nil
}

// replay takes the same per-id lock as the live mutation paths, so a
// buffered change cannot commit over a newer mutation in flight on the
// same task.
func (e *Engine) replay(ctx context.Context, change domain.PendingChange) error {
	unlock := e.lockID(change.TaskID)
	defer unlock()

	switch change.Operation {
	case domain.ChangeCreate:
		task, err := change.CreatePayload()
		if err != nil {
			return err
		}
		confirmed, err := e.remoteInsert(ctx, *task)
		if domain.IsDomainError(err, domain.ErrCodeConflict) {
			// the stable client-generated id means a prior partially
			// successful attempt already landed this row
			return nil
		}
		if err != nil {
			return err
		}
		e.replaceTask(change.TaskID, confirmed)
		return nil

	case domain.ChangeUpdate:
		update, err := change.UpdatePayload()
		if err != nil {
			return err
		}
		confirmed, err := e.remoteUpdate(ctx, change.TaskID, update)
		if err != nil {
			return err
		}
		e.replaceTask(change.TaskID, confirmed)
		return nil

	case domain.ChangeDelete:
		return e.remoteDelete(ctx, change.TaskID)

	default:
		return domain.NewError(domain.ErrCodeInvalid, "unsupported pending operation "+string(change.Operation))
	}
}

func (e *Engine) removePending(changeID string) {
	if err := e.cache.RemovePending(e.userID, changeID); err != nil {
		e.logger.Warn("pending change removal failed", zap.String("change_id", changeID), zap.Error(err))
	}
}
