package repository

import (
	"context"

	"github.com/brainbow/syncd/domain"
)

// SessionRepository stores login sessions. Sessions live separately from
// the task cache: they are never queued offline, so the backing store can
// enforce TTLs natively.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	// Extend resets the session lifetime to ttlSeconds from now.
	Extend(ctx context.Context, id string, ttlSeconds int) error
}
