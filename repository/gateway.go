package repository

import (
	"context"

	"github.com/brainbow/syncd/domain"
)

// TaskGateway is the remote store boundary for tasks. Every call is scoped
// to the owning user; the store is expected to enforce the same ownership on
// its side. Insert returns the confirmed row, which may carry a different id
// than the client-generated one.
type TaskGateway interface {
	Select(ctx context.Context, userID string) ([]domain.Task, error)
	Insert(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, id, userID string, update domain.TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, id, userID string) error
}

// FilterGateway persists saved view filters per user.
type FilterGateway interface {
	List(ctx context.Context, userID string) ([]domain.Filter, error)
	Upsert(ctx context.Context, filter *domain.Filter) error
	Delete(ctx context.Context, id, userID string) error
}

// ProfileGateway resolves and provisions user profiles.
type ProfileGateway interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}
