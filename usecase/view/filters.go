package view

import (
	"context"
	stdsync "sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/repository"
)

// FilterService manages the user's saved filters and resolves assignee
// display names through the profile gateway, caching lookups for the
// process lifetime.
type FilterService struct {
	filters  repository.FilterGateway
	profiles repository.ProfileGateway
	logger   *zap.Logger

	mu    stdsync.RWMutex
	names map[string]string
}

// NewFilterService wires the saved-filter store and profile resolver.
func NewFilterService(filters repository.FilterGateway, profiles repository.ProfileGateway, logger *zap.Logger) *FilterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterService{
		filters:  filters,
		profiles: profiles,
		logger:   logger,
		names:    make(map[string]string),
	}
}

// List returns the user's saved filters, oldest first.
func (s *FilterService) List(ctx context.Context, userID string) ([]domain.Filter, error) {
	return s.filters.List(ctx, userID)
}

// Save validates and persists a named filter for the user. A missing id
// means a new filter; updates keep the id the client saved under.
func (s *FilterService) Save(ctx context.Context, filter *domain.Filter) error {
	if filter == nil || filter.Name == "" {
		return domain.NewError(domain.ErrCodeInvalid, "filter name is required")
	}
	if filter.ID == "" {
		filter.ID = uuid.NewString()
	}
	return s.filters.Upsert(ctx, filter)
}

// Delete removes a saved filter scoped by owner.
func (s *FilterService) Delete(ctx context.Context, id, userID string) error {
	if id == "" {
		return domain.ErrInvalidPayload
	}
	return s.filters.Delete(ctx, id, userID)
}

// AssigneeName resolves a user id to a display name, falling back to the id
// when the profile cannot be fetched.
func (s *FilterService) AssigneeName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}

	s.mu.RLock()
	name, ok := s.names[userID]
	s.mu.RUnlock()
	if ok {
		return name
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		s.logger.Debug("assignee lookup failed", zap.String("assignee", userID), zap.Error(err))
		return userID
	}
	name = profile.DisplayName()

	s.mu.Lock()
	s.names[userID] = name
	s.mu.Unlock()
	return name
}
