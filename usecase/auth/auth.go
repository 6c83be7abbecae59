package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/pkg/events"
	"github.com/brainbow/syncd/repository"
)

// UseCase manages session lifecycle and profile provisioning. Sign-in and
// sign-out transitions are published on the bus so the sync layer can react.
type UseCase struct {
	profiles repository.ProfileGateway
	sessions repository.SessionRepository
	bus      *events.Bus
	logger   *zap.Logger
}

func New(profiles repository.ProfileGateway, sessions repository.SessionRepository, bus *events.Bus, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		profiles: profiles,
		sessions: sessions,
		bus:      bus,
		logger:   logger,
	}
}

// CreateSession signs a user in, provisioning the remote profile on first
// contact the way the original client did.
func (uc *UseCase) CreateSession(ctx context.Context, userID, email string, ttl time.Duration) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrInvalidPayload
	}

	if _, err := uc.profiles.GetByID(ctx, userID); err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		profile := &domain.Profile{
			ID:       userID,
			Email:    email,
			FullName: localPart(email),
		}
		if err := uc.profiles.Upsert(ctx, profile); err != nil {
			return nil, err
		}
		uc.logger.Info("profile provisioned", zap.String("user_id", userID))
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	if uc.bus != nil {
		uc.bus.Publish(events.Event{Type: events.SignedIn, UserID: userID})
	}
	return session, nil
}

// GetSession returns a live session or ErrSessionNotFound when expired.
func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RefreshSession extends the session's TTL.
func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = time.Now().Add(ttl)
	return session, nil
}

// RevokeSession signs the user out and announces it.
func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if uc.bus != nil {
		uc.bus.Publish(events.Event{Type: events.SignedOut, UserID: session.UserID})
	}
	return nil
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
