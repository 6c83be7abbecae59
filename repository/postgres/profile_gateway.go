package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/repository"
)

type profileGateway struct {
	pool *pgxpool.Pool
}

// NewProfileGateway instantiates a Postgres-backed profile gateway.
func NewProfileGateway(pool *pgxpool.Pool) repository.ProfileGateway {
	return &profileGateway{pool: pool}
}

func (g *profileGateway) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
	SELECT id, email, full_name, created_at, updated_at
	FROM profiles
	WHERE id = $1
	`
	row := g.pool.QueryRow(ctx, query, id)

	var (
		profile  domain.Profile
		email    *string
		fullName *string
	)
	if err := row.Scan(&profile.ID, &email, &fullName, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, classify(err)
	}
	profile.Email = deref(email)
	profile.FullName = deref(fullName)
	return &profile, nil
}

func (g *profileGateway) Upsert(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || profile.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO profiles (id, email, full_name, created_at, updated_at)
	VALUES ($1, $2, $3, COALESCE($4, NOW()), NOW())
	ON CONFLICT (id) DO UPDATE
	SET email = EXCLUDED.email,
		full_name = EXCLUDED.full_name,
		updated_at = NOW()
	RETURNING created_at, updated_at
	`

	var createdAt, updatedAt time.Time
	if err := g.pool.QueryRow(ctx, query,
		profile.ID,
		nullString(profile.Email),
		nullString(profile.FullName),
		nullTime(profile.CreatedAt),
	).Scan(&createdAt, &updatedAt); err != nil {
		return classify(err)
	}

	profile.CreatedAt = createdAt
	profile.UpdatedAt = updatedAt
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
