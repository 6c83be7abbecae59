package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/repository"
)

type filterGateway struct {
	pool *pgxpool.Pool
}

// NewFilterGateway returns a Postgres-backed implementation of FilterGateway.
func NewFilterGateway(pool *pgxpool.Pool) repository.FilterGateway {
	return &filterGateway{pool: pool}
}

// criteria is the JSON column shape; identity and name live in real columns.
type criteria struct {
	Project   string     `json:"project,omitempty"`
	Assignee  string     `json:"assignee,omitempty"`
	Status    string     `json:"status,omitempty"`
	Priority  string     `json:"priority,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	Search    string     `json:"search,omitempty"`
	GroupBy   string     `json:"group_by,omitempty"`
	SortBy    string     `json:"sort_by,omitempty"`
	SortOrder string     `json:"sort_order,omitempty"`
}

func (g *filterGateway) List(ctx context.Context, userID string) ([]domain.Filter, error) {
	const query = `
	SELECT id, user_id, name, criteria, created_at
	FROM filters
	WHERE user_id = $1
	ORDER BY created_at ASC
	`
	rows, err := g.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var filters []domain.Filter
	for rows.Next() {
		var (
			filter domain.Filter
			raw    []byte
		)
		if err := rows.Scan(&filter.ID, &filter.UserID, &filter.Name, &raw, &filter.CreatedAt); err != nil {
			return nil, classify(err)
		}
		if len(raw) > 0 {
			var c criteria
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, domain.WrapError(domain.ErrCodeInvalid, "malformed filter row", err)
			}
			filter.Project = c.Project
			filter.Assignee = c.Assignee
			filter.Status = c.Status
			filter.Priority = c.Priority
			filter.Tags = c.Tags
			filter.From = c.From
			filter.To = c.To
			filter.Search = c.Search
			filter.GroupBy = c.GroupBy
			filter.SortBy = c.SortBy
			filter.SortOrder = c.SortOrder
		}
		filters = append(filters, filter)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return filters, nil
}

func (g *filterGateway) Upsert(ctx context.Context, filter *domain.Filter) error {
	if filter == nil || filter.UserID == "" || filter.Name == "" {
		return domain.ErrInvalidPayload
	}
	if filter.ID == "" {
		filter.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO filters (id, user_id, name, criteria)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		criteria = EXCLUDED.criteria
	RETURNING created_at
	`

	c := criteria{
		Project:   filter.Project,
		Assignee:  filter.Assignee,
		Status:    filter.Status,
		Priority:  filter.Priority,
		Tags:      filter.Tags,
		From:      filter.From,
		To:        filter.To,
		Search:    filter.Search,
		GroupBy:   filter.GroupBy,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	}

	if err := g.pool.QueryRow(ctx, query,
		filter.ID,
		filter.UserID,
		filter.Name,
		marshalJSON(c),
	).Scan(&filter.CreatedAt); err != nil {
		return classify(err)
	}
	return nil
}

func (g *filterGateway) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM filters WHERE id = $1 AND user_id = $2`
	tag, err := g.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFilterNotFound
	}
	return nil
}
