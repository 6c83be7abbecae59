package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainbow/syncd/domain"
	"github.com/brainbow/syncd/repository"
)

const taskColumns = `id, user_id, title, description, project, priority, deadline,
	assignee, tags, completed, completed_at, completed_by,
	created_at, updated_at, created_by, updated_by`

type taskGateway struct {
	pool *pgxpool.Pool
}

// NewTaskGateway returns a Postgres-backed implementation of TaskGateway.
func NewTaskGateway(pool *pgxpool.Pool) repository.TaskGateway {
	return &taskGateway{pool: pool}
}

func (g *taskGateway) Select(ctx context.Context, userID string) ([]domain.Task, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM tasks
	WHERE user_id = $1
	ORDER BY created_at DESC
	`, taskColumns)

	rows, err := g.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tasks, nil
}

func (g *taskGateway) Insert(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
	INSERT INTO tasks (id, user_id, title, description, project, priority, deadline,
		assignee, tags, completed, completed_at, completed_by,
		created_at, updated_at, created_by, updated_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING %s
	`, taskColumns)

	row := g.pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Project,
		task.Priority,
		task.Deadline,
		nullString(task.Assignee),
		task.Tags,
		task.Completed,
		task.CompletedAt,
		nullString(task.CompletedBy),
		task.CreatedAt,
		task.UpdatedAt,
		nullString(task.CreatedBy),
		nullString(task.UpdatedBy),
	)
	return scanTask(row)
}

func (g *taskGateway) Update(ctx context.Context, id, userID string, update domain.TaskUpdate) (*domain.Task, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id, userID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Project != nil {
		add("project", *update.Project)
	}
	if update.Priority != nil {
		add("priority", *update.Priority)
	}
	if update.Deadline != nil {
		add("deadline", *update.Deadline)
	}
	if update.Assignee != nil {
		add("assignee", nullString(*update.Assignee))
	}
	if update.Tags != nil {
		add("tags", *update.Tags)
	}
	if update.Completed != nil {
		add("completed", *update.Completed)
		add("completed_at", update.CompletedAt)
		var by interface{}
		if update.CompletedBy != nil {
			by = *update.CompletedBy
		}
		add("completed_by", by)
	}

	query := fmt.Sprintf(`
	UPDATE tasks
	SET %s
	WHERE id = $1 AND user_id = $2
	RETURNING %s
	`, strings.Join(sets, ", "), taskColumns)

	return scanTask(g.pool.QueryRow(ctx, query, args...))
}

func (g *taskGateway) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	tag, err := g.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		description *string
		deadline    *time.Time
		assignee    *string
		tags        *string
		completedAt *time.Time
		completedBy *string
		createdBy   *string
		updatedBy   *string
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&task.Project,
		&task.Priority,
		&deadline,
		&assignee,
		&tags,
		&task.Completed,
		&completedAt,
		&completedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
		&createdBy,
		&updatedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, classify(err)
	}

	task.Description = deref(description)
	task.Deadline = deadline
	task.Assignee = deref(assignee)
	task.Tags = deref(tags)
	task.CompletedAt = completedAt
	task.CompletedBy = deref(completedBy)
	task.CreatedBy = deref(createdBy)
	task.UpdatedBy = deref(updatedBy)

	// The store never hands back a row violating the completion coupling;
	// reject it instead of propagating a half-completed record.
	if task.Completed && task.CompletedAt == nil {
		return nil, domain.NewError(domain.ErrCodeInvalid, "malformed task row: completed without completed_at")
	}
	if !task.Completed && (task.CompletedAt != nil || task.CompletedBy != "") {
		return nil, domain.NewError(domain.ErrCodeInvalid, "malformed task row: completion stamp on open task")
	}
	return &task, nil
}
