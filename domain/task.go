package domain

import (
	"strings"
	"time"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	ProjectWork     = "work"
	ProjectPersonal = "personal"

	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// Task represents a user-owned activity item. The id is generated
// client-side on creation and may be rewritten by the remote store on the
// first confirmed insert.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Project     string     `json:"project"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
}

// SetCompleted flips the completion flag and keeps completed_at/completed_by
// coupled to it: both set when completing, both cleared when reopening.
func (t *Task) SetCompleted(completed bool, actor string, now time.Time) {
	t.Completed = completed
	if completed {
		at := now
		t.CompletedAt = &at
		t.CompletedBy = actor
		return
	}
	t.CompletedAt = nil
	t.CompletedBy = ""
}

// Validate checks caller-supplied fields before any optimistic mutation.
func (t *Task) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return NewError(ErrCodeInvalid, "title is required")
	}
	if len(t.Title) > MaxTitleLen {
		return NewError(ErrCodeInvalid, "title exceeds 200 characters")
	}
	if len(t.Description) > MaxDescriptionLen {
		return NewError(ErrCodeInvalid, "description exceeds 1000 characters")
	}
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return NewError(ErrCodeInvalid, "priority must be low, medium or high")
	}
	return nil
}

// TaskUpdate carries a partial update; nil fields are left untouched.
// Completed drives the derived completed_at/completed_by pair; caller-supplied
// values for those fields are ignored.
type TaskUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Project     *string    `json:"project,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Assignee    *string    `json:"assignee,omitempty"`
	Tags        *string    `json:"tags,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`

	// Derived from Completed by the sync engine; surviving in the JSON so a
	// buffered replay keeps the stamp of the original mutation.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *string    `json:"completed_by,omitempty"`
}

// Normalize recomputes the derived completion fields, discarding whatever
// the caller put there.
func (u *TaskUpdate) Normalize(actor string, now time.Time) {
	if u.Completed == nil {
		u.CompletedAt = nil
		u.CompletedBy = nil
		return
	}
	if *u.Completed {
		at := now
		u.CompletedAt = &at
		u.CompletedBy = &actor
		return
	}
	u.CompletedAt = nil
	u.CompletedBy = nil
}

// Apply merges the update over the task and stamps the updating actor.
func (u TaskUpdate) Apply(t *Task, actor string, now time.Time) {
	if u.Title != nil {
		t.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Project != nil {
		t.Project = *u.Project
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Deadline != nil {
		d := *u.Deadline
		t.Deadline = &d
	}
	if u.Assignee != nil {
		t.Assignee = *u.Assignee
	}
	if u.Tags != nil {
		t.Tags = *u.Tags
	}
	if u.Completed != nil {
		t.SetCompleted(*u.Completed, actor, now)
	}
	t.UpdatedAt = now
	t.UpdatedBy = actor
}
