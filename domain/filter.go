package domain

import "time"

// Grouping and ordering selectors accepted by saved filters.
const (
	GroupByNone     = ""
	GroupByProject  = "project"
	GroupByPriority = "priority"
	GroupByAssignee = "assignee"

	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByDeadline  = "deadline"
	SortByPriority  = "priority"
	SortByTitle     = "title"

	SortAsc  = "asc"
	SortDesc = "desc"

	StatusOpen      = "open"
	StatusCompleted = "completed"
)

// Filter is a named predicate/sort/group specification, persisted remotely
// per user. It only ever operates on read-only task snapshots.
type Filter struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
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
	CreatedAt time.Time  `json:"created_at"`
}
