package transport

// TaskCreateRequest is the payload for creating a task; identity, ownership
// and timestamps are always assigned by the sync engine.
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Project     string `json:"project"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"`
	Assignee    string `json:"assignee"`
	Tags        string `json:"tags"`
}

// TaskUpdateRequest is a partial update; absent fields stay untouched.
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Project     *string `json:"project,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	Tags        *string `json:"tags,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// FilterRequest carries a saved view filter.
type FilterRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Project   string   `json:"project"`
	Assignee  string   `json:"assignee"`
	Status    string   `json:"status"`
	Priority  string   `json:"priority"`
	Tags      []string `json:"tags"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Search    string   `json:"search"`
	GroupBy   string   `json:"group_by"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order"`
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

type LogoutRequest struct {
	SessionID string `json:"session_id"`
}
