package domain

import (
	"encoding/json"
	"time"
)

// ChangeOperation names a mutation intent recorded for later replay.
type ChangeOperation string

const (
	ChangeCreate ChangeOperation = "create"
	ChangeUpdate ChangeOperation = "update"
	ChangeDelete ChangeOperation = "delete"
)

// PendingChange is an undelivered mutation. Data holds the full task record
// for creates, the partial update for updates, and is empty for deletes.
type PendingChange struct {
	ID        string          `json:"id"`
	Operation ChangeOperation `json:"operation"`
	TaskID    string          `json:"task_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// CreatePayload decodes the buffered task record of a create change.
func (c PendingChange) CreatePayload() (*Task, error) {
	var task Task
	if err := json.Unmarshal(c.Data, &task); err != nil {
		return nil, WrapError(ErrCodeInvalid, "malformed pending create payload", err)
	}
	return &task, nil
}

// UpdatePayload decodes the buffered partial update of an update change.
func (c PendingChange) UpdatePayload() (TaskUpdate, error) {
	var update TaskUpdate
	if err := json.Unmarshal(c.Data, &update); err != nil {
		return TaskUpdate{}, WrapError(ErrCodeInvalid, "malformed pending update payload", err)
	}
	return update, nil
}
