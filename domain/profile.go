package domain

import (
	"strings"
	"time"
)

// Profile represents a registered identity in the remote store, used for
// ownership scoping and assignee display names.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back from full name to the email local part to the id.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	if p.Email != "" {
		if at := strings.IndexByte(p.Email, '@'); at > 0 {
			return p.Email[:at]
		}
		return p.Email
	}
	return p.ID
}
