package domain

import "time"

// Session is an authenticated login. Unlike tasks, sessions are never
// cached locally or replayed through the sync queue; they exist only in
// the session store and expire there.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// IsExpired reports whether the session is past its expiry at the given
// reference time. A zero reference means now; a nil session is expired.
func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}
