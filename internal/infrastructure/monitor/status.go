package monitor

import "time"

// Status is the connectivity picture published to health surfaces. Remote
// is the store the sync engines reconcile against; Sessions is the redis
// side; Cache reflects the local bolt store.
type Status struct {
	Remote    bool      `json:"remote"`
	Sessions  bool      `json:"sessions"`
	Cache     bool      `json:"cache"`
	LastCheck time.Time `json:"last_check"`
}
