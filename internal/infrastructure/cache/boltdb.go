// Package cache implements the durable local store: a last-write-wins task
// snapshot per user plus a strictly FIFO pending-change log per user.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/brainbow/syncd/domain"
)

var (
	bucketTasks   = []byte("tasks")
	bucketPending = []byte("pending")
	bucketMeta    = []byte("meta")
)

// Store wraps BoltDB. All operations are synchronous and keyed by user id;
// callers decide whether a persistence failure is fatal (the sync engine
// logs and swallows them).
type Store struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures the root buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTasks, bucketPending, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// SaveTasks replaces the stored snapshot for the user and stamps the sync time.
func (s *Store) SaveTasks(userID string, tasks []domain.Task) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if userID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketTasks).Put([]byte(userID), payload); err != nil {
			return err
		}
		stamp, _ := time.Now().UTC().MarshalText()
		return tx.Bucket(bucketMeta).Put(lastSyncKey(userID), stamp)
	})
}

// LoadTasks returns the stored snapshot, or an empty one when the user has
// nothing cached yet.
func (s *Store) LoadTasks(userID string) ([]domain.Task, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var tasks []domain.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketTasks).Get([]byte(userID))
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, &tasks)
	})
	return tasks, err
}

// LastSyncedAt returns the time of the last snapshot write for the user.
func (s *Store) LastSyncedAt(userID string) (time.Time, error) {
	if s == nil || s.db == nil {
		return time.Time{}, bolt.ErrDatabaseNotOpen
	}
	var stamp time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(lastSyncKey(userID))
		if len(raw) == 0 {
			return nil
		}
		return stamp.UnmarshalText(raw)
	})
	return stamp, err
}

// AppendPending adds a change to the tail of the user's pending log.
// Sequence keys from the bucket keep replay in enqueue order.
func (s *Store) AppendPending(userID string, change domain.PendingChange) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if userID == "" {
		return domain.ErrInvalidPayload
	}
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketPending).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), payload)
	})
}

// LoadPending returns the user's pending changes in enqueue order.
func (s *Store) LoadPending(userID string) ([]domain.PendingChange, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var changes []domain.PendingChange
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var change domain.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				return err
			}
			changes = append(changes, change)
			return nil
		})
	})
	return changes, err
}

// RemovePending deletes a single replayed entry, leaving the rest of the
// log untouched.
func (s *Store) RemovePending(userID, changeID string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var change domain.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				continue
			}
			if change.ID == changeID {
				return c.Delete()
			}
		}
		return nil
	})
}

// ClearPending drops the user's entire pending log.
func (s *Store) ClearPending(userID string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketPending)
		if root.Bucket([]byte(userID)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(userID))
	})
}

// PendingSize returns the number of undelivered changes for the user.
func (s *Store) PendingSize(userID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// Ping verifies the database file is still usable.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}

func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d", seq))
}

func lastSyncKey(userID string) []byte {
	return []byte("last_sync_" + userID)
}
