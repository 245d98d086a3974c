// Package sessions keeps the local record used to decide whether the user
// is offered to resume a recent session or start fresh. The record survives
// process restarts but only gates resumption within a bounded recency
// window; beyond it a fresh session is forced.
package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const defaultRecencyWindow = 30 * time.Minute

// Record is the persisted trace of the most recent session.
type Record struct {
	SessionID string    `json:"session_id"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store persists the session record as a small JSON file.
type Store struct {
	path          string
	recencyWindow time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPath overrides the record file location.
func WithPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// WithRecencyWindow overrides how long a session stays resumable.
func WithRecencyWindow(window time.Duration) StoreOption {
	return func(s *Store) { s.recencyWindow = window }
}

// NewStore creates a store, defaulting to a file under the user cache
// directory.
func NewStore(opts ...StoreOption) (*Store, error) {
	store := &Store{recencyWindow: defaultRecencyWindow}
	for _, opt := range opts {
		opt(store)
	}

	if store.path == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		store.path = filepath.Join(cacheDir, "maitre", "session.json")
	}
	return store, nil
}

// Recent returns the stored record if it is still within the recency
// window. A missing, unreadable, or expired record reports false.
func (s *Store) Recent() (Record, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, false
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, false
	}
	if record.SessionID == "" || time.Since(record.LastSeen) > s.recencyWindow {
		return Record{}, false
	}
	return record, true
}

// Touch records the session id with the current time.
func (s *Store) Touch(sessionID string) error {
	data, err := json.Marshal(Record{SessionID: sessionID, LastSeen: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create session record directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

// Clear removes the record, forcing the next connect to start fresh.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session record: %w", err)
	}
	return nil
}
