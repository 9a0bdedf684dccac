package storage

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Settings() SettingsStore
	Sessions() SessionStore
}

// SettingsStore is a flat key/value settings file.
type SettingsStore interface {
	// Load returns every stored key. An empty store yields an empty map.
	Load(ctx context.Context) (map[string]string, error)
	// Save upserts the given keys and leaves others untouched.
	Save(ctx context.Context, values map[string]string) error
}

// SessionStore keeps the history of finished sessions.
type SessionStore interface {
	Append(ctx context.Context, record SessionRecord) error
	// List returns up to limit records, newest EndedAt first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]SessionRecord, error)
	Get(ctx context.Context, id string) (*SessionRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionRecord represents one finished focus or break session.
type SessionRecord struct {
	ID        string        `json:"id"`
	Mode      string        `json:"mode"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Reason    string        `json:"reason"`
}

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
