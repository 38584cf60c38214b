// ABOUTME: Storage interfaces and types backing the builtin tool packs.
// ABOUTME: The dispatch core never touches this; only handlers do.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Note is a key-value note owned by a principal.
type Note struct {
	Key       string    `json:"key"`
	Owner     string    `json:"owner"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogEntry records one activity line written by a tool handler.
type LogEntry struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract consumed by the builtin packs.
type Store interface {
	SetNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, owner, key string) (*Note, error)
	ListNotes(ctx context.Context, owner string) ([]*Note, error)
	DeleteNote(ctx context.Context, owner, key string) error

	AppendLog(ctx context.Context, entry *LogEntry) error
	SearchLogs(ctx context.Context, owner, query string, limit int) ([]*LogEntry, error)

	Close() error
}
