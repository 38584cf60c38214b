// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides note and log persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS notes (
			owner TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (owner, key)
		);

		CREATE TABLE IF NOT EXISTS log_entries (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			message TEXT NOT NULL,
			level TEXT NOT NULL DEFAULT 'info',
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_log_entries_owner_created
			ON log_entries(owner, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SetNote creates or replaces a note.
func (s *SQLiteStore) SetNote(ctx context.Context, note *Note) error {
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (owner, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, note.Owner, note.Key, note.Value, note.UpdatedAt.Format(time.RFC3339))

	return err
}

// GetNote returns a note by owner and key, or ErrNotFound.
func (s *SQLiteStore) GetNote(ctx context.Context, owner, key string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT owner, key, value, updated_at FROM notes WHERE owner = ? AND key = ?
	`, owner, key)

	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: note %q", ErrNotFound, key)
	}
	return note, err
}

// ListNotes returns every note for the owner ordered by key.
func (s *SQLiteStore) ListNotes(ctx context.Context, owner string) ([]*Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, key, value, updated_at FROM notes WHERE owner = ? ORDER BY key
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// DeleteNote removes a note, returning ErrNotFound if it does not exist.
func (s *SQLiteStore) DeleteNote(ctx context.Context, owner, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE owner = ? AND key = ?`, owner, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: note %q", ErrNotFound, key)
	}
	return nil
}

// AppendLog records one log entry.
func (s *SQLiteStore) AppendLog(ctx context.Context, entry *LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Level == "" {
		entry.Level = "info"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries (id, owner, message, level, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.Owner, entry.Message, entry.Level, entry.CreatedAt.Format(time.RFC3339))

	return err
}

// SearchLogs returns log entries matching the query, newest first.
func (s *SQLiteStore) SearchLogs(ctx context.Context, owner, query string, limit int) ([]*LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, message, level, created_at FROM log_entries
		WHERE owner = ? AND message LIKE ?
		ORDER BY created_at DESC
		LIMIT ?
	`, owner, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var e LogEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Owner, &e.Message, &e.Level, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanNote.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(sc scanner) (*Note, error) {
	var n Note
	var updatedAt string
	if err := sc.Scan(&n.Owner, &n.Key, &n.Value, &updatedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	n.UpdatedAt = t
	return &n, nil
}
