// Package storage provides SQLite recording of raw provider stream events.
//
// A recording is the ordered list of vendor events seen during one streamed
// reply. Replaying it through the matching stream fold reproduces the reply
// without a network call.
//
// Information Hiding:
// - SQLite connection management hidden behind SqliteStorage
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a recording does not exist.
var ErrNotFound = errors.New("recording not found")

// Recording describes one recorded stream.
type Recording struct {
	ID        string
	Provider  string
	Model     string
	CreatedAt time.Time
	Events    int
}

// SqliteStorage stores recordings in a SQLite database file.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newStorage(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newStorage(db)
}

func newStorage(db *sql.DB) (*SqliteStorage, error) {
	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			recording_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			raw BLOB NOT NULL,
			FOREIGN KEY (recording_id) REFERENCES recordings(id) ON DELETE CASCADE,
			PRIMARY KEY (recording_id, seq)
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateRecording starts a new recording and returns its ID.
func (s *SqliteStorage) CreateRecording(ctx context.Context, provider, model string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO recordings (id, provider, model, created_at) VALUES (?, ?, ?, ?)",
		id, provider, model, time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create recording: %w", err)
	}
	return id, nil
}

// AppendEvent stores raw as event seq of the recording.
func (s *SqliteStorage) AppendEvent(ctx context.Context, id string, seq int, raw []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (recording_id, seq, raw) VALUES (?, ?, ?)",
		id, seq, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to append event %d to %s: %w", seq, id, err)
	}
	return nil
}

// Events returns the raw events of a recording in sequence order.
func (s *SqliteStorage) Events(ctx context.Context, id string) ([][]byte, error) {
	if _, err := s.Recording(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT raw FROM events WHERE recording_id = ? ORDER BY seq",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := [][]byte{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, raw)
	}
	return events, rows.Err()
}

const recordingColumns = `
	SELECT r.id, r.provider, r.model, r.created_at,
		(SELECT COUNT(*) FROM events e WHERE e.recording_id = r.id)
	FROM recordings r`

// Recording returns the recording with the given ID.
func (s *SqliteStorage) Recording(ctx context.Context, id string) (Recording, error) {
	row := s.db.QueryRowContext(ctx, recordingColumns+" WHERE r.id = ?", id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("failed to load recording: %w", err)
	}
	return rec, nil
}

// List returns all recordings, newest first.
func (s *SqliteStorage) List(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, recordingColumns+" ORDER BY r.created_at DESC, r.rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	recordings := []Recording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

// Delete removes a recording and its events.
func (s *SqliteStorage) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM recordings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(row scanner) (Recording, error) {
	var rec Recording
	var createdAt int64
	if err := row.Scan(&rec.ID, &rec.Provider, &rec.Model, &createdAt, &rec.Events); err != nil {
		return Recording{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return rec, nil
}
