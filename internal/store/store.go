package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aakarsh-hub/pmcopilot/internal/meeting"
)

// ErrNotFound indicates no meeting exists with the requested id.
var ErrNotFound = errors.New("meeting not found")

// PublishFunc is the callback invoked after every successful mutation so
// observers see the updated Meeting.
type PublishFunc func(m *meeting.Meeting)

// Store persists meetings as JSON blobs in a single SQLite table. Each
// mutation is one statement, so no reader ever observes a half-written row.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	publish PublishFunc
}

// New opens (creating if needed) the SQLite database at dbPath.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection serializes
	// writes and avoids SQLITE_BUSY under concurrent derivations.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS meetings (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			data TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate meetings table: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.db.Close()
}

// SetPublisher wires the observer callback fired after each mutation.
func (s *Store) SetPublisher(fn PublishFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish = fn
}

func (s *Store) republish(m *meeting.Meeting) {
	s.mu.Lock()
	fn := s.publish
	s.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

// Create inserts a new meeting. The id must not already exist.
func (s *Store) Create(ctx context.Context, m *meeting.Meeting) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meeting: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, created_at, data) VALUES (?, ?, ?)`,
		m.ID, m.Date, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	slog.Debug("store: meeting created", "meeting_id", m.ID)
	s.republish(m)
	return nil
}

// Update replaces the identified meeting wholesale. The caller supplies the
// fully-merged next value; no field-level merging happens here.
func (s *Store) Update(ctx context.Context, m *meeting.Meeting) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meeting: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET data = ? WHERE id = ?`,
		string(data), m.ID,
	)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update meeting %s: %w", m.ID, ErrNotFound)
	}
	slog.Debug("store: meeting updated", "meeting_id", m.ID, "status", m.Status)
	s.republish(m)
	return nil
}

// Get returns the meeting with the given id.
func (s *Store) Get(ctx context.Context, id string) (*meeting.Meeting, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM meetings WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get meeting %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	var m meeting.Meeting
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal meeting %s: %w", id, err)
	}
	return &m, nil
}

// List returns all meetings, newest first.
func (s *Store) List(ctx context.Context) ([]*meeting.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM meetings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var out []*meeting.Meeting
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan meeting row: %w", err)
		}
		var m meeting.Meeting
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			slog.Warn("store: skipping undecodable meeting row", "error", err)
			continue
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
