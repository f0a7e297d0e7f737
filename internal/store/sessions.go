// Package store persists finished debug sessions to SQLite so past runs can
// be inspected from the CLI. Persistence is a convenience layer: the
// orchestrator never depends on it and a failed save never fails a session.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"codemedic/internal/logging"
	"codemedic/internal/session"
)

// SessionStore wraps the sessions database. Safe for concurrent use.
type SessionStore struct {
	db *sql.DB
	mu sync.RWMutex
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL,
	original_code   TEXT NOT NULL,
	final_code      TEXT NOT NULL DEFAULT '',
	detected_errors TEXT NOT NULL DEFAULT '[]',
	fix_attempts    TEXT NOT NULL DEFAULT '[]',
	started_at      TIMESTAMP NOT NULL,
	finished_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
`

// Open initializes the database at path, creating directories and schema as
// needed.
func Open(path string) (*SessionStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Store("session store opened at %s", path)
	return &SessionStore{db: db}, nil
}

// Close releases the database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Save persists a finished session. Saving the same session twice replaces
// the earlier row.
func (s *SessionStore) Save(state *session.DebugState) error {
	if state == nil || !state.Status.Terminal() {
		return fmt.Errorf("only terminal sessions can be saved")
	}

	errsJSON, err := json.Marshal(state.DetectedErrors)
	if err != nil {
		return fmt.Errorf("failed to encode detected errors: %w", err)
	}
	attemptsJSON, err := json.Marshal(state.Attempts)
	if err != nil {
		return fmt.Errorf("failed to encode attempts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO sessions
		 (id, status, original_code, final_code, detected_errors, fix_attempts, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		state.ID, string(state.Status), state.OriginalCode, state.FinalCode,
		string(errsJSON), string(attemptsJSON), state.StartedAt, state.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", state.ID, err)
	}

	logging.StoreDebug("session stored: id=%s status=%s attempts=%d",
		state.ID, state.Status, len(state.Attempts))
	return nil
}

// Get retrieves one session by id.
func (s *SessionStore) Get(id string) (*session.DebugState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT id, status, original_code, final_code, detected_errors, fix_attempts, started_at, finished_at
		 FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// SessionSummary is a lightweight listing row.
type SessionSummary struct {
	ID         string
	Status     session.Status
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// List returns the most recent sessions, newest first.
func (s *SessionStore) List(limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, status, fix_attempts, started_at, finished_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var status, attemptsJSON string
		if err := rows.Scan(&sum.ID, &status, &attemptsJSON, &sum.StartedAt, &sum.FinishedAt); err != nil {
			return nil, err
		}
		sum.Status = session.Status(status)
		var attempts []session.FixAttempt
		if err := json.Unmarshal([]byte(attemptsJSON), &attempts); err == nil {
			sum.Attempts = len(attempts)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.DebugState, error) {
	var state session.DebugState
	var status, errsJSON, attemptsJSON string

	err := row.Scan(&state.ID, &status, &state.OriginalCode, &state.FinalCode,
		&errsJSON, &attemptsJSON, &state.StartedAt, &state.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	state.Status = session.Status(status)
	if err := json.Unmarshal([]byte(errsJSON), &state.DetectedErrors); err != nil {
		return nil, fmt.Errorf("corrupt detected_errors for session %s: %w", state.ID, err)
	}
	if err := json.Unmarshal([]byte(attemptsJSON), &state.Attempts); err != nil {
		return nil, fmt.Errorf("corrupt fix_attempts for session %s: %w", state.ID, err)
	}
	return &state, nil
}
