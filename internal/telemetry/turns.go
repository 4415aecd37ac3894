// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var ErrDatabaseError = errors.New("database error")

// =============================================================================
// TURN RECORDS
// =============================================================================

// Channel names which transport served a turn.
type Channel string

const (
	ChannelHTTP   Channel = "http"
	ChannelDirect Channel = "direct"
)

// TurnRecord is one completed turn.
type TurnRecord struct {
	ID            int64
	SessionID     string
	Channel       Channel
	Duration      time.Duration
	TextParts     int
	ProgressParts int
	Chars         int
	Failed        bool
	Timestamp     time.Time
}

// Summary aggregates turn statistics over a time window.
type Summary struct {
	Turns         int
	Failures      int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	TotalChars    int
}

// =============================================================================
// STORE
// =============================================================================

const turnsSchema = `
CREATE TABLE IF NOT EXISTS turns (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	channel        TEXT NOT NULL,
	duration_ms    INTEGER NOT NULL,
	text_parts     INTEGER NOT NULL,
	progress_parts INTEGER NOT NULL,
	chars          INTEGER NOT NULL,
	failed         INTEGER NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
`

// Store persists turn records to a local SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the turn database. An empty path defaults to
// ~/.relay/turns.db.
func Open(path string) (*Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(homeDir, ".relay", "turns.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(turnsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record persists one completed turn. A zero Timestamp is filled with
// the current time.
func (s *Store) Record(rec TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrDatabaseError
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	failed := 0
	if rec.Failed {
		failed = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO turns (session_id, channel, duration_ms, text_parts, progress_parts, chars, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, string(rec.Channel), rec.Duration.Milliseconds(),
		rec.TextParts, rec.ProgressParts, rec.Chars, failed, rec.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Recent returns up to limit turns for a session, newest first.
func (s *Store) Recent(sessionID string, limit int) ([]TurnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrDatabaseError
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, session_id, channel, duration_ms, text_parts, progress_parts, chars, failed, created_at
		FROM turns WHERE session_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var records []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var durationMs, createdAt int64
		var channel string
		var failed int
		if err := rows.Scan(&rec.ID, &rec.SessionID, &channel, &durationMs,
			&rec.TextParts, &rec.ProgressParts, &rec.Chars, &failed, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		rec.Channel = Channel(channel)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Failed = failed != 0
		rec.Timestamp = time.Unix(createdAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary aggregates all turns in [from, to].
func (s *Store) Summary(from, to time.Time) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return Summary{}, ErrDatabaseError
	}

	var sum Summary
	var totalMs sql.NullInt64
	var totalChars sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(failed), 0), SUM(duration_ms), SUM(chars)
		FROM turns WHERE created_at >= ? AND created_at <= ?
	`, from.Unix(), to.Unix()).Scan(&sum.Turns, &sum.Failures, &totalMs, &totalChars)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if totalMs.Valid {
		sum.TotalDuration = time.Duration(totalMs.Int64) * time.Millisecond
	}
	if totalChars.Valid {
		sum.TotalChars = int(totalChars.Int64)
	}
	if sum.Turns > 0 {
		sum.AvgDuration = sum.TotalDuration / time.Duration(sum.Turns)
	}
	return sum, nil
}

// DeleteSession drops all turn records for one session.
func (s *Store) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrDatabaseError
	}
	if _, err := s.db.Exec("DELETE FROM turns WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}
