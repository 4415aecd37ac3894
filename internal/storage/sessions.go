// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable session registry for the relay TUI.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/relay-tui/internal/util"
)

// NewSessionID mints an identifier for a fresh session.
func NewSessionID() string {
	return uuid.NewString()
}

// SchemaVersion tags the on-disk registry format. A mismatch on load
// discards the whole registry rather than attempting a partial upgrade;
// session metadata is a cache of conversational history, not a source
// of truth, so a destructive reset is acceptable.
const SchemaVersion = 2

// =============================================================================
// SESSION METADATA
// =============================================================================

// SessionMeta is the persisted record for one conversation session.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"message_count"`
}

// registryFile is the on-disk shape of the session registry.
type registryFile struct {
	Version  int           `json:"version"`
	Current  string        `json:"current,omitempty"`
	Sessions []SessionMeta `json:"sessions"`
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore owns the persisted session list and the current-session
// pointer. It is the only writer of that file; all mutation goes through
// its methods.
type SessionStore struct {
	mu   sync.Mutex
	path string

	current  string
	sessions []SessionMeta
}

// NewSessionStore creates a store backed by ~/.relay/sessions.json and
// loads the existing registry (applying the migration policy).
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStoreWithPath(filepath.Join(homeDir, ".relay", "sessions.json"))
}

// NewSessionStoreWithPath creates a store backed by a custom file path.
func NewSessionStoreWithPath(path string) (*SessionStore, error) {
	s := &SessionStore{path: path}
	s.load()
	return s, nil
}

// =============================================================================
// LOAD / MIGRATION
// =============================================================================

// load reads the registry from disk. Any failure - missing file, parse
// error, stale schema version - degrades to an empty registry. A stale
// version additionally rewrites the file so the tag is current again.
func (s *SessionStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.current = ""

	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var reg registryFile
	if err := json.Unmarshal(data, &reg); err != nil {
		return
	}

	if reg.Version != SchemaVersion {
		// Destructive migration: drop everything, rewrite the tag.
		s.persistLocked()
		return
	}

	s.sessions = reg.Sessions
	s.current = reg.Current
}

// Reload re-reads the registry from disk, applying the same migration
// policy as initial load.
func (s *SessionStore) Reload() {
	s.load()
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Sessions returns the session list, most recently active first.
func (s *SessionStore) Sessions() []SessionMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionMeta, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Current returns the current-session pointer ("" when unset).
func (s *SessionStore) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Get returns the session with the given ID, if present.
func (s *SessionStore) Get(id string) (SessionMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meta := range s.sessions {
		if meta.ID == id {
			return meta, true
		}
	}
	return SessionMeta{}, false
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// SetCurrent updates the current-session pointer and persists.
func (s *SessionStore) SetCurrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	return s.persistLocked()
}

// UpsertFront updates a session's fields and moves it to the front of the
// ordering, or inserts a new record at the front if unseen.
func (s *SessionStore) UpsertFront(meta SessionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	rest := make([]SessionMeta, 0, len(s.sessions)+1)
	for _, existing := range s.sessions {
		if existing.ID != meta.ID {
			rest = append(rest, existing)
		}
	}
	s.sessions = append([]SessionMeta{meta}, rest...)

	return s.persistLocked()
}

// Delete removes a session by ID. Deleting the current session clears
// the current-session pointer.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sessions[:0]
	for _, meta := range s.sessions {
		if meta.ID != id {
			kept = append(kept, meta)
		}
	}
	s.sessions = kept

	if s.current == id {
		s.current = ""
	}

	return s.persistLocked()
}

// SaveAll replaces the whole session list (full overwrite).
func (s *SessionStore) SaveAll(sessions []SessionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make([]SessionMeta, len(sessions))
	copy(s.sessions, sessions)
	return s.persistLocked()
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persistLocked writes the registry to disk. Caller must hold s.mu.
func (s *SessionStore) persistLocked() error {
	reg := registryFile{
		Version:  SchemaVersion,
		Current:  s.current,
		Sessions: s.sessions,
	}
	if reg.Sessions == nil {
		reg.Sessions = []SessionMeta{}
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.path, data, 0644)
}
