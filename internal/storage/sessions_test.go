// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStoreWithPath(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("NewSessionStoreWithPath() error = %v", err)
	}
	return s
}

func TestSessionStoreEmptyOnFreshPath(t *testing.T) {
	s := newTestStore(t)
	if got := s.Sessions(); len(got) != 0 {
		t.Errorf("Sessions() = %v, want empty", got)
	}
	if got := s.Current(); got != "" {
		t.Errorf("Current() = %q, want empty", got)
	}
}

func TestSessionStoreUpsertFrontOrdering(t *testing.T) {
	s := newTestStore(t)

	base := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.UpsertFront(SessionMeta{ID: id, Title: id, Timestamp: base}); err != nil {
			t.Fatalf("UpsertFront(%q) error = %v", id, err)
		}
	}

	got := s.Sessions()
	if len(got) != 3 || got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
		t.Fatalf("Sessions() order = %v, want [c b a]", got)
	}

	// Touching an existing session promotes it without duplicating.
	if err := s.UpsertFront(SessionMeta{ID: "a", Title: "a2", LastMessage: "hi", Timestamp: base}); err != nil {
		t.Fatalf("UpsertFront() error = %v", err)
	}
	got = s.Sessions()
	if len(got) != 3 {
		t.Fatalf("Sessions() len = %d, want 3", len(got))
	}
	if got[0].ID != "a" || got[0].Title != "a2" || got[0].LastMessage != "hi" {
		t.Errorf("promoted session = %+v", got[0])
	}
}

func TestSessionStoreDeleteClearsCurrent(t *testing.T) {
	s := newTestStore(t)

	s.UpsertFront(SessionMeta{ID: "a"})
	s.UpsertFront(SessionMeta{ID: "b"})
	s.SetCurrent("a")

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if got := s.Sessions(); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("Sessions() = %v, want [b]", got)
	}
	if got := s.Current(); got != "" {
		t.Errorf("Current() = %q, want cleared", got)
	}
}

func TestSessionStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	s, _ := NewSessionStoreWithPath(path)
	s.UpsertFront(SessionMeta{ID: "a", Title: "first", MessageCount: 4})
	s.SetCurrent("a")

	reopened, _ := NewSessionStoreWithPath(path)
	got := reopened.Sessions()
	if len(got) != 1 || got[0].ID != "a" || got[0].MessageCount != 4 {
		t.Errorf("reopened Sessions() = %v", got)
	}
	if reopened.Current() != "a" {
		t.Errorf("reopened Current() = %q, want %q", reopened.Current(), "a")
	}
}

// Stale schema versions trigger a destructive reset: empty list, cleared
// current pointer, tag rewritten to the current version.
func TestSessionStoreStaleVersionResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	stale := map[string]any{
		"version": SchemaVersion - 1,
		"current": "old",
		"sessions": []map[string]any{
			{"id": "old", "title": "stale session"},
		},
	}
	data, _ := json.Marshal(stale)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s, _ := NewSessionStoreWithPath(path)
	if got := s.Sessions(); len(got) != 0 {
		t.Errorf("Sessions() after stale load = %v, want empty", got)
	}
	if got := s.Current(); got != "" {
		t.Errorf("Current() after stale load = %q, want cleared", got)
	}

	// The tag on disk must now be the current version.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("registry was not rewritten: %v", err)
	}
	var reg struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &reg); err != nil {
		t.Fatalf("rewritten registry unparseable: %v", err)
	}
	if reg.Version != SchemaVersion {
		t.Errorf("rewritten version = %d, want %d", reg.Version, SchemaVersion)
	}
}

func TestSessionStoreCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	os.WriteFile(path, []byte("{not json"), 0644)

	s, err := NewSessionStoreWithPath(path)
	if err != nil {
		t.Fatalf("NewSessionStoreWithPath() error = %v", err)
	}
	if got := s.Sessions(); len(got) != 0 {
		t.Errorf("Sessions() = %v, want empty", got)
	}
}
