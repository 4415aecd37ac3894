// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package progress

import (
	"testing"
	"time"
)

func TestNormalizeRejectsMalformedPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"nil payload", nil},
		{"empty payload", map[string]any{}},
		{"unknown phase", map[string]any{"phase": "warp", "message": "hi"}},
		{"missing message", map[string]any{"phase": "tool"}},
		{"non-string message", map[string]any{"phase": "tool", "message": 42}},
		{"non-string phase", map[string]any{"phase": 7, "message": "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.payload); got != nil {
				t.Errorf("Normalize() = %+v, want nil", got)
			}
		})
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	e := Normalize(map[string]any{"phase": "tool", "message": "running grep"})
	if e == nil {
		t.Fatal("Normalize() = nil, want entry")
	}
	if e.ID == "" {
		t.Error("missing ID was not generated")
	}
	if e.Timestamp.IsZero() {
		t.Error("missing timestamp was not defaulted")
	}
	if e.Status != StatusInfo {
		t.Errorf("Status = %q, want default %q", e.Status, StatusInfo)
	}
	if e.Severity != SeverityLow {
		t.Errorf("Severity = %q, want %q", e.Severity, SeverityLow)
	}
	if e.GroupKey != "tool" {
		t.Errorf("GroupKey = %q, want %q", e.GroupKey, "tool")
	}
}

func TestNormalizeDerivations(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		toolName     string
		wantSeverity Severity
		wantGroupKey string
	}{
		{"error is high", "error", "", SeverityHigh, "tool"},
		{"success is normal", "success", "", SeverityNormal, "tool"},
		{"start is low", "start", "", SeverityLow, "tool"},
		{"unknown status defaults to info/low", "bogus", "", SeverityLow, "tool"},
		{"tool name joins group key", "start", "grep", SeverityLow, "tool:grep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := map[string]any{"phase": "tool", "message": "m", "status": tt.status}
			if tt.toolName != "" {
				payload["toolName"] = tt.toolName
			}
			e := Normalize(payload)
			if e == nil {
				t.Fatal("Normalize() = nil")
			}
			if e.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", e.Severity, tt.wantSeverity)
			}
			if e.GroupKey != tt.wantGroupKey {
				t.Errorf("GroupKey = %q, want %q", e.GroupKey, tt.wantGroupKey)
			}
		})
	}
}

func TestNormalizePreservesProvidedIdentity(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Normalize(map[string]any{
		"phase":     "model",
		"message":   "generating",
		"id":        "evt-1",
		"timestamp": ts.Format(time.RFC3339),
	})
	if e == nil {
		t.Fatal("Normalize() = nil")
	}
	if e.ID != "evt-1" {
		t.Errorf("ID = %q, want %q", e.ID, "evt-1")
	}
	if !e.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, ts)
	}
}

// Two structurally identical events submitted back-to-back yield a
// timeline one entry longer than before the first, not two.
func TestTimelineAdjacentDuplicatesMerge(t *testing.T) {
	tl := NewTimeline()

	first := *Normalize(map[string]any{"phase": "heartbeat", "message": "still thinking"})
	second := *Normalize(map[string]any{"phase": "heartbeat", "message": "still thinking"})
	second.Timestamp = first.Timestamp.Add(2 * time.Second)

	tl.Append(first)
	tl.Append(second)

	if tl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tl.Len())
	}

	merged := tl.Entries()[0]
	if merged.ID != first.ID {
		t.Errorf("merged ID = %q, want first occurrence's %q", merged.ID, first.ID)
	}
	if !merged.Timestamp.Equal(second.Timestamp) {
		t.Errorf("merged Timestamp = %v, want refreshed %v", merged.Timestamp, second.Timestamp)
	}
}

// Repeats interleaved with other events stay distinct entries.
func TestTimelineNonAdjacentDuplicatesKept(t *testing.T) {
	tl := NewTimeline()

	heartbeat := map[string]any{"phase": "heartbeat", "message": "still thinking"}
	tool := map[string]any{"phase": "tool", "message": "running grep"}

	tl.Ingest(heartbeat)
	tl.Ingest(tool)
	tl.Ingest(heartbeat)

	if tl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tl.Len())
	}
}

// Appending more than the bound always leaves exactly the most recent 12.
func TestTimelineBounded(t *testing.T) {
	tl := NewTimeline()

	// Distinct messages so nothing merges.
	for i := 0; i < 20; i++ {
		tl.Append(Entry{
			ID:      "id-" + string(rune('a'+i)),
			Phase:   PhaseTool,
			Message: "step " + string(rune('a'+i)),
			Status:  StatusInfo,
		})
	}

	if tl.Len() != DefaultMaxEntries {
		t.Fatalf("Len() = %d, want %d", tl.Len(), DefaultMaxEntries)
	}
	entries := tl.Entries()
	if entries[0].Message != "step i" {
		t.Errorf("oldest retained = %q, want %q", entries[0].Message, "step i")
	}
	if entries[len(entries)-1].Message != "step t" {
		t.Errorf("newest retained = %q, want %q", entries[len(entries)-1].Message, "step t")
	}
}

func TestTimelineIngestDropsMalformed(t *testing.T) {
	tl := NewTimeline()
	if tl.Ingest(map[string]any{"phase": "nope", "message": "x"}) {
		t.Error("Ingest() accepted a malformed payload")
	}
	if tl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tl.Len())
	}
}

func TestTimelineClear(t *testing.T) {
	tl := NewTimeline()
	tl.Ingest(map[string]any{"phase": "model", "message": "generating"})
	tl.Clear()
	if tl.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", tl.Len())
	}
}
