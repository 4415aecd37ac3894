// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress aggregates live status events streamed by the agent.
package progress

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// PHASES, STATUSES, SEVERITIES
// =============================================================================

// Phase identifies which stage of a turn an event belongs to.
type Phase string

const (
	PhaseContext   Phase = "context"
	PhaseModel     Phase = "model"
	PhaseThinking  Phase = "thinking"
	PhaseTool      Phase = "tool"
	PhaseHeartbeat Phase = "heartbeat"
	PhaseResult    Phase = "result"
	PhaseError     Phase = "error"
)

// knownPhases is the set of phases accepted from the wire. Anything else
// is treated as a malformed event and dropped.
var knownPhases = map[Phase]bool{
	PhaseContext:   true,
	PhaseModel:     true,
	PhaseThinking:  true,
	PhaseTool:      true,
	PhaseHeartbeat: true,
	PhaseResult:    true,
	PhaseError:     true,
}

// Status is the reported outcome of an event.
type Status string

const (
	StatusStart   Status = "start"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// Severity is derived from Status and drives row styling.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityNormal Severity = "normal"
	SeverityHigh   Severity = "high"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one validated row of the live-progress timeline.
type Entry struct {
	ID        string
	Timestamp time.Time
	Phase     Phase
	Message   string
	Status    Status
	ToolName  string
	Snippet   string

	// Derived fields, refreshed on every merge.
	Severity Severity
	GroupKey string
}

// sameLogicalEvent reports whether two entries describe the same event
// for dedup purposes. Identity and derived fields are ignored.
func (e Entry) sameLogicalEvent(other Entry) bool {
	return e.Phase == other.Phase &&
		e.Message == other.Message &&
		e.Status == other.Status &&
		e.ToolName == other.ToolName &&
		e.Snippet == other.Snippet
}

// =============================================================================
// VALIDATION / NORMALIZATION
// =============================================================================

// Normalize validates a raw progress payload and fills in defaults.
// It returns nil for anything that is not a structurally well-formed
// progress event with a known phase and a string message; malformed
// events are dropped silently, never surfaced as errors.
func Normalize(payload map[string]any) *Entry {
	if payload == nil {
		return nil
	}

	phaseStr, ok := payload["phase"].(string)
	if !ok || !knownPhases[Phase(phaseStr)] {
		return nil
	}
	message, ok := payload["message"].(string)
	if !ok {
		return nil
	}

	e := &Entry{
		Phase:   Phase(phaseStr),
		Message: message,
		Status:  StatusInfo,
	}

	if id, ok := payload["id"].(string); ok && id != "" {
		e.ID = id
	} else {
		e.ID = uuid.NewString()
	}

	if ts, ok := payload["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = parsed
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	if status, ok := payload["status"].(string); ok {
		switch Status(status) {
		case StatusStart, StatusSuccess, StatusError, StatusInfo:
			e.Status = Status(status)
		}
	}

	if tool, ok := payload["toolName"].(string); ok {
		e.ToolName = tool
	}
	if snippet, ok := payload["snippet"].(string); ok {
		e.Snippet = snippet
	}

	e.Severity = deriveSeverity(e.Status)
	e.GroupKey = deriveGroupKey(e.Phase, e.ToolName)

	return e
}

// deriveSeverity maps a status onto a display severity.
func deriveSeverity(s Status) Severity {
	switch s {
	case StatusError:
		return SeverityHigh
	case StatusSuccess:
		return SeverityNormal
	default:
		return SeverityLow
	}
}

// deriveGroupKey builds the grouping key: "phase:tool" when a tool name
// is present, otherwise just the phase.
func deriveGroupKey(p Phase, tool string) string {
	if tool != "" {
		return string(p) + ":" + tool
	}
	return string(p)
}

// =============================================================================
// TIMELINE
// =============================================================================

// DefaultMaxEntries bounds the timeline length.
const DefaultMaxEntries = 12

// Timeline is the ordered progress timeline for the active streaming
// turn. It has exactly one owner and is mutated only on the UI event
// loop; Append is a strict left-fold over the inbound event stream.
type Timeline struct {
	entries    []Entry
	maxEntries int
}

// NewTimeline creates a timeline bounded to DefaultMaxEntries.
func NewTimeline() *Timeline {
	return &Timeline{maxEntries: DefaultMaxEntries}
}

// NewTimelineWithLimit creates a timeline with a custom bound.
func NewTimelineWithLimit(max int) *Timeline {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Timeline{maxEntries: max}
}

// Append folds one validated entry into the timeline.
//
// If the incoming entry is a field-for-field duplicate of the LAST entry
// (same phase, message, status, tool, snippet), the two merge: the
// existing entry keeps its ID but refreshes timestamp, severity, and
// group key to the incoming values. Non-adjacent repeats are kept as
// distinct entries so the narrative order of genuinely sequential phases
// survives. After appending, the timeline is truncated to the most
// recent maxEntries.
func (t *Timeline) Append(e Entry) {
	if n := len(t.entries); n > 0 && t.entries[n-1].sameLogicalEvent(e) {
		last := &t.entries[n-1]
		last.Timestamp = e.Timestamp
		last.Severity = e.Severity
		last.GroupKey = e.GroupKey
		return
	}

	t.entries = append(t.entries, e)
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
}

// Ingest validates a raw payload and appends it if well-formed.
// Returns true when the payload was accepted.
func (t *Timeline) Ingest(payload map[string]any) bool {
	e := Normalize(payload)
	if e == nil {
		return false
	}
	t.Append(*e)
	return true
}

// Entries returns the current timeline, oldest first.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Clear drops all entries. Called when a turn finishes or the user
// stops generation.
func (t *Timeline) Clear() {
	t.entries = t.entries[:0]
}
