// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
//
// This file holds the suggestion popup state machine. It is pure
// state-in, state-out so the keyboard contract is directly testable:
// Up/Down cycle with wraparound, Enter applies without submitting,
// Escape closes, and any edit re-parses the trigger token.
package chat

import (
	"github.com/jeranaias/relay-tui/internal/suggest"
)

// =============================================================================
// SUGGESTION STATE
// =============================================================================

// suggestState tracks the open suggestion popup. limit is the
// configured candidate cap; zero means the package default.
type suggestState struct {
	token    *suggest.Token
	items    []suggest.Item
	selected int
	limit    int
}

// Active reports whether the popup is open with at least one item.
func (s *suggestState) Active() bool {
	return s.token != nil && len(s.items) > 0
}

// Refresh re-parses the input at the caret against the current catalog.
// Called after every edit; closes the popup when no trigger token is
// under the caret or nothing matches.
func (s *suggestState) Refresh(input string, caret int, catalog []suggest.Item) {
	token := suggest.ParseToken(input, caret)
	if token == nil {
		s.Close()
		return
	}

	items := suggest.FilterN(catalog, *token, s.limit)
	if len(items) == 0 {
		s.Close()
		return
	}

	// Keep the selection on the same item across a refresh when it
	// survived filtering; otherwise snap to the top.
	keep := 0
	if s.token != nil && s.selected < len(s.items) {
		prev := s.items[s.selected].ID
		for i, item := range items {
			if item.ID == prev {
				keep = i
				break
			}
		}
	}

	s.token = token
	s.items = items
	s.selected = keep
}

// Next moves the selection down, wrapping past the end.
func (s *suggestState) Next() {
	if !s.Active() {
		return
	}
	s.selected = (s.selected + 1) % len(s.items)
}

// Prev moves the selection up, wrapping past the start.
func (s *suggestState) Prev() {
	if !s.Active() {
		return
	}
	s.selected = (s.selected - 1 + len(s.items)) % len(s.items)
}

// Apply splices the selected suggestion into the input. Returns the new
// input, the caret position after the inserted text, and whether a
// suggestion was applied. Applying closes the popup; it never submits.
func (s *suggestState) Apply(input string) (string, int, bool) {
	if !s.Active() {
		return input, -1, false
	}
	newInput, caret := suggest.Apply(input, *s.token, s.items[s.selected].Value)
	s.Close()
	return newInput, caret, true
}

// Close dismisses the popup.
func (s *suggestState) Close() {
	s.token = nil
	s.items = nil
	s.selected = 0
}
