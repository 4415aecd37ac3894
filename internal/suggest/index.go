// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest implements trigger-token completion for the composer.
package suggest

import (
	"sort"
	"strings"

	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// SUGGESTION ITEMS
// =============================================================================

// Section groups suggestions in the popup.
type Section string

const (
	SectionTools    Section = "tools"
	SectionSessions Section = "sessions"
	SectionActions  Section = "actions"
)

// Static priority weights. Higher sorts first.
const (
	priorityTool       = 100
	prioritySession    = 80
	priorityNewSession = 60
	priorityStop       = 50
)

// MaxSuggestions caps the ranked candidate list.
const MaxSuggestions = 8

// Item is one completion candidate.
type Item struct {
	ID          string
	Trigger     rune
	Label       string
	Description string
	Value       string
	Section     Section
	Keywords    []string
	Priority    int
}

// ToolInfo is the slice of agent tool state this package needs.
type ToolInfo struct {
	Name        string
	Description string
}

// =============================================================================
// INDEX BUILDING
// =============================================================================

// BuildItems assembles the full candidate list from the live sources:
// '@' for agent tools, '#' for saved sessions, '!' for quick actions.
// The list is rebuilt on every render; nothing here is persisted.
func BuildItems(tools []ToolInfo, sessions []storage.SessionMeta, streaming bool) []Item {
	items := make([]Item, 0, len(tools)+len(sessions)+2)

	for _, tool := range tools {
		items = append(items, Item{
			ID:          "tool:" + tool.Name,
			Trigger:     '@',
			Label:       tool.Name,
			Description: tool.Description,
			Value:       tool.Name,
			Section:     SectionTools,
			Priority:    priorityTool,
		})
	}

	for _, meta := range sessions {
		label := meta.Title
		if label == "" {
			label = meta.ID
		}
		items = append(items, Item{
			ID:          "session:" + meta.ID,
			Trigger:     '#',
			Label:       label,
			Description: util.TruncateRunes(util.CollapseNewlines(meta.LastMessage), 40),
			Value:       meta.ID,
			Section:     SectionSessions,
			Keywords:    []string{meta.ID},
			Priority:    prioritySession,
		})
	}

	items = append(items, Item{
		ID:          "action:new",
		Trigger:     '!',
		Label:       "new",
		Description: "Start a new session",
		Value:       "new",
		Section:     SectionActions,
		Keywords:    []string{"session", "create"},
		Priority:    priorityNewSession,
	})

	if streaming {
		items = append(items, Item{
			ID:          "action:stop",
			Trigger:     '!',
			Label:       "stop",
			Description: "Stop the current response",
			Value:       "stop",
			Section:     SectionActions,
			Keywords:    []string{"cancel", "abort"},
			Priority:    priorityStop,
		})
	}

	return items
}

// =============================================================================
// FILTERING / RANKING
// =============================================================================

// Filter scopes items to the token's trigger, narrows by the query as a
// case-insensitive substring over label, value, and keywords, then sorts
// by descending priority (stable) and caps to MaxSuggestions.
func Filter(items []Item, tok Token) []Item {
	return FilterN(items, tok, MaxSuggestions)
}

// FilterN is Filter with a caller-supplied cap; the configured
// suggest.max_suggestions is threaded through here. A non-positive max
// falls back to MaxSuggestions.
func FilterN(items []Item, tok Token, max int) []Item {
	if max <= 0 {
		max = MaxSuggestions
	}

	var matched []Item
	query := strings.ToLower(tok.Query)

	for _, item := range items {
		if item.Trigger != tok.Trigger {
			continue
		}
		if query != "" && !matchesQuery(item, query) {
			continue
		}
		matched = append(matched, item)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	if len(matched) > max {
		matched = matched[:max]
	}
	return matched
}

// matchesQuery reports whether the lowercased query appears in the
// item's label, value, or any keyword.
func matchesQuery(item Item, query string) bool {
	if strings.Contains(strings.ToLower(item.Label), query) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Value), query) {
		return true
	}
	for _, kw := range item.Keywords {
		if strings.Contains(strings.ToLower(kw), query) {
			return true
		}
	}
	return false
}
