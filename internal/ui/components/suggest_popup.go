// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the relay TUI.
package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/relay-tui/internal/suggest"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// SUGGESTION POPUP
// =============================================================================

// SuggestPopup renders the completion popup anchored above the input.
type SuggestPopup struct {
	theme *styles.Theme
}

// NewSuggestPopup creates a suggestion popup renderer.
func NewSuggestPopup(theme *styles.Theme) *SuggestPopup {
	return &SuggestPopup{theme: theme}
}

// Render renders the popup for the given items with one selected row.
// Returns "" when there is nothing to show.
func (p *SuggestPopup) Render(items []suggest.Item, selected, maxWidth int) string {
	if len(items) == 0 {
		return ""
	}
	if maxWidth < 24 {
		maxWidth = 24
	}

	// Column widths from content, capped so long tool descriptions
	// cannot push the popup off screen.
	// UNICODE: measure display cells, not bytes.
	labelWidth := 0
	for _, item := range items {
		if w := runewidth.StringWidth(item.Label); w > labelWidth {
			labelWidth = w
		}
	}
	if labelWidth > maxWidth/2 {
		labelWidth = maxWidth / 2
	}
	descWidth := maxWidth - labelWidth - 6

	var rows []string
	for i, item := range items {
		trigger := p.theme.SuggestTrigger.Render(string(item.Trigger))
		label := runewidth.FillRight(runewidth.Truncate(item.Label, labelWidth, "…"), labelWidth)

		desc := item.Description
		if descWidth > 0 {
			desc = runewidth.Truncate(desc, descWidth, "…")
		} else {
			desc = ""
		}

		row := trigger + " " + label
		if desc != "" {
			row += "  " + p.theme.SuggestDesc.Render(desc)
		}

		if i == selected {
			row = p.theme.SuggestSelected.Render("▸ " + row)
		} else {
			row = p.theme.SuggestItem.Render("  " + row)
		}
		rows = append(rows, row)
	}

	return p.theme.SuggestPopup.Render(strings.Join(rows, "\n"))
}

// Height returns the rendered popup height for the given item count,
// including the border rows.
func (p *SuggestPopup) Height(itemCount int) int {
	if itemCount == 0 {
		return 0
	}
	return itemCount + 2
}
