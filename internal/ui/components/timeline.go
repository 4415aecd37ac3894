// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the relay TUI.
package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/relay-tui/internal/progress"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// ACTIVITY TIMELINE
// =============================================================================

// TimelineView renders the live tool-activity timeline shown while the
// agent is working on a turn.
type TimelineView struct {
	theme *styles.Theme
}

// NewTimelineView creates a timeline renderer.
func NewTimelineView(theme *styles.Theme) *TimelineView {
	return &TimelineView{theme: theme}
}

// Render renders all timeline entries, newest last.
func (v *TimelineView) Render(entries []progress.Entry, maxWidth int) string {
	if len(entries) == 0 {
		return ""
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	var rows []string
	for _, entry := range entries {
		rows = append(rows, v.renderEntry(entry, maxWidth))
	}
	return strings.Join(rows, "\n")
}

func (v *TimelineView) renderEntry(entry progress.Entry, maxWidth int) string {
	icon, iconStyle := v.severityIndicator(entry)

	message := util.CollapseNewlines(entry.Message)
	line := iconStyle.Render(icon) + " " + message
	if entry.ToolName != "" {
		line += " " + v.theme.TimelineTool.Render("["+entry.ToolName+"]")
	}
	line = runewidth.Truncate(line, maxWidth-2, "…")
	row := v.theme.TimelineRow.Render(line)

	if entry.Snippet != "" {
		row += "\n" + v.theme.TimelineSnippet.Render(
			highlightSnippet(entry.Snippet, maxWidth-6))
	}
	return row
}

func (v *TimelineView) severityIndicator(entry progress.Entry) (string, styleRenderer) {
	switch entry.Severity {
	case progress.SeverityHigh:
		return styles.StatusIndicators.Error, v.theme.TimelineHigh
	case progress.SeverityNormal:
		return styles.StatusIndicators.Success, v.theme.TimelineNormal
	default:
		return styles.StatusIndicators.Pending, v.theme.TimelineLow
	}
}

// styleRenderer is the minimal rendering surface of a lipgloss.Style.
type styleRenderer interface {
	Render(...string) string
}

// =============================================================================
// SNIPPET HIGHLIGHTING
// =============================================================================

// highlightSnippet applies syntax highlighting to a tool output snippet.
// Language is detected from content; on any failure the plain text is
// returned unchanged.
func highlightSnippet(snippet string, maxWidth int) string {
	snippet = strings.TrimRight(snippet, "\n")
	if maxWidth > 0 {
		var lines []string
		for _, line := range strings.Split(snippet, "\n") {
			lines = append(lines, runewidth.Truncate(line, maxWidth, "…"))
		}
		snippet = strings.Join(lines, "\n")
	}

	lexer := lexers.Analyse(snippet)
	if lexer == nil {
		return snippet
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, snippet)
	if err != nil {
		return snippet
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return snippet
	}
	return buf.String()
}
