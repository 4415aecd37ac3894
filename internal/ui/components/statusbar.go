// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the relay TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/ui/styles"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusInfo is everything the status bar displays.
type StatusInfo struct {
	SessionTitle string
	Streaming    bool
	Readonly     bool
	Channel      string // "http" or "direct", empty when disconnected
	Unread       int
}

// RenderStatusBar renders the single-line status bar at the bottom of
// the screen.
func RenderStatusBar(theme *styles.Theme, info StatusInfo, width int) string {
	var left []string

	title := info.SessionTitle
	if title == "" {
		title = "new session"
	}
	left = append(left, theme.SessionTitle.Render(util.TruncateRunes(title, 32)))

	if info.Streaming {
		left = append(left, theme.Spinner.Render("streaming…"))
	}
	if info.Readonly {
		left = append(left, theme.WarningStyle.Render("read-only"))
	}
	if info.Unread > 0 {
		left = append(left, theme.UnreadCount.Render(util.IntToString(info.Unread)+" new"))
	}

	var right string
	switch info.Channel {
	case "http":
		right = theme.SuccessStyle.Render(styles.StatusIndicators.Info + " api")
	case "direct":
		right = theme.WarningStyle.Render(styles.StatusIndicators.Info + " direct")
	default:
		right = theme.ErrorStyle.Render(styles.StatusIndicators.Error + " offline")
	}

	leftStr := strings.Join(left, "  ")
	// lipgloss.Width ignores the ANSI styling escapes.
	gap := width - lipgloss.Width(leftStr) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return theme.StatusBar.Render(leftStr + strings.Repeat(" ", gap) + right)
}
