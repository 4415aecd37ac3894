// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the relay TUI.
package components

import (
	"github.com/jeranaias/relay-tui/internal/ui/styles"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// BACK-TO-BOTTOM BADGE
// =============================================================================

// RenderBackToBottom renders the floating badge shown when the user has
// scrolled far enough from the live tail. unread is the number of
// messages that arrived while paused; zero hides the counter.
func RenderBackToBottom(theme *styles.Theme, unread int) string {
	label := "↓ back to bottom"
	badge := theme.BackToBottomBadge.Render(label)
	if unread > 0 {
		badge += " " + theme.UnreadCount.Render(util.IntToString(unread)+" new")
	}
	return badge
}
