// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/ui/components"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m Model) View() string {
	if !m.ready {
		return "starting relay…"
	}

	if m.showSessions {
		return m.overlayOn(m.renderSessionPicker())
	}
	if m.showApproval && len(m.approvals) > 0 {
		prompt := components.NewApprovalPrompt(m.theme)
		return m.overlayOn(prompt.Render(m.approvals[0], m.approvalYes, m.width-8))
	}

	var b strings.Builder

	b.WriteString(m.vp.View())
	b.WriteString("\n")

	// Scrolled away from the bottom: show the return badge instead of
	// the suggestion popup row.
	if m.scrollCtl.ShowBackToBottom() {
		b.WriteString(components.RenderBackToBottom(m.theme, m.scrollCtl.UnreadCount()))
		b.WriteString("\n")
	} else if m.suggest.Active() {
		b.WriteString(m.popup.Render(m.suggest.items, m.suggest.selected, m.width-4))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(components.RenderStatusBar(m.theme, m.statusInfo(), m.width))

	screen := b.String()
	if m.toasts.HasToasts() {
		screen = lipgloss.JoinVertical(lipgloss.Left,
			screen,
			components.RenderToastStack(m.toasts.Toasts(), m.width, m.height),
		)
	}
	return screen
}

// statusInfo assembles the status bar contents.
func (m Model) statusInfo() components.StatusInfo {
	title := m.sessionID
	if meta, ok := m.store.Get(m.sessionID); ok && meta.Title != "" {
		title = meta.Title
	}
	return components.StatusInfo{
		SessionTitle: util.TruncateRunes(title, 32),
		Streaming:    m.streaming,
		Readonly:     m.perms.Readonly,
		Channel:      m.channel,
		Unread:       m.scrollCtl.UnreadCount(),
	}
}

// overlayOn centers an overlay over a dimmed-down base screen.
func (m Model) overlayOn(overlay string) string {
	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		overlay,
	)
}

// renderSessionPicker renders the session switcher overlay.
func (m Model) renderSessionPicker() string {
	sessions := m.store.Sessions()

	var b strings.Builder
	b.WriteString(m.theme.SessionTitle.Render("Sessions"))
	b.WriteString("\n\n")

	if len(sessions) == 0 {
		b.WriteString(m.theme.SessionMeta.Render("no saved sessions — press n to start one"))
	}

	for i, meta := range sessions {
		label := meta.Title
		if label == "" {
			label = meta.ID
		}
		line := util.TruncateRunes(label, 40)
		if meta.ID == m.sessionID {
			line += " (current)"
		}

		style := m.theme.SessionItem
		prefix := "  "
		if i == m.sessionSel {
			style = m.theme.SessionItemSelected
			prefix = "▸ "
		}
		b.WriteString(style.Render(prefix + line))
		b.WriteString("\n")

		if last := util.CollapseNewlines(meta.LastMessage); last != "" {
			b.WriteString(m.theme.SessionMeta.Render("    " + util.TruncateRunes(last, 44)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.SessionMeta.Render("↑/↓ select · Enter open · n new · d delete · Esc close"))

	return m.theme.Container.Render(b.String())
}
