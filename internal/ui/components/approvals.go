// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the relay TUI.
package components

import (
	"strings"

	"github.com/jeranaias/relay-tui/internal/agent"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// APPROVAL PROMPT
// =============================================================================

// ApprovalPrompt renders a pending tool-call approval with its
// approve/deny choice.
type ApprovalPrompt struct {
	theme *styles.Theme
}

// NewApprovalPrompt creates an approval prompt renderer.
func NewApprovalPrompt(theme *styles.Theme) *ApprovalPrompt {
	return &ApprovalPrompt{theme: theme}
}

// Render renders one approval. approveSelected highlights the approve
// button, otherwise deny is highlighted.
func (p *ApprovalPrompt) Render(approval agent.Approval, approveSelected bool, maxWidth int) string {
	if maxWidth < 30 {
		maxWidth = 30
	}

	var b strings.Builder
	b.WriteString(p.theme.ApprovalTitle.Render(
		styles.StatusIndicators.Warning + " tool call needs approval"))
	b.WriteString("\n\n")
	b.WriteString(p.theme.ApprovalTool.Render(approval.ToolName))
	if approval.Input != "" {
		b.WriteString("\n")
		b.WriteString(p.theme.SessionMeta.Render(
			util.TruncateRunes(util.CollapseNewlines(approval.Input), maxWidth-8)))
	}
	b.WriteString("\n\n")

	approve := p.theme.ApprovalButton.Render("Approve")
	deny := p.theme.ApprovalButton.Render("Deny")
	if approveSelected {
		approve = p.theme.ApprovalButtonActive.Render("Approve")
	} else {
		deny = p.theme.ApprovalButtonActive.Render("Deny")
	}
	b.WriteString(approve + deny)
	b.WriteString("\n")
	b.WriteString(p.theme.ShortcutDesc.Render("←/→ choose · Enter confirm · Esc dismiss"))

	return p.theme.ApprovalBox.MaxWidth(maxWidth).Render(b.String())
}
