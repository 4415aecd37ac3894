// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
package chat

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relay-tui/internal/agent"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE LIST
// =============================================================================

// displayMessage is one rendered conversation entry. Streaming turns
// append to the last assistant message until the turn completes.
type displayMessage struct {
	ID        string
	Role      string
	Content   string
	Streaming bool
}

func fromChatMessage(m agent.ChatMessage) displayMessage {
	return displayMessage{ID: m.ID, Role: m.Role, Content: m.Content}
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders assistant markdown. Recreated when the
// terminal is resized so word wrap tracks the viewport width.
type markdownRenderer struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	width    int
}

func newMarkdownRenderer(width int) *markdownRenderer {
	r := &markdownRenderer{}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the renderer for a new wrap width.
func (r *markdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && r.renderer != nil {
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Plain text fallback when the renderer cannot initialize.
		renderer = nil
	}
	r.renderer = renderer
	r.width = width
}

// Render renders markdown, returning the input unchanged on failure.
func (r *markdownRenderer) Render(content string) string {
	r.mu.Lock()
	renderer := r.renderer
	r.mu.Unlock()
	if renderer == nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// renderMessage renders one conversation entry for the viewport.
func renderMessage(theme *styles.Theme, md *markdownRenderer, msg displayMessage, width int) string {
	switch msg.Role {
	case "user":
		return theme.UserBubble.MaxWidth(width).Render(msg.Content)
	case "tool":
		return theme.ToolMessage.MaxWidth(width).Render(msg.Content)
	default: // assistant
		content := msg.Content
		if msg.Streaming {
			// Raw text while streaming: re-rendering markdown on every
			// delta is wasteful and makes partial constructs flicker.
			if content == "" {
				content = theme.HeaderSubtitle.Render("…")
			}
			return theme.AssistantBubble.MaxWidth(width).Render(content)
		}
		return theme.AssistantBubble.MaxWidth(width).Render(md.Render(content))
	}
}

// renderConversation renders the full message list joined for the
// viewport, with the live activity timeline (if any) after the last
// message.
func renderConversation(theme *styles.Theme, md *markdownRenderer, messages []displayMessage, timeline string, width int) string {
	var blocks []string
	for _, msg := range messages {
		blocks = append(blocks, renderMessage(theme, md, msg, width))
	}
	if timeline != "" {
		blocks = append(blocks, timeline)
	}
	return strings.Join(blocks, "\n\n")
}
