// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
//
// This file implements the streaming pump: turn parts are read off the
// agent stream in a goroutine-per-read Bubble Tea command, and text
// deltas are coalesced through a rate-limited buffer so the viewport
// re-renders at a steady frame rate instead of once per token.
package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/relay-tui/internal/agent"
)

// =============================================================================
// STREAM BUFFER
// =============================================================================

// flushInterval caps viewport re-renders at roughly 30fps.
const flushInterval = 33 * time.Millisecond

// StreamBuffer coalesces text deltas between renders.
//
// RELIABILITY: writes happen on the pump goroutine while flushes happen
// on the Bubble Tea loop, so every operation takes the mutex.
type StreamBuffer struct {
	mu      sync.Mutex
	buf     strings.Builder
	limiter *rate.Limiter
}

// NewStreamBuffer creates a rate-limited stream buffer.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{
		limiter: rate.NewLimiter(rate.Every(flushInterval), 1),
	}
}

// Write appends a text delta.
func (b *StreamBuffer) Write(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(delta)
}

// Flush returns buffered content when a render slot is available.
// Between slots it returns ("", false) and keeps accumulating.
func (b *StreamBuffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() == 0 {
		return "", false
	}
	if !b.limiter.Allow() {
		return "", false
	}
	content := b.buf.String()
	b.buf.Reset()
	return content, true
}

// ForceFlush drains the buffer regardless of the rate limit. Used when
// a turn completes so no trailing tokens are lost.
func (b *StreamBuffer) ForceFlush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() == 0 {
		return "", false
	}
	content := b.buf.String()
	b.buf.Reset()
	return content, true
}

// Reset discards buffered content. Used on cancel.
func (b *StreamBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// turnStartedMsg carries the opened stream for a new turn.
type turnStartedMsg struct {
	turnID int
	stream *agent.TurnStream
}

// partMsg is one streamed part, tagged with its owning turn.
type partMsg struct {
	turnID int
	part   *agent.Part
}

// turnDoneMsg ends a turn; err is nil on clean completion.
type turnDoneMsg struct {
	turnID int
	err    error
}

// streamTickMsg drives periodic buffer flushes while streaming.
type streamTickMsg struct {
	time time.Time
}

// =============================================================================
// STREAM COMMANDS
// =============================================================================

// startTurnCmd opens the streamed turn on the agent.
func startTurnCmd(ctx context.Context, client *agent.Client, turnID int, sessionID, content string) tea.Cmd {
	return func() tea.Msg {
		stream, err := client.SendMessage(ctx, sessionID, content)
		if err != nil {
			return turnDoneMsg{turnID: turnID, err: err}
		}
		return turnStartedMsg{turnID: turnID, stream: stream}
	}
}

// readPartCmd reads the next part off the stream. The model re-issues
// this command after handling each partMsg.
func readPartCmd(ctx context.Context, turnID int, stream *agent.TurnStream) tea.Cmd {
	return func() tea.Msg {
		part, err := stream.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return turnDoneMsg{turnID: turnID}
			}
			return turnDoneMsg{turnID: turnID, err: err}
		}
		return partMsg{turnID: turnID, part: part}
	}
}

// streamTickCmd schedules the next flush check.
func streamTickCmd() tea.Cmd {
	return tea.Tick(flushInterval, func(t time.Time) tea.Msg {
		return streamTickMsg{time: t}
	})
}
