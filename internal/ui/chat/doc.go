// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
//
// The Model here is the Bubble Tea root: it owns the message viewport,
// the input area with its trigger-token suggestion popup, the live
// activity timeline rendered during a turn, and the session switcher.
// Scroll behavior (follow vs paused reading, unread counting, the
// back-to-bottom badge) is delegated to internal/scroll; the network
// side is delegated to internal/agent.
//
// # Streaming
//
// A turn is pumped from agent.TurnStream into partMsg values at a
// throttled rate so rendering stays smooth. Every in-flight turn has a
// monotonically increasing ID; parts tagged with a stale ID are
// discarded, which makes stop/cancel and rapid resubmits safe.
package chat
