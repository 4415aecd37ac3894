// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll implements the follow/pause auto-scroll controller for
// the chat viewport.
//
// While a turn streams in, the viewport should stay pinned to the newest
// content - unless the user has scrolled back to read something, in which
// case new content must not yank the view away. The controller decides
// between those two behaviors using only asynchronous size signals: scroll
// offsets, content height changes, and message-count increases.
//
// The tricky part is telling a deliberate scroll-back apart from layout
// noise: a late-arriving reflow can move the scroll offset without any
// user intent. A short interaction guard (~280ms) around programmatic
// pins filters those echoes out.
//
// The controller is viewport-agnostic: it drives anything implementing
// the Viewport interface, and every operation is a no-op while the
// viewport is not mounted (nil).
package scroll
