// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll implements the follow/pause auto-scroll controller.
package scroll

import "time"

// =============================================================================
// VIEWPORT ABSTRACTION
// =============================================================================

// Viewport is the scrollable region the controller drives. Offsets and
// heights are in the viewport's own units (pixels in a browser, rows in
// a terminal); the controller only compares them.
type Viewport interface {
	// ScrollTop returns the current scroll offset from the top.
	ScrollTop() int

	// ScrollHeight returns the total content height.
	ScrollHeight() int

	// ClientHeight returns the visible height.
	ClientHeight() int

	// SetScrollTop jumps to an offset without animation.
	SetScrollTop(offset int)

	// SmoothScrollTo scrolls to an offset with animation where the
	// viewport supports it.
	SmoothScrollTo(offset int)
}

// =============================================================================
// THRESHOLDS
// =============================================================================

// Thresholds holds the tuning constants for the state machine. They are
// UX tuning, not physics - override them from config if the defaults
// feel wrong for a surface.
type Thresholds struct {
	// NearBottom is the hidden-height above which a scroll event counts
	// as the user leaving the bottom (default 80).
	NearBottom int

	// BottomEpsilon is the hidden-height at or below which a scroll
	// event counts as returning to the bottom (default 4).
	BottomEpsilon int

	// BackToBottomVisible is the hidden-height above which the
	// back-to-bottom affordance shows (default 240).
	BackToBottomVisible int

	// InteractionGuard filters layout echoes: scroll events arriving
	// within this window of a programmatic pin are not treated as user
	// intent, and content growth within this window of a manual scroll
	// does not re-pin (default 280ms).
	InteractionGuard time.Duration
}

// DefaultThresholds returns the standard tuning constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NearBottom:          80,
		BottomEpsilon:       4,
		BackToBottomVisible: 240,
		InteractionGuard:    280 * time.Millisecond,
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Mode is the controller state.
type Mode int

const (
	// ModeFollow pins the viewport to newly arriving content.
	ModeFollow Mode = iota
	// ModePause leaves the viewport where the user scrolled it.
	ModePause
)

// Controller is the follow/pause state machine. It is mutated only on
// the UI event loop; no locking.
type Controller struct {
	vp Viewport
	th Thresholds

	mode             Mode
	unread           int
	lastMessageCount int
	lastHeight       int

	lastManual       time.Time
	lastProgrammatic time.Time

	now func() time.Time
}

// NewController creates a controller in follow mode. A nil viewport is
// allowed (not yet mounted); every operation is a no-op until Attach.
func NewController(vp Viewport, th Thresholds) *Controller {
	if th.NearBottom == 0 && th.BottomEpsilon == 0 && th.BackToBottomVisible == 0 {
		th = DefaultThresholds()
	}
	return &Controller{
		vp:  vp,
		th:  th,
		now: time.Now,
	}
}

// Attach sets or replaces the viewport once it is mounted.
func (c *Controller) Attach(vp Viewport) {
	c.vp = vp
	if vp != nil {
		c.lastHeight = vp.ScrollHeight()
	}
}

// SetThresholds replaces the tuning constants on a live controller,
// for configuration hot reload. Mode, unread count, and guard
// timestamps are untouched; all-zero thresholds restore the defaults.
func (c *Controller) SetThresholds(th Thresholds) {
	if th.NearBottom == 0 && th.BottomEpsilon == 0 && th.BackToBottomVisible == 0 {
		th = DefaultThresholds()
	}
	c.th = th
}

// Mode returns the current state.
func (c *Controller) Mode() Mode {
	return c.mode
}

// UnreadCount returns how many messages arrived while paused.
func (c *Controller) UnreadCount() int {
	return c.unread
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// HandleScroll processes a scroll event on the viewport.
//
// Leaving the bottom by more than NearBottom switches to pause - unless
// the event lands within the interaction guard of a programmatic pin, in
// which case it is a layout echo, not user intent. Landing within
// BottomEpsilon of the bottom switches back to follow.
func (c *Controller) HandleScroll() {
	if c.vp == nil {
		return
	}

	hidden := c.hiddenHeight()
	now := c.now()

	if hidden <= c.th.BottomEpsilon {
		c.lastManual = now
		c.mode = ModeFollow
		c.unread = 0
		return
	}

	if hidden > c.th.NearBottom {
		if now.Sub(c.lastProgrammatic) < c.th.InteractionGuard {
			// Transient snap from a resize we just performed.
			return
		}
		c.mode = ModePause
	}
	c.lastManual = now
}

// HandleMessageCount reacts to the tracked message count changing.
// Callers must invoke this after the layout reflects the new message,
// not before, or the pin lands on a stale content height.
func (c *Controller) HandleMessageCount(count int) {
	defer func() { c.lastMessageCount = count }()

	if c.vp == nil || count <= c.lastMessageCount {
		return
	}
	delta := count - c.lastMessageCount

	if c.mode == ModeFollow {
		c.pinToBottom()
		c.unread = 0
		return
	}
	c.unread += delta
}

// HandleContentGrowth reacts to the content element's box size changing.
// It re-pins only when the content actually grew (not a shrink/reflow)
// and the most recent manual scroll is outside the interaction guard, so
// late-arriving layout growth cannot fight a scroll the user just made.
func (c *Controller) HandleContentGrowth() {
	if c.vp == nil {
		return
	}

	height := c.vp.ScrollHeight()
	grew := height > c.lastHeight
	c.lastHeight = height

	if c.mode != ModeFollow || !grew {
		return
	}
	if c.now().Sub(c.lastManual) <= c.th.InteractionGuard {
		return
	}
	c.pinToBottom()
}

// ScrollToBottom is the explicit user command: smooth scroll, clear the
// unread counter, force follow.
func (c *Controller) ScrollToBottom() {
	if c.vp == nil {
		return
	}
	c.lastProgrammatic = c.now()
	c.vp.SmoothScrollTo(c.bottomOffset())
	c.mode = ModeFollow
	c.unread = 0
}

// ShowBackToBottom reports whether enough content is hidden below the
// viewport to warrant the back-to-bottom affordance. Independent of mode.
func (c *Controller) ShowBackToBottom() bool {
	if c.vp == nil {
		return false
	}
	return c.hiddenHeight() > c.th.BackToBottomVisible
}

// =============================================================================
// INTERNALS
// =============================================================================

// pinToBottom jumps to the bottom without animation and records the
// programmatic interaction so the resulting scroll event is not misread
// as the user leaving the bottom.
func (c *Controller) pinToBottom() {
	c.lastProgrammatic = c.now()
	c.vp.SetScrollTop(c.bottomOffset())
}

func (c *Controller) bottomOffset() int {
	offset := c.vp.ScrollHeight() - c.vp.ClientHeight()
	if offset < 0 {
		offset = 0
	}
	return offset
}

// hiddenHeight is the content height below the visible region.
func (c *Controller) hiddenHeight() int {
	hidden := c.vp.ScrollHeight() - c.vp.ScrollTop() - c.vp.ClientHeight()
	if hidden < 0 {
		hidden = 0
	}
	return hidden
}
