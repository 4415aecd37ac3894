// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/viewport"
)

// cellHeight converts viewport rows into the pixel-denominated scale
// the scroll thresholds are defined in, so a terminal row reads as one
// rendered line of roughly this many pixels.
const cellHeight = 20

// viewportAdapter exposes a bubbles viewport through the geometry
// interface the scroll controller drives.
type viewportAdapter struct {
	vp *viewport.Model
}

func (a viewportAdapter) ScrollTop() int {
	return a.vp.YOffset * cellHeight
}

func (a viewportAdapter) ScrollHeight() int {
	return a.vp.TotalLineCount() * cellHeight
}

func (a viewportAdapter) ClientHeight() int {
	return a.vp.Height * cellHeight
}

func (a viewportAdapter) SetScrollTop(px int) {
	a.vp.SetYOffset(px / cellHeight)
}

// SmoothScrollTo has no animation in a terminal; it lands on the same
// offset SetScrollTop would.
func (a viewportAdapter) SmoothScrollTo(px int) {
	a.vp.SetYOffset(px / cellHeight)
}
