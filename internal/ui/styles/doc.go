// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the relay TUI.
//
// The package detects terminal color capability through termenv and
// exposes one Theme value holding every lipgloss style the UI renders
// with: message bubbles, the input area, the suggestion popup, the
// activity timeline, toasts, and the status bar. Colors adapt to light
// and dark terminal backgrounds.
package styles
