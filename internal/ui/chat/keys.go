// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
//
// This file defines keyboard bindings for the chat interface. The
// suggestion popup bindings deliberately shadow history navigation:
// while the popup is open, Up/Down cycle suggestions and Enter applies
// one instead of submitting.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	End          key.Binding
	Submit       key.Binding
	Newline      key.Binding
	ApplySuggest key.Binding
	Cancel       key.Binding
	Stop         key.Binding
	Sessions     key.Binding
	Clear        key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous suggestion / scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next suggestion / scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "back to bottom"),
		),
		// Ctrl+Enter where the terminal reports it; ctrl+j is the
		// portable fallback.
		Submit: key.NewBinding(
			key.WithKeys("ctrl+enter", "ctrl+j"),
			key.WithHelp("C-Enter", "send message"),
		),
		Newline: key.NewBinding(
			key.WithKeys("shift+enter", "alt+enter"),
			key.WithHelp("S-Enter", "insert newline"),
		),
		ApplySuggest: key.NewBinding(
			key.WithKeys("enter", "tab"),
			key.WithHelp("Enter/Tab", "apply suggestion"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close popup / dismiss"),
		),
		Stop: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "stop streaming"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "sessions"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear history"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
	}
}

// ShortHelp returns the bindings for the one-line help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Stop, k.Sessions, k.Quit}
}

// FullHelp returns all bindings, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.End},
		{k.Submit, k.Newline, k.ApplySuggest, k.Cancel},
		{k.Stop, k.Sessions, k.Clear, k.Quit},
	}
}
