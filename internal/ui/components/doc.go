// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the relay TUI.
//
// Components here are pure rendering and small state holders used by
// the chat model: toast notifications, the suggestion popup, the
// activity timeline, the back-to-bottom badge, the approval prompt,
// and the status bar. None of them talk to the network.
package components
