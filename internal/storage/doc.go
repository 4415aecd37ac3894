// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable session registry for the relay TUI.
//
// The registry is a versioned JSON file holding conversation metadata
// (not the conversations themselves - message history lives on the agent).
// It is a convenience cache: on any read or version failure it degrades to
// an empty registry instead of surfacing an error.
//
// Ordering invariant: sessions are kept most-recently-active-first, and
// UpsertFront is the only mutation that reorders them.
package storage
