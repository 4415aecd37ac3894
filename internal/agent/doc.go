// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer between the TUI and the remote
// tool-augmented agent.
//
// Every operation the UI needs - history, permissions, tool servers,
// message edit/delete/regenerate/fork, approvals - goes through one
// validated API regardless of which channel actually served it. Each
// call first tries the agent's HTTP API (primary); if that fails at the
// transport level (unreachable, non-2xx, malformed body), the same
// logical operation is retried over the direct duplex connection
// (fallback). Both channels hit the same agent instance, so the retry
// never double-applies a mutation: the primary either failed cleanly
// before any effect, or its well-formed failure is returned as-is.
//
// Responses from either channel are validated against explicit
// contracts; a payload that fails shape validation is a transport error,
// never a success. Concurrent identical reads are coalesced so only one
// underlying request is issued.
//
// Streaming turns arrive as newline-delimited JSON parts; see TurnStream.
package agent
