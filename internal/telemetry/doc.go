// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-turn statistics for relay.
//
// Every completed turn - one user message and the streamed response it
// produced - is persisted to a local SQLite database so the user can
// see how the agent has been behaving over time: turn durations, part
// counts, which channel served the turn, failures.
//
// # Key Types
//
//   - Store: SQLite-backed turn record storage
//   - TurnRecord: one completed turn with timing and part counts
//   - Summary: aggregated statistics for a time window
//
// # Usage
//
// Record a turn:
//
//	store, _ := telemetry.Open("")
//	store.Record(telemetry.TurnRecord{
//	    SessionID: "s1",
//	    Duration:  2300 * time.Millisecond,
//	    TextParts: 41,
//	})
//
// Summarize the last week:
//
//	summary, _ := store.Summary(time.Now().AddDate(0, 0, -7), time.Now())
package telemetry
