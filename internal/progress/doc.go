// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress aggregates live status events streamed by the agent
// during a turn into a bounded, render-safe timeline.
//
// Inbound events are loosely typed: the agent emits them as free-form
// JSON objects at high frequency (heartbeats in particular). This package
// validates each payload, normalizes missing fields, merges adjacent
// duplicates so a repeating "still thinking" heartbeat collapses into a
// single row, and caps the timeline so memory stays bounded no matter how
// chatty a turn gets.
//
// The timeline is transient; it lives for one streaming turn and is never
// persisted.
package progress
