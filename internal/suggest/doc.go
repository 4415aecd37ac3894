// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest implements the trigger-token completion system for the
// composer input.
//
// A trigger token is a partial word opened by one of '@', '#', or '!'
// immediately behind the caret: '@' completes agent tools, '#' completes
// saved sessions, and '!' completes quick actions. ParseToken recognizes
// the in-progress token, Filter ranks the matching candidates, and Apply
// splices the chosen completion back into the input without corrupting
// the caret position.
//
// The candidate list is ephemeral; it is rebuilt from the live tool,
// session, and action sources every time the popup renders.
package suggest
