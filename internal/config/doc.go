// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for relay.
//
// Configuration is TOML, loaded from ~/.relay/config.toml with built-in
// defaults for every field, so a missing or partial file always yields a
// usable config. The tuning constants for the auto-scroll controller and
// the progress/suggestion caps live here: they are UX tuning, not
// behavior contracts, and operators may override them.
//
// Watcher provides hot reload: it watches the config file with fsnotify
// and delivers a freshly loaded Config after edits settle.
package config
