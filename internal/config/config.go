// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for relay.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete relay configuration.
type Config struct {
	Agent    AgentConfig    `toml:"agent"`
	Scroll   ScrollConfig   `toml:"scroll"`
	Progress ProgressConfig `toml:"progress"`
	Suggest  SuggestConfig  `toml:"suggest"`
	UI       UIConfig       `toml:"ui"`
}

// AgentConfig addresses the remote agent.
type AgentConfig struct {
	// BaseURL is the agent's HTTP API root (primary channel).
	BaseURL string `toml:"base_url"`

	// CallAddr is the direct duplex connection address (fallback channel
	// and stream source), host:port.
	CallAddr string `toml:"call_addr"`

	// TimeoutSeconds is the shared per-operation timeout budget covering
	// both channels.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ScrollConfig holds the auto-scroll tuning constants.
type ScrollConfig struct {
	// NearBottom is the hidden-height beyond which a scroll counts as
	// leaving the bottom.
	NearBottom int `toml:"near_bottom"`

	// BottomEpsilon is the hidden-height treated as "at the bottom".
	BottomEpsilon int `toml:"bottom_epsilon"`

	// BackToBottomVisible gates the back-to-bottom affordance.
	BackToBottomVisible int `toml:"back_to_bottom_visible"`

	// InteractionGuardMs filters layout echoes from user intent.
	InteractionGuardMs int `toml:"interaction_guard_ms"`
}

// InteractionGuard returns the guard as a duration.
func (s ScrollConfig) InteractionGuard() time.Duration {
	return time.Duration(s.InteractionGuardMs) * time.Millisecond
}

// ProgressConfig bounds the live-progress timeline.
type ProgressConfig struct {
	MaxEntries int `toml:"max_entries"`
}

// SuggestConfig bounds the completion popup.
type SuggestConfig struct {
	MaxSuggestions int `toml:"max_suggestions"`
}

// UIConfig holds display preferences.
type UIConfig struct {
	// Theme is "auto", "dark", or "light".
	Theme string `toml:"theme"`

	// Mouse enables mouse wheel scrolling in the viewport.
	Mouse bool `toml:"mouse"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			// Explicit IPv4 avoids IPv6 resolution issues on Windows.
			BaseURL:        "http://127.0.0.1:8920",
			CallAddr:       "127.0.0.1:8921",
			TimeoutSeconds: 30,
		},
		Scroll: ScrollConfig{
			NearBottom:          80,
			BottomEpsilon:       4,
			BackToBottomVisible: 240,
			InteractionGuardMs:  280,
		},
		Progress: ProgressConfig{MaxEntries: 12},
		Suggest:  SuggestConfig{MaxSuggestions: 8},
		UI: UIConfig{
			Theme: "auto",
			Mouse: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the relay configuration directory (~/.relay).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".relay"), nil
}

// Path returns the config file path (~/.relay/config.toml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, layering it over the defaults. A missing
// file yields the defaults; a malformed file is an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a config file from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.fillZeroes()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config as TOML, atomically.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0644)
}

// fillZeroes restores defaults for fields a partial file left unset.
func (c *Config) fillZeroes() {
	def := Default()
	if c.Agent.BaseURL == "" {
		c.Agent.BaseURL = def.Agent.BaseURL
	}
	if c.Agent.CallAddr == "" {
		c.Agent.CallAddr = def.Agent.CallAddr
	}
	if c.Agent.TimeoutSeconds == 0 {
		c.Agent.TimeoutSeconds = def.Agent.TimeoutSeconds
	}
	if c.Scroll.NearBottom == 0 {
		c.Scroll.NearBottom = def.Scroll.NearBottom
	}
	if c.Scroll.BottomEpsilon == 0 {
		c.Scroll.BottomEpsilon = def.Scroll.BottomEpsilon
	}
	if c.Scroll.BackToBottomVisible == 0 {
		c.Scroll.BackToBottomVisible = def.Scroll.BackToBottomVisible
	}
	if c.Scroll.InteractionGuardMs == 0 {
		c.Scroll.InteractionGuardMs = def.Scroll.InteractionGuardMs
	}
	if c.Progress.MaxEntries == 0 {
		c.Progress.MaxEntries = def.Progress.MaxEntries
	}
	if c.Suggest.MaxSuggestions == 0 {
		c.Suggest.MaxSuggestions = def.Suggest.MaxSuggestions
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.Agent.BaseURL); err != nil {
		return fmt.Errorf("agent.base_url: %w", err)
	}
	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("agent.timeout_seconds must be positive, got %d", c.Agent.TimeoutSeconds)
	}
	if c.Scroll.NearBottom < 0 || c.Scroll.BottomEpsilon < 0 || c.Scroll.BackToBottomVisible < 0 {
		return fmt.Errorf("scroll thresholds must be non-negative")
	}
	if c.Progress.MaxEntries <= 0 {
		return fmt.Errorf("progress.max_entries must be positive, got %d", c.Progress.MaxEntries)
	}
	if c.Suggest.MaxSuggestions <= 0 {
		return fmt.Errorf("suggest.max_suggestions must be positive, got %d", c.Suggest.MaxSuggestions)
	}
	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be auto, dark, or light, got %q", c.UI.Theme)
	}
	return nil
}

// Timeout returns the shared per-operation timeout budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}
