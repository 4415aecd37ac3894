// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Scroll.NearBottom != 80 || cfg.Scroll.BottomEpsilon != 4 ||
		cfg.Scroll.BackToBottomVisible != 240 || cfg.Scroll.InteractionGuardMs != 280 {
		t.Errorf("unexpected scroll defaults: %+v", cfg.Scroll)
	}
	if cfg.Progress.MaxEntries != 12 {
		t.Errorf("Progress.MaxEntries = %d, want 12", cfg.Progress.MaxEntries)
	}
	if cfg.Suggest.MaxSuggestions != 8 {
		t.Errorf("Suggest.MaxSuggestions = %d, want 8", cfg.Suggest.MaxSuggestions)
	}
}

func TestLoadFromPathMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Agent.BaseURL != Default().Agent.BaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.Agent.BaseURL)
	}
}

func TestLoadFromPathPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[agent]\nbase_url = \"http://10.0.0.5:9000\"\n\n[scroll]\nnear_bottom = 120\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Agent.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("BaseURL = %q", cfg.Agent.BaseURL)
	}
	if cfg.Scroll.NearBottom != 120 {
		t.Errorf("NearBottom = %d, want 120", cfg.Scroll.NearBottom)
	}
	// Unset fields fall back to defaults.
	if cfg.Scroll.BackToBottomVisible != 240 {
		t.Errorf("BackToBottomVisible = %d, want default 240", cfg.Scroll.BackToBottomVisible)
	}
	if cfg.Agent.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d, want default 30", cfg.Agent.TimeoutSeconds)
	}
}

func TestLoadFromPathMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[agent\nbase_url ="), 0644)

	if _, err := LoadFromPath(path); err == nil {
		t.Error("LoadFromPath() error = nil, want parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.Agent.TimeoutSeconds = -1 }},
		{"negative threshold", func(c *Config) { c.Scroll.NearBottom = -5 }},
		{"zero progress cap", func(c *Config) { c.Progress.MaxEntries = -1 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Agent.BaseURL = "http://192.168.1.2:8000"
	cfg.Scroll.InteractionGuardMs = 500
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Agent.BaseURL != cfg.Agent.BaseURL {
		t.Errorf("BaseURL = %q, want %q", loaded.Agent.BaseURL, cfg.Agent.BaseURL)
	}
	if loaded.Scroll.InteractionGuard() != 500*time.Millisecond {
		t.Errorf("InteractionGuard() = %v, want 500ms", loaded.Scroll.InteractionGuard())
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := Save(Default(), path); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cfg := Default()
	cfg.Scroll.NearBottom = 99
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got.Scroll.NearBottom != 99 {
			t.Errorf("reloaded NearBottom = %d, want 99", got.Scroll.NearBottom)
		}
	case <-time.After(3 * time.Second):
		t.Error("watcher did not deliver reloaded config")
	}
}
