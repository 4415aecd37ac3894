// relay - a terminal client for a remote tool-augmented agent.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/relay-tui/internal/agent"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/telemetry"
	"github.com/jeranaias/relay-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "", "tui":
		runTUI()
	case "version", "--version", "-v":
		fmt.Printf("relay %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case "config":
		handleConfig()
	case "stats":
		handleStats(args[1:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "relay: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`relay - terminal client for a remote agent

Usage:
  relay            Start the chat TUI
  relay stats      Show turn statistics (--days N, default 7)
  relay config     Show the effective configuration
  relay version    Show version information`)
}

// =============================================================================
// TUI
// =============================================================================

func runTUI() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "relay: the TUI needs an interactive terminal")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewSessionStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: failed to open session registry: %v\n", err)
		os.Exit(1)
	}

	// Telemetry is best effort: the chat works without it.
	turnStats, err := telemetry.Open("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: turn statistics disabled: %v\n", err)
		turnStats = nil
	}
	if turnStats != nil {
		defer turnStats.Close()
	}

	client := agent.NewClient(cfg.Agent.BaseURL, cfg.Timeout())

	// The direct connection is the fallback channel; the HTTP API alone
	// is enough to run.
	var fallback agent.Caller
	conn, err := agent.Dial(cfg.Agent.CallAddr, 5*time.Second)
	if err == nil {
		fallback = conn
		defer conn.Close()
	}

	transport := agent.NewTransport(client, fallback, cfg.Timeout())

	model := chat.New(cfg, client, transport, store, turnStats)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, opts...)

	// Hot-reload the config file into the running program.
	if path, err := config.Path(); err == nil {
		watcher, err := config.NewWatcher(path, 500*time.Millisecond, func(next *config.Config) {
			p.Send(chat.ConfigReloadMsg{Config: next})
		})
		if err == nil && watcher.Watch() == nil {
			defer watcher.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func handleConfig() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
	path, _ := config.Path()

	fmt.Printf("config file:  %s\n", path)
	fmt.Printf("agent url:    %s\n", cfg.Agent.BaseURL)
	fmt.Printf("call addr:    %s\n", cfg.Agent.CallAddr)
	fmt.Printf("timeout:      %ds\n", cfg.Agent.TimeoutSeconds)
	fmt.Printf("theme:        %s\n", cfg.UI.Theme)
	fmt.Printf("mouse:        %v\n", cfg.UI.Mouse)
}

func handleStats(args []string) {
	days := 7
	for i := 0; i < len(args); i++ {
		if args[i] == "--days" && i+1 < len(args) {
			if _, err := fmt.Sscanf(args[i+1], "%d", &days); err != nil || days <= 0 {
				fmt.Fprintf(os.Stderr, "relay: --days wants a positive number, got %q\n", args[i+1])
				os.Exit(1)
			}
			i++
		}
	}

	store, err := telemetry.Open("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	now := time.Now()
	summary, err := store.Summary(now.AddDate(0, 0, -days), now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Turns (last %d days)\n", days)
	fmt.Printf("  total:        %d\n", summary.Turns)
	fmt.Printf("  failed:       %d\n", summary.Failures)
	fmt.Printf("  avg duration: %s\n", summary.AvgDuration.Round(time.Millisecond))
	fmt.Printf("  characters:   %d\n", summary.TotalChars)
}
