// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/agent"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/progress"
	"github.com/jeranaias/relay-tui/internal/scroll"
	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/suggest"
	"github.com/jeranaias/relay-tui/internal/telemetry"
	"github.com/jeranaias/relay-tui/internal/ui/components"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea root model for the chat view.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	cfg   *config.Config

	// Transport
	client    *agent.Client
	transport *agent.Transport
	channel   string

	// Persistence
	store     *storage.SessionStore
	turnStats *telemetry.Store // nil disables telemetry

	// Conversation state
	sessionID string
	messages  []displayMessage
	perms     agent.Permissions

	// Viewport and scroll
	vp        viewport.Model
	scrollCtl *scroll.Controller
	md        *markdownRenderer

	// Input and suggestions
	input   textinput.Model
	suggest suggestState
	popup   *components.SuggestPopup
	tools   []suggest.ToolInfo

	// Live activity
	timeline     *progress.Timeline
	timelineView *components.TimelineView

	// Streaming
	streaming     bool
	turnSeq       int
	stream        *agent.TurnStream
	streamBuf     *StreamBuffer
	streamCancel  context.CancelFunc
	turnStart     time.Time
	textParts     int
	progressParts int

	// Overlays
	toasts       *components.ToastManager
	approvals    []agent.Approval
	approvalYes  bool
	showApproval bool
	showSessions bool
	sessionSel   int

	width  int
	height int
	ready  bool
}

// New builds the chat model. transport and client must point at the
// same agent; turnStats may be nil.
func New(cfg *config.Config, client *agent.Client, transport *agent.Transport, store *storage.SessionStore, turnStats *telemetry.Store) Model {
	theme := styles.NewThemeForPreference(cfg.UI.Theme)

	ti := textinput.New()
	ti.Placeholder = "Message the agent (@tools, #sessions, !actions)"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	scrollCtl := scroll.NewController(nil, scroll.Thresholds{
		NearBottom:          cfg.Scroll.NearBottom,
		BottomEpsilon:       cfg.Scroll.BottomEpsilon,
		BackToBottomVisible: cfg.Scroll.BackToBottomVisible,
		InteractionGuard:    cfg.Scroll.InteractionGuard(),
	})

	sessionID := store.Current()
	if sessionID == "" {
		sessionID = storage.NewSessionID()
	}

	return Model{
		theme:        theme,
		keys:         DefaultKeyMap(),
		cfg:          cfg,
		client:       client,
		transport:    transport,
		channel:      "http",
		store:        store,
		turnStats:    turnStats,
		sessionID:    sessionID,
		scrollCtl:    scrollCtl,
		md:           newMarkdownRenderer(80),
		input:        ti,
		suggest:      suggestState{limit: cfg.Suggest.MaxSuggestions},
		popup:        components.NewSuggestPopup(theme),
		timeline:     progress.NewTimelineWithLimit(cfg.Progress.MaxEntries),
		timelineView: components.NewTimelineView(theme),
		streamBuf:    NewStreamBuffer(),
		toasts:       components.NewToastManager(),
	}
}

// Init loads the current session's history and ambient agent state.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		loadHistoryCmd(m.transport, m.sessionID),
		loadPermissionsCmd(m.transport, m.sessionID),
		loadServersCmd(m.transport, m.sessionID),
		loadApprovalsCmd(m.transport, m.sessionID),
		components.ToastTickCmd(),
	)
}

// catalog rebuilds the suggestion catalog from current agent state.
func (m *Model) catalog() []suggest.Item {
	return suggest.BuildItems(m.tools, m.store.Sessions(), m.streaming)
}

// caretByteOffset converts the textinput rune cursor to a byte offset.
func caretByteOffset(value string, runePos int) int {
	runes := []rune(value)
	if runePos < 0 {
		runePos = 0
	}
	if runePos > len(runes) {
		runePos = len(runes)
	}
	return len(string(runes[:runePos]))
}

// runePosition converts a byte offset back to a rune cursor position.
func runePosition(value string, byteOffset int) int {
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(value) {
		byteOffset = len(value)
	}
	return len([]rune(value[:byteOffset]))
}

// =============================================================================
// DATA COMMANDS
// =============================================================================

type historyMsg struct {
	sessionID string
	messages  []agent.ChatMessage
	err       error
}

type permsMsg struct {
	sessionID string
	perms     agent.Permissions
	err       error
}

type serversMsg struct {
	servers []agent.ServerInfo
	err     error
}

type approvalsMsg struct {
	approvals []agent.Approval
	err       error
}

type approvalDecidedMsg struct {
	id     string
	result agent.MutationResult
	err    error
}

type historyClearedMsg struct {
	sessionID string
	result    agent.MutationResult
	err       error
}

func loadHistoryCmd(t *agent.Transport, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		messages, err := t.GetHistory(ctx, sessionID)
		return historyMsg{sessionID: sessionID, messages: messages, err: err}
	}
}

func loadPermissionsCmd(t *agent.Transport, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		perms, err := t.GetPermissions(ctx, sessionID)
		return permsMsg{sessionID: sessionID, perms: perms, err: err}
	}
}

func loadServersCmd(t *agent.Transport, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		servers, err := t.ListServers(ctx, sessionID)
		return serversMsg{servers: servers, err: err}
	}
}

func loadApprovalsCmd(t *agent.Transport, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		approvals, err := t.ListApprovals(ctx, sessionID)
		return approvalsMsg{approvals: approvals, err: err}
	}
}

func decideApprovalCmd(t *agent.Transport, sessionID, approvalID string, approve bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := t.DecideApproval(ctx, sessionID, approvalID, approve)
		return approvalDecidedMsg{id: approvalID, result: result, err: err}
	}
}

func clearHistoryCmd(t *agent.Transport, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := t.ClearHistory(ctx, sessionID)
		return historyClearedMsg{sessionID: sessionID, result: result, err: err}
	}
}
