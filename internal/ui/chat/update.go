// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main chat view of the relay TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
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
	"github.com/jeranaias/relay-tui/internal/util"
)

// ConfigReloadMsg delivers a hot-reloaded configuration to the model.
// Sent from outside the Bubble Tea loop by the config watcher.
type ConfigReloadMsg struct {
	Config *config.Config
}

// =============================================================================
// UPDATE
// =============================================================================

// Update is the Bubble Tea message dispatcher.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case ConfigReloadMsg:
		return m.handleConfigReload(msg)

	case historyMsg:
		return m.handleHistory(msg)
	case permsMsg:
		if msg.sessionID == m.sessionID && msg.err == nil {
			m.perms = msg.perms
		}
		return m, nil
	case serversMsg:
		return m.handleServers(msg)
	case approvalsMsg:
		if msg.err == nil {
			m.approvals = msg.approvals
			m.showApproval = len(m.approvals) > 0
			m.approvalYes = true
		}
		return m, nil
	case approvalDecidedMsg:
		return m.handleApprovalDecided(msg)
	case historyClearedMsg:
		return m.handleHistoryCleared(msg)

	case turnStartedMsg:
		return m.handleTurnStarted(msg)
	case partMsg:
		return m.handlePart(msg)
	case turnDoneMsg:
		return m.handleTurnDone(msg)
	case streamTickMsg:
		return m.handleStreamTick()
	}

	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// One line each for the input row and the status bar.
	vpHeight := msg.Height - 2
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.vp = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.vp.Width = msg.Width
		m.vp.Height = vpHeight
	}
	m.scrollCtl.Attach(viewportAdapter{vp: &m.vp})

	m.md.SetWidth(msg.Width - 8)
	m.input.Width = msg.Width - 4
	m.refreshViewport()
	return m, nil
}

// refreshViewport re-renders the conversation into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var timeline string
	if m.streaming {
		timeline = m.timelineView.Render(m.timeline.Entries(), m.width-4)
	}
	m.vp.SetContent(renderConversation(m.theme, m.md, m.messages, timeline, m.width-4))
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.stopTurn()
		return m, tea.Quit
	}

	if m.showSessions {
		return m.handleSessionKey(msg)
	}
	if m.showApproval && len(m.approvals) > 0 {
		return m.handleApprovalKey(msg)
	}

	// Suggestion popup shadows navigation and Enter while open.
	if m.suggest.Active() {
		switch {
		case key.Matches(msg, m.keys.Up):
			m.suggest.Prev()
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.suggest.Next()
			return m, nil
		case key.Matches(msg, m.keys.ApplySuggest):
			return m.applySuggestion()
		case key.Matches(msg, m.keys.Cancel):
			m.suggest.Close()
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.streaming {
			m.stopTurn()
			m.toasts.AddStatus("turn stopped")
			m.refreshViewport()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Sessions):
		m.showSessions = true
		m.sessionSel = 0
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.streaming {
			m.toasts.AddWarning("cannot clear history mid-turn")
			return m, nil
		}
		if m.perms.Readonly {
			m.toasts.AddWarning("session is read-only")
			return m, nil
		}
		return m, clearHistoryCmd(m.transport, m.sessionID)

	case key.Matches(msg, m.keys.End):
		m.scrollCtl.ScrollToBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		m.scrollCtl.HandleScroll()
		return m, cmd

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		// Popup closed: arrows scroll the conversation.
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		m.scrollCtl.HandleScroll()
		return m, cmd

	case key.Matches(msg, m.keys.Newline):
		m.insertNewline()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case msg.Type == tea.KeyEnter:
		// Plain Enter with no popup open submits.
		return m.submit()
	}

	// Everything else edits the input, then re-parses the trigger token
	// at the new caret.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.suggest.Refresh(m.input.Value(), caretByteOffset(m.input.Value(), m.input.Position()), m.catalog())
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.cfg.UI.Mouse {
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	m.scrollCtl.HandleScroll()
	return m, cmd
}

// insertNewline splices a line break at the cursor.
func (m *Model) insertNewline() {
	value := m.input.Value()
	caret := caretByteOffset(value, m.input.Position())
	newValue := value[:caret] + "\n" + value[caret:]
	m.input.SetValue(newValue)
	m.input.SetCursor(runePosition(newValue, caret+1))
}

// applySuggestion acts on the selected suggestion. Session and action
// items take effect immediately; tool references splice into the input.
// Applying never submits the message.
func (m Model) applySuggestion() (tea.Model, tea.Cmd) {
	item := m.suggest.items[m.suggest.selected]

	switch item.Section {
	case suggest.SectionSessions:
		m.input.Reset()
		m.suggest.Close()
		return m.switchSession(item.Value)

	case suggest.SectionActions:
		m.input.Reset()
		m.suggest.Close()
		switch item.Value {
		case "new":
			return m.newSession()
		case "stop":
			if m.streaming {
				m.stopTurn()
				m.toasts.AddStatus("turn stopped")
				m.refreshViewport()
			}
			return m, nil
		}
		return m, nil
	}

	value := m.input.Value()
	newValue, caret, ok := m.suggest.Apply(value)
	if !ok {
		return m, nil
	}
	m.input.SetValue(newValue)
	m.input.SetCursor(runePosition(newValue, caret))
	return m, nil
}

// =============================================================================
// SUBMIT AND TURN LIFECYCLE
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}

	// Typed-out quick actions behave like applied ones.
	switch content {
	case "!new":
		m.input.Reset()
		m.suggest.Close()
		return m.newSession()
	case "!stop":
		m.input.Reset()
		m.suggest.Close()
		if m.streaming {
			m.stopTurn()
			m.toasts.AddStatus("turn stopped")
			m.refreshViewport()
		}
		return m, nil
	}

	if m.streaming {
		m.toasts.AddWarning("wait for the current turn to finish (C-c stops it)")
		return m, nil
	}
	if m.perms.Readonly {
		m.toasts.AddWarning("session is read-only")
		return m, nil
	}

	m.input.Reset()
	m.suggest.Close()

	m.messages = append(m.messages, displayMessage{
		ID:      storage.NewSessionID(),
		Role:    "user",
		Content: content,
	})
	m.messages = append(m.messages, displayMessage{
		Role:      "assistant",
		Streaming: true,
	})

	title := util.TruncateRunes(content, 48)
	if meta, ok := m.store.Get(m.sessionID); ok && meta.Title != "" {
		title = meta.Title
	}
	err := m.store.UpsertFront(storage.SessionMeta{
		ID:           m.sessionID,
		Title:        title,
		LastMessage:  content,
		Timestamp:    time.Now(),
		MessageCount: len(m.messages),
	})
	if err == nil {
		err = m.store.SetCurrent(m.sessionID)
	}
	if err != nil {
		m.toasts.AddWarning("could not save session list: " + err.Error())
	}

	m.turnSeq++
	m.streaming = true
	m.streamBuf.Reset()
	m.timeline.Clear()
	m.turnStart = time.Now()
	m.textParts = 0
	m.progressParts = 0

	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel

	m.refreshViewport()
	m.scrollCtl.HandleMessageCount(len(m.messages))

	return m, tea.Batch(
		startTurnCmd(ctx, m.client, m.turnSeq, m.sessionID, content),
		streamTickCmd(),
	)
}

func (m Model) handleTurnStarted(msg turnStartedMsg) (tea.Model, tea.Cmd) {
	if msg.turnID != m.turnSeq || !m.streaming {
		// Stale turn: the user stopped or resubmitted before the
		// stream opened.
		msg.stream.Close()
		return m, nil
	}
	m.stream = msg.stream
	return m, readPartCmd(context.Background(), msg.turnID, msg.stream)
}

func (m Model) handlePart(msg partMsg) (tea.Model, tea.Cmd) {
	if msg.turnID != m.turnSeq || !m.streaming {
		return m, nil
	}

	switch msg.part.Type {
	case agent.PartText:
		m.streamBuf.Write(msg.part.Text)
		m.textParts++
	case agent.PartProgress:
		m.progressParts++
		if m.timeline.Ingest(msg.part.Progress) {
			m.refreshViewport()
			m.scrollCtl.HandleContentGrowth()
		}
	case agent.PartError:
		m.toasts.AddError(msg.part.Message)
	}

	return m, readPartCmd(context.Background(), msg.turnID, m.stream)
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}
	if delta, ok := m.streamBuf.Flush(); ok {
		m.appendToAssistant(delta)
		m.refreshViewport()
		m.scrollCtl.HandleContentGrowth()
	}
	return m, streamTickCmd()
}

func (m Model) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	// A stopped turn's pending read reports a close error; ignore it.
	if msg.turnID != m.turnSeq || !m.streaming {
		return m, nil
	}

	if delta, ok := m.streamBuf.ForceFlush(); ok {
		m.appendToAssistant(delta)
	}

	failed := msg.err != nil
	if failed {
		m.toasts.AddError("turn failed: " + msg.err.Error())
	}

	m.recordTurn(failed)
	m.stopTurn()
	m.refreshViewport()
	m.scrollCtl.HandleMessageCount(len(m.messages))

	// The agent may have queued approvals during the turn.
	return m, loadApprovalsCmd(m.transport, m.sessionID)
}

// appendToAssistant appends streamed text to the in-flight assistant
// message.
func (m *Model) appendToAssistant(delta string) {
	if last := len(m.messages) - 1; last >= 0 && m.messages[last].Streaming {
		m.messages[last].Content += delta
	}
}

// stopTurn tears down the streaming state. Safe to call when idle.
func (m *Model) stopTurn() {
	m.streaming = false
	if last := len(m.messages) - 1; last >= 0 && m.messages[last].Streaming {
		m.messages[last].Streaming = false
	}
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	m.streamBuf.Reset()
	m.timeline.Clear()
}

// recordTurn persists turn telemetry; best effort.
func (m *Model) recordTurn(failed bool) {
	if m.turnStats == nil {
		return
	}
	chars := 0
	if last := len(m.messages) - 1; last >= 0 {
		chars = len(m.messages[last].Content)
	}
	err := m.turnStats.Record(telemetry.TurnRecord{
		SessionID:     m.sessionID,
		Channel:       telemetry.Channel(m.channel),
		Duration:      time.Since(m.turnStart),
		TextParts:     m.textParts,
		ProgressParts: m.progressParts,
		Chars:         chars,
		Failed:        failed,
	})
	if err != nil {
		m.toasts.AddWarning("could not record turn stats")
	}
}

// =============================================================================
// DATA MESSAGES
// =============================================================================

func (m Model) handleHistory(msg historyMsg) (tea.Model, tea.Cmd) {
	if msg.sessionID != m.sessionID {
		return m, nil
	}
	if msg.err != nil {
		m.toasts.AddError("could not load history: " + msg.err.Error())
		return m, nil
	}

	m.messages = m.messages[:0]
	for _, cm := range msg.messages {
		m.messages = append(m.messages, fromChatMessage(cm))
	}
	m.refreshViewport()
	m.scrollCtl.HandleMessageCount(len(m.messages))
	m.scrollCtl.ScrollToBottom()
	return m, nil
}

func (m Model) handleServers(msg serversMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.toasts.AddWarning("could not list tool servers: " + msg.err.Error())
		return m, nil
	}
	m.tools = m.tools[:0]
	for _, server := range msg.servers {
		if !server.Enabled {
			continue
		}
		for _, tool := range server.Tools {
			m.tools = append(m.tools, toToolInfo(tool))
		}
	}
	return m, nil
}

func (m Model) handleApprovalDecided(msg approvalDecidedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.toasts.AddError("approval decision failed: " + msg.err.Error())
		return m, nil
	}
	if !msg.result.Success {
		m.toasts.AddWarning(msg.result.Error)
	}

	// Drop the decided approval, keep prompting while more are queued.
	remaining := m.approvals[:0]
	for _, a := range m.approvals {
		if a.ID != msg.id {
			remaining = append(remaining, a)
		}
	}
	m.approvals = remaining
	m.showApproval = len(m.approvals) > 0
	m.approvalYes = true
	return m, nil
}

func (m Model) handleHistoryCleared(msg historyClearedMsg) (tea.Model, tea.Cmd) {
	if msg.sessionID != m.sessionID {
		return m, nil
	}
	if msg.err != nil {
		m.toasts.AddError("could not clear history: " + msg.err.Error())
		return m, nil
	}
	if !msg.result.Success {
		m.toasts.AddWarning(msg.result.Error)
		return m, nil
	}
	m.messages = nil
	m.refreshViewport()
	m.toasts.AddSuccess("history cleared")
	return m, nil
}

func (m Model) handleConfigReload(msg ConfigReloadMsg) (tea.Model, tea.Cmd) {
	m.cfg = msg.Config
	m.timeline = progress.NewTimelineWithLimit(msg.Config.Progress.MaxEntries)
	m.suggest.limit = msg.Config.Suggest.MaxSuggestions
	m.scrollCtl.SetThresholds(scroll.Thresholds{
		NearBottom:          msg.Config.Scroll.NearBottom,
		BottomEpsilon:       msg.Config.Scroll.BottomEpsilon,
		BackToBottomVisible: msg.Config.Scroll.BackToBottomVisible,
		InteractionGuard:    msg.Config.Scroll.InteractionGuard(),
	})
	m.toasts.AddStatus("configuration reloaded")
	return m, nil
}

// =============================================================================
// OVERLAY KEYS
// =============================================================================

func (m Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.store.Sessions()
	switch msg.String() {
	case "up":
		if m.sessionSel > 0 {
			m.sessionSel--
		}
	case "down":
		if m.sessionSel < len(sessions)-1 {
			m.sessionSel++
		}
	case "enter":
		if m.sessionSel < len(sessions) {
			return m.switchSession(sessions[m.sessionSel].ID)
		}
	case "n":
		return m.newSession()
	case "d":
		if m.sessionSel < len(sessions) {
			id := sessions[m.sessionSel].ID
			if err := m.store.Delete(id); err != nil {
				m.toasts.AddWarning("could not delete session: " + err.Error())
			}
			if m.turnStats != nil {
				// Best effort; stats for a deleted session are noise.
				_ = m.turnStats.DeleteSession(id)
			}
			if m.sessionSel > 0 {
				m.sessionSel--
			}
		}
	case "esc":
		m.showSessions = false
	}
	return m, nil
}

func (m Model) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab":
		m.approvalYes = !m.approvalYes
	case "enter":
		approval := m.approvals[0]
		return m, decideApprovalCmd(m.transport, m.sessionID, approval.ID, m.approvalYes)
	case "esc":
		m.showApproval = false
	}
	return m, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func (m Model) switchSession(id string) (tea.Model, tea.Cmd) {
	m.stopTurn()
	m.showSessions = false
	m.sessionID = id
	m.messages = nil
	if err := m.store.SetCurrent(id); err != nil {
		m.toasts.AddWarning("could not save session list: " + err.Error())
	}
	m.refreshViewport()
	return m, tea.Batch(
		loadHistoryCmd(m.transport, id),
		loadPermissionsCmd(m.transport, id),
		loadApprovalsCmd(m.transport, id),
	)
}

func (m Model) newSession() (tea.Model, tea.Cmd) {
	return m.switchSession(storage.NewSessionID())
}

// toToolInfo adapts an agent tool descriptor for the suggestion index.
func toToolInfo(tool agent.ToolDescriptor) suggest.ToolInfo {
	return suggest.ToolInfo{Name: tool.Name, Description: tool.Description}
}
