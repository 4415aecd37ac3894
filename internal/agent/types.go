// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"errors"
	"time"
)

var errMissingSuccess = errors.New("missing success field")

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// ChatMessage is one persisted entry of a session's message log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "tool"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Permissions gates mutation-capable UI actions for one session.
type Permissions struct {
	CanEdit  bool `json:"canEdit"`
	Readonly bool `json:"readonly"`
}

// ToolDescriptor describes one tool exposed by a tool server.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ServerInfo describes one tool server and its state.
type ServerInfo struct {
	Name    string           `json:"name"`
	Enabled bool             `json:"enabled"`
	Tools   []ToolDescriptor `json:"tools,omitempty"`
}

// Approval is a pending tool-call approval awaiting a decision.
type Approval struct {
	ID          string    `json:"id"`
	ToolName    string    `json:"toolName"`
	Input       string    `json:"input,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// DeleteResult is the validated contract for message deletion.
// Success=false is a business failure (the agent rejected the delete),
// not a transport failure; it is surfaced to the user, not retried.
type DeleteResult struct {
	Success bool   `json:"success"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// MutationResult is the validated contract for edit, regenerate, toggle,
// clear-history, and approval decisions.
type MutationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ForkResult is the validated contract for forking a conversation at a
// message; SessionID names the new session on success.
type ForkResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Error     string `json:"error,omitempty"`
}

// =============================================================================
// WIRE ENVELOPE
// =============================================================================

// apiError is the error object of a failed API envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the wrapper common to every HTTP API response:
// {success: boolean, ...fields, requestId} or
// {success: false, error: {code, message}, requestId}.
//
// Success is a pointer so a body missing the field entirely fails shape
// validation instead of silently reading as false.
type envelope struct {
	Success   *bool     `json:"success"`
	RequestID string    `json:"requestId"`
	Error     *apiError `json:"error,omitempty"`
}

// check validates the envelope shape. It returns (businessErr, shapeErr):
// a well-formed failure envelope yields businessErr; a missing success
// tag yields shapeErr.
func (e *envelope) check() (businessErr error, shapeErr error) {
	if e.Success == nil {
		return nil, errMissingSuccess
	}
	if !*e.Success {
		msg := "operation failed"
		if e.Error != nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return rejected(msg), nil
	}
	return nil, nil
}
