// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the agent transport.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes transport errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeInvalidResponse
	ErrTypeChannelsExhausted
	ErrTypeConnClosed

	// ErrTypeRejected is a business failure: the agent understood the
	// operation and refused it. Never retried on the fallback channel.
	ErrTypeRejected
)

// IsTransportError reports whether err is a failure of the channel
// itself (unreachable, timed out, malformed body) rather than a
// well-formed refusal by the agent. Only transport errors trigger the
// fallback channel.
func IsTransportError(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		// Raw network or decode errors from below the client layer.
		return true
	}
	return ce.Type != ErrTypeRejected
}

// rejected wraps a business failure reported by the agent.
func rejected(msg string) *ClientError {
	return &ClientError{Type: ErrTypeRejected, Message: msg}
}

// Sentinel errors for easy checking.
var (
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse, Message: "response failed shape validation"}
	ErrConnClosed      = &ClientError{Type: ErrTypeConnClosed, Message: "direct connection closed"}
)

// invalidResponse wraps a shape-validation failure.
func invalidResponse(op string, cause error) *ClientError {
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Message: op + ": response failed shape validation",
		Cause:   cause,
	}
}

// channelsExhausted is the single normalized error surfaced after both
// the primary and the fallback channel failed.
func channelsExhausted(op string, primaryErr, fallbackErr error) *ClientError {
	return &ClientError{
		Type:    ErrTypeChannelsExhausted,
		Message: op + ": agent unreachable on all channels (primary: " + primaryErr.Error() + ")",
		Cause:   fallbackErr,
	}
}
