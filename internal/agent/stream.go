// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// =============================================================================
// TURN PARTS
// =============================================================================

// PartType discriminates the streamed part union.
type PartType string

const (
	// PartText is an assistant text delta.
	PartText PartType = "text"
	// PartProgress is a live tool-activity event; its payload feeds the
	// progress timeline.
	PartProgress PartType = "data-progress"
	// PartDone closes the turn.
	PartDone PartType = "done"
	// PartError is a turn-level failure reported in-band.
	PartError PartType = "error"
)

// Part is one element of a streamed turn. Text and Progress are the
// parts the client consumes directly; anything else is passed through
// with its raw payload so rendering collaborators can pick it up.
type Part struct {
	Type     PartType
	Text     string         // PartText delta
	Progress map[string]any // PartProgress raw event, pre-normalization
	Message  string         // PartError description
	Raw      json.RawMessage
}

// =============================================================================
// TURN STREAM
// =============================================================================

// TurnStream reads line-JSON parts from a streamed turn response.
// Next blocks until a part arrives, the stream ends, or the context is
// cancelled. Close aborts the underlying response.
type TurnStream struct {
	reader *bufio.Reader
	body   io.Closer
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	done        bool
}

// NewTurnStream wraps a raw line-JSON stream.
func NewTurnStream(body io.ReadCloser) *TurnStream {
	return &TurnStream{
		reader: bufio.NewReader(body),
		body:   body,
	}
}

// Next returns the next part. io.EOF signals a cleanly ended stream;
// a PartDone part is returned before EOF when the agent closed the turn
// explicitly. Malformed lines are skipped.
func (s *TurnStream) Next(ctx context.Context) (*Part, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.done {
			return nil, io.EOF
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}
			if len(bytes.TrimSpace(line)) == 0 {
				return nil, &ClientError{Type: ErrTypeConnClosed, Message: "stream read failed", Cause: err}
			}
			// Process the trailing line, then report EOF on the next call.
			s.done = true
		}

		part := parsePart(line)
		if part == nil {
			continue
		}
		if part.Type == PartText {
			s.accumulator.WriteString(part.Text)
		}
		if part.Type == PartDone {
			s.done = true
		}
		return part, nil
	}
}

// Accumulated returns all assistant text received so far.
func (s *TurnStream) Accumulated() string {
	return s.accumulator.String()
}

// Close aborts the stream. Safe to call more than once.
func (s *TurnStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

// parsePart decodes one wire line into a Part. Returns nil for blank or
// malformed lines so a single bad frame never kills the stream.
func parsePart(line []byte) *Part {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var frame struct {
		Type    string         `json:"type"`
		Text    string         `json:"text"`
		Data    map[string]any `json:"data"`
		Message string         `json:"message"`
	}
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil
	}
	if frame.Type == "" {
		return nil
	}

	part := &Part{Type: PartType(frame.Type), Raw: append(json.RawMessage(nil), line...)}
	switch part.Type {
	case PartText:
		part.Text = frame.Text
	case PartProgress:
		part.Progress = frame.Data
	case PartError:
		part.Message = frame.Message
	}
	return part
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage starts a streamed turn for the session. The returned
// stream must be closed by the caller. Unlike the request/response
// operations there is no channel fallback here: a half-delivered turn
// must never be replayed on a second channel.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) (*TurnStream, error) {
	const op = "sendMessage"

	payload, err := json.Marshal(map[string]string{
		"session": sessionID,
		"content": content,
	})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/send", bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "agent HTTP API unreachable", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &ClientError{
			Type:    ErrTypeConnection,
			Message: op + ": unexpected status " + resp.Status,
		}
	}

	return NewTurnStream(resp.Body), nil
}
