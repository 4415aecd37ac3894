// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CALLER INTERFACE
// =============================================================================

// Caller is the direct duplex channel to the agent: a single logical
// call(method, args) primitive. It is the fallback when the HTTP API
// fails, and both channels reach the same agent instance, so a fallback
// retry has the same side effects and idempotency as the primary call.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) (json.RawMessage, error)
}

// =============================================================================
// LINE-JSON RPC CONNECTION
// =============================================================================

// rpcRequest is one outbound call frame.
type rpcRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// rpcResponse is one inbound frame: either the reply to a call or an
// unsolicited event.
type rpcResponse struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Conn implements Caller over a newline-delimited JSON duplex socket.
// Replies are matched to calls by ID, so calls may be issued
// concurrently from multiple goroutines.
type Conn struct {
	mu      sync.Mutex
	conn    net.Conn
	writer  *bufio.Writer
	pending map[string]chan rpcResponse
	closed  bool
}

// Dial opens the direct connection to the agent.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	netConn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to dial agent", Cause: err}
	}
	return NewConn(netConn), nil
}

// NewConn wraps an already-established duplex connection.
func NewConn(netConn net.Conn) *Conn {
	c := &Conn{
		conn:    netConn,
		writer:  bufio.NewWriter(netConn),
		pending: make(map[string]chan rpcResponse),
	}
	go c.readLoop()
	return c
}

// Call issues one request and waits for its reply or context cancellation.
func (c *Conn) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	req := rpcRequest{
		ID:     uuid.NewString(),
		Method: method,
		Args:   args,
	}

	reply := make(chan rpcResponse, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	c.pending[req.ID] = reply

	data, err := json.Marshal(req)
	if err != nil {
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode call", Cause: err}
	}
	data = append(data, '\n')
	_, err = c.writer.Write(data)
	if err == nil {
		err = c.writer.Flush()
	}
	if err != nil {
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to send call", Cause: err}
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "call timed out", Cause: ctx.Err()}
		}
		return nil, ctx.Err()
	case resp, ok := <-reply:
		if !ok {
			return nil, ErrConnClosed
		}
		if resp.Error != "" {
			return nil, rejected(resp.Error)
		}
		return resp.Result, nil
	}
}

// Close tears down the connection and fails all pending calls.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop dispatches inbound reply frames to their waiting callers.
func (c *Conn) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // skip malformed frames
		}
		if resp.ID == "" {
			continue // unsolicited event, not a reply
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if ok {
			ch <- resp
		}
	}

	c.Close()
}
