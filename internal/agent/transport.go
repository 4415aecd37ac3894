// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport is the uniform, validated API the UI talks to. Every
// operation is parameterized by the owning session ID; no state is
// shared across sessions except the in-flight cache, whose whole purpose
// is to serialize concurrent identical reads.
type Transport struct {
	primary  *Client
	fallback Caller
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall is one underlying request shared by concurrent callers.
type inflightCall struct {
	done   chan struct{}
	result any
	err    error
}

// NewTransport builds a transport over the two channels. timeout is the
// shared per-operation budget covering primary attempt plus fallback.
func NewTransport(primary *Client, fallback Caller, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transport{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		inflight: make(map[string]*inflightCall),
	}
}

// =============================================================================
// CHANNEL ORCHESTRATION
// =============================================================================

// run tries the ordered channel strategies under one shared timeout
// budget: primary HTTP first, then the direct call. A business rejection
// from either channel stops the sequence - the agent heard us and said
// no; only transport-class failures move on to the next channel. When
// every channel fails, a single normalized error is returned.
func (t *Transport) run(ctx context.Context, op string, primary, fallback func(context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, primaryErr := primary(ctx)
	if primaryErr == nil {
		return result, nil
	}
	if !IsTransportError(primaryErr) {
		return nil, primaryErr
	}

	if t.fallback == nil {
		return nil, channelsExhausted(op, primaryErr, errors.New("no fallback channel"))
	}

	result, fallbackErr := fallback(ctx)
	if fallbackErr == nil {
		return result, nil
	}
	if !IsTransportError(fallbackErr) {
		return nil, fallbackErr
	}

	return nil, channelsExhausted(op, primaryErr, fallbackErr)
}

// coalesce deduplicates concurrent identical reads: the first caller
// issues the request, everyone else waits on it and shares the result.
// The cache entry is removed synchronously once the call settles -
// success or failure - so a later retry is never stuck on a stale
// cached failure.
func (t *Transport) coalesce(key string, fn func() (any, error)) (any, error) {
	t.mu.Lock()
	if call, ok := t.inflight[key]; ok {
		t.mu.Unlock()
		<-call.done
		return call.result, call.err
	}
	call := &inflightCall{done: make(chan struct{})}
	t.inflight[key] = call
	t.mu.Unlock()

	call.result, call.err = fn()

	t.mu.Lock()
	delete(t.inflight, key)
	t.mu.Unlock()
	close(call.done)

	return call.result, call.err
}

// cacheKey builds the in-flight cache key from (operation, session, args).
func cacheKey(op, sessionID string, args ...string) string {
	parts := append([]string{op, sessionID}, args...)
	return strings.Join(parts, "\x00")
}

// callFallback invokes the direct channel and decodes its bare result
// into out, applying the same shape validation the HTTP path gets.
func (t *Transport) callFallback(ctx context.Context, op, method string, out any, args ...any) error {
	raw, err := t.fallback.Call(ctx, method, args...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidResponse(op, err)
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// GetHistory returns the session's message log. Concurrent calls for
// the same session share one underlying request.
func (t *Transport) GetHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	const op = "getHistory"

	v, err := t.coalesce(cacheKey(op, sessionID), func() (any, error) {
		return t.run(ctx, op,
			func(ctx context.Context) (any, error) {
				query := url.Values{"session": {sessionID}}
				data, err := t.primary.doJSON(ctx, http.MethodGet, "/api/chat/history", query, nil)
				if err != nil {
					return nil, err
				}
				var wire struct {
					envelope
					Messages *[]ChatMessage `json:"messages"`
				}
				if err := decodeEnveloped(op, data, &wire, &wire.envelope); err != nil {
					return nil, err
				}
				if wire.Messages == nil {
					return nil, invalidResponse(op, errors.New("missing messages field"))
				}
				return *wire.Messages, nil
			},
			func(ctx context.Context) (any, error) {
				var wire struct {
					Messages *[]ChatMessage `json:"messages"`
				}
				if err := t.callFallback(ctx, op, "chat.history", &wire, sessionID); err != nil {
					return nil, err
				}
				if wire.Messages == nil {
					return nil, invalidResponse(op, errors.New("missing messages field"))
				}
				return *wire.Messages, nil
			},
		)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ChatMessage), nil
}

// GetPermissions returns the session's mutation gates.
func (t *Transport) GetPermissions(ctx context.Context, sessionID string) (Permissions, error) {
	const op = "getPermissions"

	v, err := t.coalesce(cacheKey(op, sessionID), func() (any, error) {
		return t.run(ctx, op,
			func(ctx context.Context) (any, error) {
				query := url.Values{"session": {sessionID}}
				data, err := t.primary.doJSON(ctx, http.MethodGet, "/api/chat/permissions", query, nil)
				if err != nil {
					return nil, err
				}
				var wire struct {
					envelope
					Permissions *Permissions `json:"permissions"`
				}
				if err := decodeEnveloped(op, data, &wire, &wire.envelope); err != nil {
					return nil, err
				}
				if wire.Permissions == nil {
					return nil, invalidResponse(op, errors.New("missing permissions field"))
				}
				return *wire.Permissions, nil
			},
			func(ctx context.Context) (any, error) {
				var wire struct {
					Permissions *Permissions `json:"permissions"`
				}
				if err := t.callFallback(ctx, op, "chat.permissions", &wire, sessionID); err != nil {
					return nil, err
				}
				if wire.Permissions == nil {
					return nil, invalidResponse(op, errors.New("missing permissions field"))
				}
				return *wire.Permissions, nil
			},
		)
	})
	if err != nil {
		return Permissions{}, err
	}
	return v.(Permissions), nil
}

// ListServers returns the agent's tool servers and their state.
func (t *Transport) ListServers(ctx context.Context, sessionID string) ([]ServerInfo, error) {
	const op = "listServers"

	v, err := t.coalesce(cacheKey(op, sessionID), func() (any, error) {
		return t.run(ctx, op,
			func(ctx context.Context) (any, error) {
				query := url.Values{"session": {sessionID}}
				data, err := t.primary.doJSON(ctx, http.MethodGet, "/api/mcp/servers", query, nil)
				if err != nil {
					return nil, err
				}
				var wire struct {
					envelope
					Servers *[]ServerInfo `json:"servers"`
				}
				if err := decodeEnveloped(op, data, &wire, &wire.envelope); err != nil {
					return nil, err
				}
				if wire.Servers == nil {
					return nil, invalidResponse(op, errors.New("missing servers field"))
				}
				return *wire.Servers, nil
			},
			func(ctx context.Context) (any, error) {
				var wire struct {
					Servers *[]ServerInfo `json:"servers"`
				}
				if err := t.callFallback(ctx, op, "mcp.servers", &wire, sessionID); err != nil {
					return nil, err
				}
				if wire.Servers == nil {
					return nil, invalidResponse(op, errors.New("missing servers field"))
				}
				return *wire.Servers, nil
			},
		)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ServerInfo), nil
}

// ListApprovals returns the pending tool-call approvals.
func (t *Transport) ListApprovals(ctx context.Context, sessionID string) ([]Approval, error) {
	const op = "listApprovals"

	v, err := t.coalesce(cacheKey(op, sessionID), func() (any, error) {
		return t.run(ctx, op,
			func(ctx context.Context) (any, error) {
				query := url.Values{"session": {sessionID}}
				data, err := t.primary.doJSON(ctx, http.MethodGet, "/api/runtime/approvals", query, nil)
				if err != nil {
					return nil, err
				}
				var wire struct {
					envelope
					Approvals *[]Approval `json:"approvals"`
				}
				if err := decodeEnveloped(op, data, &wire, &wire.envelope); err != nil {
					return nil, err
				}
				if wire.Approvals == nil {
					return nil, invalidResponse(op, errors.New("missing approvals field"))
				}
				return *wire.Approvals, nil
			},
			func(ctx context.Context) (any, error) {
				var wire struct {
					Approvals *[]Approval `json:"approvals"`
				}
				if err := t.callFallback(ctx, op, "runtime.approvals", &wire, sessionID); err != nil {
					return nil, err
				}
				if wire.Approvals == nil {
					return nil, invalidResponse(op, errors.New("missing approvals field"))
				}
				return *wire.Approvals, nil
			},
		)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Approval), nil
}

// =============================================================================
// MUTATING OPERATIONS
// =============================================================================

// DeleteMessage removes one message from the session log. A rejection
// by the agent comes back as DeleteResult{Success: false}, not an error.
func (t *Transport) DeleteMessage(ctx context.Context, sessionID, messageID string) (DeleteResult, error) {
	const op = "deleteMessage"
	body := map[string]string{"session": sessionID, "messageId": messageID}

	v, err := t.run(ctx, op,
		func(ctx context.Context) (any, error) {
			data, err := t.primary.doJSON(ctx, http.MethodDelete, "/api/chat/message", nil, body)
			if err != nil {
				return nil, err
			}
			var wire struct {
				envelope
				Deleted *bool `json:"deleted"`
			}
			if err := decodeEnveloped(op, data, &wire, &wire.envelope); err != nil {
				return nil, err
			}
			if wire.Deleted == nil {
				return nil, invalidResponse(op, errors.New("missing deleted field"))
			}
			return DeleteResult{Success: true, Deleted: *wire.Deleted}, nil
		},
		func(ctx context.Context) (any, error) {
			var wire struct {
				Deleted *bool `json:"deleted"`
			}
			if err := t.callFallback(ctx, op, "chat.deleteMessage", &wire, sessionID, messageID); err != nil {
				return nil, err
			}
			if wire.Deleted == nil {
				return nil, invalidResponse(op, errors.New("missing deleted field"))
			}
			return DeleteResult{Success: true, Deleted: *wire.Deleted}, nil
		},
	)
	if err != nil {
		if res, ok := asRejection(err); ok {
			return DeleteResult{Success: false, Error: res}, nil
		}
		return DeleteResult{}, err
	}
	return v.(DeleteResult), nil
}

// EditMessage replaces a message's content.
func (t *Transport) EditMessage(ctx context.Context, sessionID, messageID, content string) (MutationResult, error) {
	body := map[string]string{"session": sessionID, "messageId": messageID, "content": content}
	return t.mutate(ctx, "editMessage", "/api/chat/edit", "chat.editMessage", body,
		sessionID, messageID, content)
}

// Regenerate re-runs the assistant response for a message.
func (t *Transport) Regenerate(ctx context.Context, sessionID, messageID string) (MutationResult, error) {
	body := map[string]string{"session": sessionID, "messageId": messageID}
	return t.mutate(ctx, "regenerate", "/api/chat/regenerate", "chat.regenerate", body,
		sessionID, messageID)
}

// ClearHistory wipes the session's message log on the agent.
func (t *Transport) ClearHistory(ctx context.Context, sessionID string) (MutationResult, error) {
	const op = "clearHistory"

	v, err := t.run(ctx, op,
		func(ctx context.Context) (any, error) {
			query := url.Values{"session": {sessionID}}
			data, err := t.primary.doJSON(ctx, http.MethodDelete, "/api/chat/history", query, nil)
			if err != nil {
				return nil, err
			}
			var wire struct{ envelope }
			if err := decodeEnveloped(op, data, nil, &wire.envelope); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
		func(ctx context.Context) (any, error) {
			if err := t.callFallback(ctx, op, "chat.clearHistory", nil, sessionID); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
	)
	if err != nil {
		if msg, ok := asRejection(err); ok {
			return MutationResult{Success: false, Error: msg}, nil
		}
		return MutationResult{}, err
	}
	return v.(MutationResult), nil
}

// ToggleServer enables or disables one tool server.
func (t *Transport) ToggleServer(ctx context.Context, sessionID, server string, enabled bool) (MutationResult, error) {
	const op = "toggleServer"
	body := map[string]any{"session": sessionID, "server": server, "enabled": enabled}

	v, err := t.run(ctx, op,
		func(ctx context.Context) (any, error) {
			data, err := t.primary.doJSON(ctx, http.MethodPost, "/api/mcp/toggle", nil, body)
			if err != nil {
				return nil, err
			}
			var wire struct{ envelope }
			if err := decodeEnveloped(op, data, nil, &wire.envelope); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
		func(ctx context.Context) (any, error) {
			if err := t.callFallback(ctx, op, "mcp.toggle", nil, sessionID, server, enabled); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
	)
	if err != nil {
		if msg, ok := asRejection(err); ok {
			return MutationResult{Success: false, Error: msg}, nil
		}
		return MutationResult{}, err
	}
	return v.(MutationResult), nil
}

// ForkMessage forks the conversation at a message into a new session.
func (t *Transport) ForkMessage(ctx context.Context, sessionID, messageID string) (ForkResult, error) {
	const op = "forkMessage"
	body := map[string]string{"session": sessionID, "messageId": messageID}

	v, err := t.run(ctx, op,
		func(ctx context.Context) (any, error) {
			data, err := t.primary.doJSON(ctx, http.MethodPost, "/api/chat/fork", nil, body)
			if err != nil {
				return nil, err
			}
			var wire struct {
				envelope
				SessionID *string `json:"sessionId"`
			}
			if err := decodeEnveloped(op, data, &wire, &wire.envelope); err != nil {
				return nil, err
			}
			if wire.SessionID == nil || *wire.SessionID == "" {
				return nil, invalidResponse(op, errors.New("missing sessionId field"))
			}
			return ForkResult{Success: true, SessionID: *wire.SessionID}, nil
		},
		func(ctx context.Context) (any, error) {
			var wire struct {
				SessionID *string `json:"sessionId"`
			}
			if err := t.callFallback(ctx, op, "chat.fork", &wire, sessionID, messageID); err != nil {
				return nil, err
			}
			if wire.SessionID == nil || *wire.SessionID == "" {
				return nil, invalidResponse(op, errors.New("missing sessionId field"))
			}
			return ForkResult{Success: true, SessionID: *wire.SessionID}, nil
		},
	)
	if err != nil {
		if msg, ok := asRejection(err); ok {
			return ForkResult{Success: false, Error: msg}, nil
		}
		return ForkResult{}, err
	}
	return v.(ForkResult), nil
}

// DecideApproval approves or denies one pending tool call.
func (t *Transport) DecideApproval(ctx context.Context, sessionID, approvalID string, approve bool) (MutationResult, error) {
	const op = "decideApproval"
	body := map[string]any{"session": sessionID, "id": approvalID, "approve": approve}

	v, err := t.run(ctx, op,
		func(ctx context.Context) (any, error) {
			data, err := t.primary.doJSON(ctx, http.MethodPost, "/api/runtime/approvals/decide", nil, body)
			if err != nil {
				return nil, err
			}
			var wire struct{ envelope }
			if err := decodeEnveloped(op, data, nil, &wire.envelope); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
		func(ctx context.Context) (any, error) {
			if err := t.callFallback(ctx, op, "runtime.decideApproval", nil, sessionID, approvalID, approve); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
	)
	if err != nil {
		if msg, ok := asRejection(err); ok {
			return MutationResult{Success: false, Error: msg}, nil
		}
		return MutationResult{}, err
	}
	return v.(MutationResult), nil
}

// mutate is the shared shape for simple body-POST mutations whose
// contract is just the envelope.
func (t *Transport) mutate(ctx context.Context, op, path, method string, body any, args ...any) (MutationResult, error) {
	v, err := t.run(ctx, op,
		func(ctx context.Context) (any, error) {
			data, err := t.primary.doJSON(ctx, http.MethodPost, path, nil, body)
			if err != nil {
				return nil, err
			}
			var wire struct{ envelope }
			if err := decodeEnveloped(op, data, nil, &wire.envelope); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
		func(ctx context.Context) (any, error) {
			if err := t.callFallback(ctx, op, method, nil, args...); err != nil {
				return nil, err
			}
			return MutationResult{Success: true}, nil
		},
	)
	if err != nil {
		if msg, ok := asRejection(err); ok {
			return MutationResult{Success: false, Error: msg}, nil
		}
		return MutationResult{}, err
	}
	return v.(MutationResult), nil
}

// asRejection extracts the message from a business rejection.
func asRejection(err error) (string, bool) {
	var ce *ClientError
	if errors.As(err, &ce) && ce.Type == ErrTypeRejected {
		return ce.Message, true
	}
	return "", false
}
