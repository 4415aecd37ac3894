// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// HTTP CLIENT (PRIMARY CHANNEL)
// =============================================================================

// Client talks to the agent's HTTP JSON API under /api/... . It is the
// primary channel; every response is expected to carry the standard
// success envelope.
//
// The Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no client-side timeout; a streamed turn can
	// legitimately outlive any fixed request budget. Cancellation is
	// the caller's context.
	streamClient *http.Client
}

// NewClient creates a client for the given API root
// (e.g. "http://127.0.0.1:8920").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		streamClient: &http.Client{},
	}
}

// doJSON performs one HTTP exchange and returns the raw body. Network
// failures and non-2xx statuses come back as connection-class
// ClientErrors so the transport knows the fallback channel applies.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode request", Cause: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "agent HTTP API unreachable", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Type:    ErrTypeConnection,
			Message: "agent HTTP API returned " + resp.Status,
		}
	}

	return data, nil
}

// decodeEnveloped unmarshals an API body into out (which must embed the
// envelope fields) and validates the envelope. Shape failures become
// invalid-response errors; a well-formed failure envelope becomes a
// business rejection.
func decodeEnveloped(op string, data []byte, out any, env *envelope) error {
	if err := json.Unmarshal(data, env); err != nil {
		return invalidResponse(op, err)
	}
	businessErr, shapeErr := env.check()
	if shapeErr != nil {
		return invalidResponse(op, shapeErr)
	}
	if businessErr != nil {
		return businessErr
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return invalidResponse(op, err)
		}
	}
	return nil
}
