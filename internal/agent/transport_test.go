// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeCaller is a scripted fallback channel that records every call.
type fakeCaller struct {
	mu      sync.Mutex
	methods []string
	handler func(method string, args []any) (json.RawMessage, error)
}

func (f *fakeCaller) Call(_ context.Context, method string, args ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()
	if f.handler == nil {
		return nil, errors.New("fallback unavailable")
	}
	return f.handler(method, args)
}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.methods)
}

func newTestTransport(server *httptest.Server, fallback Caller) *Transport {
	baseURL := "http://127.0.0.1:1" // unroutable unless a server is given
	if server != nil {
		baseURL = server.URL
	}
	return NewTransport(NewClient(baseURL, 2*time.Second), fallback, 2*time.Second)
}

func TestGetHistoryPrimarySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("session"); got != "s1" {
			t.Errorf("session query = %q, want s1", got)
		}
		w.Write([]byte(`{"success":true,"requestId":"r1","messages":[{"id":"m1","role":"user","content":"hi"}]}`))
	}))
	defer server.Close()

	fallback := &fakeCaller{}
	tr := newTestTransport(server, fallback)

	msgs, err := tr.GetHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" || msgs[0].Content != "hi" {
		t.Errorf("GetHistory() = %+v, want one message m1", msgs)
	}
	if fallback.callCount() != 0 {
		t.Errorf("fallback called %d times on primary success", fallback.callCount())
	}
}

// A well-formed failure envelope is the agent saying no. That answer is
// final: the fallback channel must not be asked the same question.
func TestBusinessRejectionDoesNotFallBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"requestId":"r2","error":{"code":"denied","message":"message is pinned"}}`))
	}))
	defer server.Close()

	fallback := &fakeCaller{}
	tr := newTestTransport(server, fallback)

	res, err := tr.DeleteMessage(context.Background(), "s1", "m1")
	if err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if res.Success {
		t.Error("DeleteMessage() Success = true for rejected delete")
	}
	if res.Error != "message is pinned" {
		t.Errorf("DeleteMessage() Error = %q, want rejection message", res.Error)
	}
	if fallback.callCount() != 0 {
		t.Errorf("fallback called %d times after business rejection", fallback.callCount())
	}
}

func TestConnectionFailureFallsBack(t *testing.T) {
	fallback := &fakeCaller{
		handler: func(method string, args []any) (json.RawMessage, error) {
			if method != "chat.history" {
				t.Errorf("fallback method = %q, want chat.history", method)
			}
			return json.RawMessage(`{"messages":[{"id":"m9","role":"assistant","content":"via fallback"}]}`), nil
		},
	}
	tr := newTestTransport(nil, fallback)

	msgs, err := tr.GetHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m9" {
		t.Errorf("GetHistory() = %+v, want fallback message m9", msgs)
	}
	if fallback.callCount() != 1 {
		t.Errorf("fallback called %d times, want 1", fallback.callCount())
	}
}

// A 200 body without the success tag is a malformed response, which is
// a transport failure: try the next channel, never treat it as data.
func TestInvalidShapeFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	fallback := &fakeCaller{
		handler: func(method string, args []any) (json.RawMessage, error) {
			return json.RawMessage(`{"messages":[]}`), nil
		},
	}
	tr := newTestTransport(server, fallback)

	msgs, err := tr.GetHistory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("GetHistory() = %+v, want empty slice", msgs)
	}
	if fallback.callCount() != 1 {
		t.Errorf("fallback called %d times, want 1", fallback.callCount())
	}
}

func TestBothChannelsFailNormalized(t *testing.T) {
	tr := newTestTransport(nil, &fakeCaller{})

	_, err := tr.GetHistory(context.Background(), "s1")
	if err == nil {
		t.Fatal("GetHistory() error = nil, want channels-exhausted")
	}
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeChannelsExhausted {
		t.Errorf("error = %v, want ErrTypeChannelsExhausted", err)
	}
}

func TestFallbackRejectionSurfacedAsResult(t *testing.T) {
	fallback := &fakeCaller{
		handler: func(method string, args []any) (json.RawMessage, error) {
			return nil, rejected("session is readonly")
		},
	}
	tr := newTestTransport(nil, fallback)

	res, err := tr.EditMessage(context.Background(), "s1", "m1", "new text")
	if err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if res.Success || res.Error != "session is readonly" {
		t.Errorf("EditMessage() = %+v, want rejected result", res)
	}
}

func TestForkViaFallback(t *testing.T) {
	fallback := &fakeCaller{
		handler: func(method string, args []any) (json.RawMessage, error) {
			if method != "chat.fork" {
				t.Errorf("fallback method = %q, want chat.fork", method)
			}
			return json.RawMessage(`{"sessionId":"s2"}`), nil
		},
	}
	tr := newTestTransport(nil, fallback)

	res, err := tr.ForkMessage(context.Background(), "s1", "m3")
	if err != nil {
		t.Fatalf("ForkMessage() error = %v", err)
	}
	if !res.Success || res.SessionID != "s2" {
		t.Errorf("ForkMessage() = %+v, want new session s2", res)
	}
}

// Concurrent identical reads share one underlying request; the cache
// entry is gone as soon as the call settles, so the next read is fresh.
func TestConcurrentReadsShareOneRequest(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{"success":true,"requestId":"r3","permissions":{"canEdit":true,"readonly":false}}`))
	}))
	defer server.Close()

	tr := newTestTransport(server, &fakeCaller{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Permissions, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tr.GetPermissions(context.Background(), "s1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if !results[i].CanEdit {
			t.Errorf("caller %d got %+v, want shared CanEdit result", i, results[i])
		}
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("server saw %d requests for %d concurrent callers, want 1", got, callers)
	}

	if _, err := tr.GetPermissions(context.Background(), "s1"); err != nil {
		t.Fatalf("follow-up GetPermissions() error = %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("server saw %d requests after settle, want 2", got)
	}
}

// Coalescing covers the whole channel walk: identical reads issued
// while the primary is unreachable must share a single fallback call,
// not race one each.
func TestConcurrentReadsShareOneFallbackCall(t *testing.T) {
	fallback := &fakeCaller{
		handler: func(method string, args []any) (json.RawMessage, error) {
			time.Sleep(50 * time.Millisecond)
			return json.RawMessage(`{"messages":[{"id":"m1","role":"assistant","content":"shared"}]}`), nil
		},
	}
	tr := newTestTransport(nil, fallback)

	const callers = 6
	var wg sync.WaitGroup
	results := make([][]ChatMessage, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tr.GetHistory(context.Background(), "s1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if len(results[i]) != 1 || results[i][0].ID != "m1" {
			t.Errorf("caller %d got %+v, want the shared fallback message", i, results[i])
		}
	}
	if got := fallback.callCount(); got != 1 {
		t.Errorf("fallback saw %d calls for %d concurrent callers, want 1", got, callers)
	}

	if _, err := tr.GetHistory(context.Background(), "s1"); err != nil {
		t.Fatalf("follow-up GetHistory() error = %v", err)
	}
	if got := fallback.callCount(); got != 2 {
		t.Errorf("fallback saw %d calls after settle, want 2", got)
	}
}

// Reads for different sessions never share a request.
func TestCoalescingIsSessionScoped(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(30 * time.Millisecond)
		w.Write([]byte(`{"success":true,"requestId":"r4","servers":[]}`))
	}))
	defer server.Close()

	tr := newTestTransport(server, &fakeCaller{})

	var wg sync.WaitGroup
	for _, session := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			if _, err := tr.ListServers(context.Background(), session); err != nil {
				t.Errorf("ListServers(%s) error = %v", session, err)
			}
		}(session)
	}
	wg.Wait()

	if got := requests.Load(); got != 2 {
		t.Errorf("server saw %d requests for 2 sessions, want 2", got)
	}
}

func TestToggleServerPrimary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["server"] != "search" || body["enabled"] != true {
			t.Errorf("toggle body = %v", body)
		}
		w.Write([]byte(`{"success":true,"requestId":"r5"}`))
	}))
	defer server.Close()

	tr := newTestTransport(server, &fakeCaller{})

	res, err := tr.ToggleServer(context.Background(), "s1", "search", true)
	if err != nil {
		t.Fatalf("ToggleServer() error = %v", err)
	}
	if !res.Success {
		t.Errorf("ToggleServer() = %+v, want success", res)
	}
}
