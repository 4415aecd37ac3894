// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent is the transport layer to the remote agent.
package agent

import (
	"context"
	"io"
	"strings"
	"testing"
)

func streamOf(lines ...string) *TurnStream {
	return NewTurnStream(io.NopCloser(strings.NewReader(strings.Join(lines, "\n") + "\n")))
}

func TestTurnStreamTextAndDone(t *testing.T) {
	stream := streamOf(
		`{"type":"text","text":"Hel"}`,
		`{"type":"text","text":"lo"}`,
		`{"type":"done"}`,
	)
	defer stream.Close()

	ctx := context.Background()

	var texts []string
	for {
		part, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if part.Type == PartText {
			texts = append(texts, part.Text)
		}
		if part.Type == PartDone {
			break
		}
	}

	if len(texts) != 2 || texts[0] != "Hel" || texts[1] != "lo" {
		t.Errorf("text deltas = %v, want [Hel lo]", texts)
	}
	if got := stream.Accumulated(); got != "Hello" {
		t.Errorf("Accumulated() = %q, want Hello", got)
	}

	if _, err := stream.Next(ctx); err != io.EOF {
		t.Errorf("Next() after done error = %v, want io.EOF", err)
	}
}

func TestTurnStreamProgressPayload(t *testing.T) {
	stream := streamOf(
		`{"type":"data-progress","data":{"phase":"tool-call","message":"searching docs","toolName":"search"}}`,
	)
	defer stream.Close()

	part, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if part.Type != PartProgress {
		t.Fatalf("part type = %q, want data-progress", part.Type)
	}
	if part.Progress["phase"] != "tool-call" || part.Progress["toolName"] != "search" {
		t.Errorf("progress payload = %v", part.Progress)
	}
}

// A single malformed frame must not kill the turn.
func TestTurnStreamSkipsMalformedLines(t *testing.T) {
	stream := streamOf(
		`not json at all`,
		``,
		`{"text":"missing type tag"}`,
		`{"type":"text","text":"ok"}`,
	)
	defer stream.Close()

	part, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if part.Type != PartText || part.Text != "ok" {
		t.Errorf("part = %+v, want the one well-formed text delta", part)
	}
}

func TestTurnStreamErrorPart(t *testing.T) {
	stream := streamOf(`{"type":"error","message":"model crashed"}`)
	defer stream.Close()

	part, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if part.Type != PartError || part.Message != "model crashed" {
		t.Errorf("part = %+v, want error part", part)
	}
}

// Unknown part types pass through with their raw payload intact.
func TestTurnStreamPassesThroughUnknownParts(t *testing.T) {
	stream := streamOf(`{"type":"data-usage","data":{"tokens":12}}`)
	defer stream.Close()

	part, err := stream.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if part.Type != "data-usage" {
		t.Errorf("part type = %q, want data-usage", part.Type)
	}
	if !strings.Contains(string(part.Raw), `"tokens":12`) {
		t.Errorf("raw payload = %s", part.Raw)
	}
}

func TestTurnStreamContextCancel(t *testing.T) {
	stream := streamOf(`{"type":"text","text":"x"}`)
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stream.Next(ctx); err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestTurnStreamEndWithoutDone(t *testing.T) {
	// Stream that just ends - no done frame, no trailing newline.
	stream := NewTurnStream(io.NopCloser(strings.NewReader(`{"type":"text","text":"partial"}`)))
	defer stream.Close()

	ctx := context.Background()
	part, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if part.Type != PartText || part.Text != "partial" {
		t.Errorf("part = %+v", part)
	}
	if _, err := stream.Next(ctx); err != io.EOF {
		t.Errorf("Next() at end error = %v, want io.EOF", err)
	}
}
