// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func TestToastManagerNewestFirst(t *testing.T) {
	m := NewToastManager()
	m.AddStatus("first")
	m.AddError("second")

	toasts := m.Toasts()
	if len(toasts) != 2 {
		t.Fatalf("got %d toasts, want 2", len(toasts))
	}
	if toasts[0].Message != "second" || toasts[1].Message != "first" {
		t.Errorf("toast order = [%s %s], want newest first", toasts[0].Message, toasts[1].Message)
	}
}

func TestToastManagerCapsStack(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < 10; i++ {
		m.AddStatus("toast")
	}
	if got := len(m.Toasts()); got != 5 {
		t.Errorf("stack size = %d, want 5", got)
	}
}

func TestTickDropsExpiredToasts(t *testing.T) {
	m := NewToastManager()
	id := m.AddStatus("short lived")
	m.Remove(id)

	m.AddError("still here")
	// Force-expire by rewinding CreatedAt.
	m.mu.Lock()
	m.toasts[0].CreatedAt = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	if got := len(m.Tick()); got != 0 {
		t.Errorf("Tick() kept %d toasts, want 0", got)
	}
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	m := NewToastManager()
	m.AddStatus("keep")
	m.Remove(999)
	if got := len(m.Toasts()); got != 1 {
		t.Errorf("got %d toasts after removing unknown ID, want 1", got)
	}
}

func TestRenderToastIncludesMessage(t *testing.T) {
	toast := Toast{
		ID:        1,
		Message:   "agent unreachable",
		Kind:      ToastKindError,
		CreatedAt: time.Now(),
		Duration:  ErrorToastDuration,
	}
	rendered := RenderToast(toast, 80)
	if !strings.Contains(rendered, "agent unreachable") {
		t.Errorf("rendered toast missing message:\n%s", rendered)
	}
}

func TestRenderToastStackEmpty(t *testing.T) {
	if got := RenderToastStack(nil, 80, 24); got != "" {
		t.Errorf("RenderToastStack(nil) = %q, want empty", got)
	}
}
