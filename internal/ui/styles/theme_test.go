// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeInitializesStyles(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	// A zero-value style renders its input unchanged; the ones the UI
	// leans on should all carry some configuration.
	if theme.UserBubble.GetPaddingLeft() == 0 && theme.UserBubble.GetPaddingRight() == 0 {
		t.Error("UserBubble has no padding configured")
	}
	if !theme.SuggestSelected.GetBold() {
		t.Error("SuggestSelected is not bold")
	}
	if !theme.BackToBottomBadge.GetBold() {
		t.Error("BackToBottomBadge is not bold")
	}
}

func TestLayoutModeThresholds(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 40)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}
