// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest implements trigger-token completion for the composer.
package suggest

import (
	"unicode"
	"unicode/utf8"
)

// Triggers is the set of characters that open a completion context.
const Triggers = "@#!"

// IsTrigger reports whether r opens a completion context.
func IsTrigger(r rune) bool {
	return r == '@' || r == '#' || r == '!'
}

// =============================================================================
// TOKEN
// =============================================================================

// Token describes the in-progress trigger word immediately before the
// caret. Offsets are byte offsets into the input string: Start points at
// the trigger character, End at the caret.
type Token struct {
	Trigger rune
	Query   string
	Start   int
	End     int
}

// =============================================================================
// PARSER
// =============================================================================

// ParseToken scans backward from the caret for a trigger token: start of
// string or whitespace, then one of '@#!', then zero or more
// non-whitespace/non-trigger characters running up to the caret.
//
// Returns nil when the caret is not inside a triggerable token - typing
// '@' in the middle of a word must not open a menu.
func ParseToken(input string, caret int) *Token {
	if caret < 0 || caret > len(input) {
		return nil
	}

	// Walk back over the query run.
	pos := caret
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:pos])
		if unicode.IsSpace(r) || IsTrigger(r) {
			break
		}
		pos -= size
	}

	// The character ending the walk must be a trigger.
	if pos == 0 {
		return nil
	}
	trigger, size := utf8.DecodeLastRuneInString(input[:pos])
	if !IsTrigger(trigger) {
		return nil
	}
	start := pos - size

	// The trigger must sit at start-of-string or after whitespace;
	// anything else is a mid-word '@' and not a command context.
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(input[:start])
		if !unicode.IsSpace(prev) {
			return nil
		}
	}

	return &Token{
		Trigger: trigger,
		Query:   input[pos:caret],
		Start:   start,
		End:     caret,
	}
}

// =============================================================================
// APPLICATION
// =============================================================================

// Apply replaces the token span [Start, End) with "{trigger}{value} " and
// returns the new input plus the caret offset immediately after the
// inserted text. The caller MUST reposition the input caret to that
// offset, or typing resumes from the wrong place.
func Apply(input string, tok Token, value string) (string, int) {
	inserted := string(tok.Trigger) + value + " "
	newInput := input[:tok.Start] + inserted + input[tok.End:]
	return newInput, tok.Start + len(inserted)
}
