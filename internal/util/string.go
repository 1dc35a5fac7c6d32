// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// TruncateRunes truncates s to maxRunes characters, ending in "..." when cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateWidth truncates s to maxWidth terminal columns. Wide characters
// (CJK, most emoji) count as two.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return runewidth.Truncate(s, 1, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadRight pads s with spaces to width columns. Wider strings are returned as is.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// StringWidth returns the display width of s.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// FirstLine returns the first non-blank line of s, trimmed.
// More is true when s had further content.
func FirstLine(s string) (line string, more bool) {
	s = strings.TrimSpace(s)
	line, rest, found := strings.Cut(s, "\n")
	return strings.TrimSpace(line), found && strings.TrimSpace(rest) != ""
}

// Preview returns a one-line summary of s at most maxWidth columns wide.
func Preview(s string, maxWidth int) string {
	line, more := FirstLine(s)
	if more {
		line += " " + Ellipsis
	}
	return TruncateWidth(line, maxWidth)
}
