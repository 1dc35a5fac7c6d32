// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the top line: the brand on the left, theme and preset labels
// on the right.
type Header struct {
	theme *styles.Theme
	width int

	Subtitle string // e.g. the preset label
	Badge    string // e.g. the theme label
}

// NewHeader creates a new header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{theme: theme, width: 80}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	title := h.theme.HeaderTitle.Render("❄ ChillGPT")
	if h.width < 50 {
		return h.theme.Header.Width(h.width).Render(title)
	}

	right := h.theme.HeaderSubtitle.Render(h.Subtitle)
	if h.Badge != "" && h.width >= 70 {
		right = h.theme.Muted.Render(h.Badge) + "  " + right
	}

	gap := h.width - 2 - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		return h.theme.Header.Width(h.width).Render(title)
	}
	return h.theme.Header.Width(h.width).Render(title + lipgloss.NewStyle().Width(gap).Render("") + right)
}
