// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen top to bottom: header, conversation, typing line,
// banner and notice, input, status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading…"
	}

	st := m.ctrl.State()
	sections := []string{
		m.header.View(),
		m.viewport.View(st.Scroll.UnreadCount),
		m.typing.View(),
	}
	if footer := m.footerView(); footer != "" {
		sections = append(sections, footer)
	}
	sections = append(sections, m.status.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// footerView is everything between the typing line and the status bar.
func (m Model) footerView() string {
	var parts []string
	if b := m.banner.View(); b != "" {
		parts = append(parts, b)
	}
	if n := m.noticeView(); n != "" {
		parts = append(parts, n)
	}
	if m.promptingKey {
		parts = append(parts, m.keyPrompt.View())
	} else {
		parts = append(parts, m.input.View())
	}
	return strings.Join(parts, "\n")
}

func (m Model) noticeView() string {
	if m.notice == "" {
		return ""
	}
	style := m.theme.Muted
	if m.noticeErr {
		style = m.theme.ErrorStyle
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.PaddingLeft(1).Render(m.notice)
}
