// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom line: model, preset, documents and the token
// estimate on the left, key hints on the right.
type StatusBar struct {
	theme *styles.Theme
	Width int

	Model     string
	Preset    string
	Documents int
	RAG       bool
	Tokens    int
	Streaming bool
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, Width: 80, Model: model.DefaultModel}
}

// SetWidth sets the bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar for the current width.
func (s *StatusBar) View() string {
	var left []string
	switch {
	case s.Width < 60:
		left = []string{s.value(s.Model), s.tokens()}
	case s.Width < 100:
		left = []string{s.value(s.Model), s.field("preset", s.Preset), s.docs(), s.tokens()}
	default:
		left = []string{
			s.field("model", s.Model),
			s.field("preset", s.Preset),
			s.docs(),
			s.tokens(),
		}
	}

	sep := s.theme.StatusKey.Render(" │ ")
	inner := s.Width - 2
	parts := left[:0]
	for _, p := range left {
		if p != "" {
			parts = append(parts, p)
		}
	}
	// Drop trailing fields until the left side fits.
	for len(parts) > 1 && lipgloss.Width(strings.Join(parts, sep)) > inner {
		parts = parts[:len(parts)-1]
	}
	leftText := strings.Join(parts, sep)

	line := leftText
	right := s.shortcuts()
	if gap := inner - lipgloss.Width(leftText) - lipgloss.Width(right); gap >= 1 && right != "" {
		line += s.theme.StatusKey.Render(strings.Repeat(" ", gap)) + right
	}
	return s.theme.StatusBar.Width(s.Width).Render(line)
}

func (s *StatusBar) field(key, value string) string {
	if value == "" {
		return ""
	}
	return s.theme.StatusKey.Render(key+" ") + s.value(value)
}

func (s *StatusBar) value(v string) string {
	return s.theme.StatusValue.Render(v)
}

func (s *StatusBar) docs() string {
	if !s.RAG {
		return s.theme.StatusKey.Render("rag off")
	}
	return s.theme.StatusKey.Render("rag ") + s.value(util.Plural(s.Documents, "doc"))
}

func (s *StatusBar) tokens() string {
	return s.theme.StatusKey.Render("~") + s.value(fmtNumber(s.Tokens)) + s.theme.StatusKey.Render(" tokens")
}

func (s *StatusBar) shortcuts() string {
	if s.Width < 80 {
		return ""
	}
	action := "quit"
	if s.Streaming {
		action = "stop"
	}
	return s.theme.ShortcutKey.Render("^C") + s.theme.ShortcutDesc.Render(" "+action+"  ") +
		s.theme.ShortcutKey.Render("/help")
}
