// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// TYPING INDICATOR
// =============================================================================

// elapsedAfter is how long a reply may be pending before the indicator
// starts showing the wait time.
const elapsedAfter = 3 * time.Second

// TypingIndicator is the "AI is typing…" line shown while a reply is
// pending.
type TypingIndicator struct {
	spinner   spinner.Model
	theme     *styles.Theme
	active    bool
	startTime time.Time
	now       func() time.Time
}

// NewTypingIndicator creates an idle indicator.
func NewTypingIndicator(theme *styles.Theme) TypingIndicator {
	s := spinner.New()
	s.Spinner = theme.TypingSpinner().Bubbles()
	s.Style = theme.Spinner
	return TypingIndicator{spinner: s, theme: theme, now: time.Now}
}

// Start activates the indicator and returns the first tick.
func (t *TypingIndicator) Start() tea.Cmd {
	if t.active {
		return nil
	}
	t.active = true
	t.startTime = t.now()
	return t.spinner.Tick
}

// Stop hides the indicator. Pending ticks are ignored once stopped.
func (t *TypingIndicator) Stop() {
	t.active = false
}

// Active reports whether the indicator is running.
func (t *TypingIndicator) Active() bool {
	return t.active
}

// Elapsed returns how long the indicator has been running.
func (t *TypingIndicator) Elapsed() time.Duration {
	if !t.active {
		return 0
	}
	return t.now().Sub(t.startTime)
}

// Update advances the animation.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or nothing when idle.
func (t TypingIndicator) View() string {
	if !t.active {
		return ""
	}
	out := t.spinner.View() + " " + t.theme.TypingText.Render(styles.TypingLabel)
	if d := t.Elapsed(); d >= elapsedAfter {
		out += t.theme.Muted.Render(" " + formatElapsed(d))
	}
	return out
}
