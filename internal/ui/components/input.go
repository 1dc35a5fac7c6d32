// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// INPUT AREA COMPONENT
// =============================================================================

// Input limits.
const (
	DefaultInputHeight = 3
	MaxInputChars      = 32000
)

// InputArea is the multi-line message box. Enter is left to the caller
// (it submits); Alt+Enter and Ctrl+J insert a newline.
type InputArea struct {
	textarea textarea.Model
	theme    *styles.Theme
	width    int

	// warnAt is the length that triggers the long-message warning (0 = off)
	warnAt int
}

// NewInputArea creates a focused-ready input.
func NewInputArea(theme *styles.Theme, warnAt int) *InputArea {
	ta := textarea.New()
	ta.Placeholder = "Say something chill… (/help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = MaxInputChars
	ta.SetHeight(DefaultInputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))

	i := &InputArea{textarea: ta, theme: theme, width: 80, warnAt: warnAt}
	i.applyTheme()
	return i
}

// applyTheme copies the current palette into the textarea styles.
func (i *InputArea) applyTheme() {
	i.textarea.Prompt = "› "
	i.textarea.FocusedStyle.Prompt = i.theme.InputPrompt
	i.textarea.BlurredStyle.Prompt = i.theme.Muted
	i.textarea.FocusedStyle.Placeholder = i.theme.InputPlaceholder
	i.textarea.BlurredStyle.Placeholder = i.theme.InputPlaceholder
	i.textarea.FocusedStyle.CursorLine = i.theme.InputPrompt.UnsetBold().UnsetForeground()
}

// ThemeChanged re-reads styles after the shared theme was replaced.
func (i *InputArea) ThemeChanged() {
	i.applyTheme()
}

// Focus focuses the input.
func (i *InputArea) Focus() tea.Cmd {
	return i.textarea.Focus()
}

// Blur removes focus from the input.
func (i *InputArea) Blur() {
	i.textarea.Blur()
}

// Focused reports whether the input has focus.
func (i *InputArea) Focused() bool {
	return i.textarea.Focused()
}

// SetWidth sets the input width.
func (i *InputArea) SetWidth(width int) {
	i.width = width
	i.textarea.SetWidth(max(width-4, 10))
}

// SetWarnAt changes the long-message threshold.
func (i *InputArea) SetWarnAt(n int) {
	i.warnAt = n
}

// Value returns the current text.
func (i *InputArea) Value() string {
	return i.textarea.Value()
}

// SetValue replaces the text.
func (i *InputArea) SetValue(s string) {
	i.textarea.SetValue(s)
}

// Reset clears the text.
func (i *InputArea) Reset() {
	i.textarea.Reset()
}

// Len is the length in characters.
func (i *InputArea) Len() int {
	return utf8.RuneCountInString(i.textarea.Value())
}

// LongMessage reports whether the text is past the warning threshold.
func (i *InputArea) LongMessage() bool {
	return i.warnAt > 0 && i.Len() > i.warnAt
}

// Update forwards key presses to the textarea.
func (i *InputArea) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textarea, cmd = i.textarea.Update(msg)
	return cmd
}

// Height is the number of lines View renders.
func (i *InputArea) Height() int {
	return i.textarea.Height() + 3
}

// View renders the box with its counter line below.
func (i *InputArea) View() string {
	box := i.theme.InputContainer.Width(i.width - 2).Render(i.textarea.View())
	return box + "\n" + i.counter()
}

// counter is the character count, or the long-message warning.
func (i *InputArea) counter() string {
	n := i.Len()
	if i.LongMessage() {
		return i.theme.RenderWarning(fmt.Sprintf(
			"%s characters. Long messages cost more tokens and may be cut off.", fmtNumber(n)))
	}
	if n == 0 {
		return i.theme.CharCount.Render("Enter to send · Alt+Enter for a new line")
	}
	return i.theme.CharCount.Render(fmt.Sprintf("%s chars", fmtNumber(n)))
}
