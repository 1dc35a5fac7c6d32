// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// API KEY PROMPT
// =============================================================================

// KeyPrompt asks for the API key with the input masked.
type KeyPrompt struct {
	input textinput.Model
	theme *styles.Theme
	width int
}

// NewKeyPrompt creates the prompt.
func NewKeyPrompt(theme *styles.Theme) *KeyPrompt {
	ti := textinput.New()
	ti.Placeholder = "sk-..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.Prompt = "API key: "
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	return &KeyPrompt{input: ti, theme: theme, width: 80}
}

// SetWidth sets the prompt width.
func (k *KeyPrompt) SetWidth(width int) {
	k.width = width
	k.input.Width = max(width-14, 10)
}

// Focus focuses the field.
func (k *KeyPrompt) Focus() tea.Cmd {
	return k.input.Focus()
}

// Blur removes focus.
func (k *KeyPrompt) Blur() {
	k.input.Blur()
}

// Value returns the entered key with surrounding space removed.
func (k *KeyPrompt) Value() string {
	return strings.TrimSpace(k.input.Value())
}

// Reset clears the field.
func (k *KeyPrompt) Reset() {
	k.input.Reset()
}

// Update forwards key presses to the field.
func (k *KeyPrompt) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	k.input, cmd = k.input.Update(msg)
	return cmd
}

// View renders the prompt with its hint line.
func (k *KeyPrompt) View() string {
	hint := k.theme.Muted.Render("Enter to save · Esc to skip · stored in ~/.chillgpt/config.toml")
	return k.theme.InputContainer.Width(k.width - 2).Render(k.input.View()) + "\n" + hint
}
