// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen. Keys that are not
// bound here go to the input box.
type KeyMap struct {
	Submit     key.Binding
	Newline    key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Stop       key.Binding
	Clear      key.Binding
	APIKey     key.Binding
	Dismiss    key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("Alt+Enter", "new line"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("C-Up", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("C-Down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("ctrl+home"),
			key.WithHelp("C-Home", "oldest message"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "ctrl+end"),
			key.WithHelp("End", "jump to latest"),
		),
		Stop: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "stop reply / quit"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear chat"),
		),
		APIKey: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "enter API key"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "dismiss"),
		),
	}
}

// ShortHelp returns the bindings shown in /help.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Submit, k.Newline, k.PageUp, k.PageDown, k.Bottom,
		k.Stop, k.Clear, k.APIKey, k.Dismiss,
	}
}
