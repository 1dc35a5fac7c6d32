// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case tea.MouseMsg:
		if m.viewport.Update(msg) {
			m.recordScroll()
		}

	case EventMsg:
		m.ctrl.Handle(msg.Event)
		cmd = m.sync()

	case spinner.TickMsg:
		m.typing, cmd = m.typing.Update(msg)

	case ConfigReloadedMsg:
		cmd = m.handleConfigReload(msg)

	case documentsMsg:
		m.handleDocuments(msg)

	case docListMsg:
		m.handleDocList(msg)

	case docActionMsg:
		if msg.err != nil {
			m.setNotice(errText(msg.err), true)
		} else {
			m.setNotice(msg.text, false)
			cmd = m.fetchDocuments(true)
		}

	case keySavedMsg:
		if msg.err != nil {
			m.setNotice("Key set for this session, but saving failed: "+msg.err.Error(), true)
		} else {
			m.setNotice("Key saved to "+msg.path, false)
		}

	case initializedMsg:
		if msg.err != nil {
			m.setNotice("Backend initialization failed: "+errText(msg.err), true)
		}

	default:
		cmd = m.updateFocused(msg)
	}

	m.fit()
	return m, cmd
}

// updateFocused forwards msg to whichever text field has focus.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	if m.promptingKey {
		return m.keyPrompt.Update(msg)
	}
	return m.input.Update(msg)
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Ctrl+C always works: it stops a reply first and quits when idle.
	if key.Matches(msg, m.keys.Stop) {
		if m.ctrl.Cancel() {
			m.setNotice("Stopping…", false)
			return nil
		}
		return m.quit()
	}

	if m.promptingKey {
		return m.handleKeyPromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Dismiss):
		m.dismiss()
		return nil

	case key.Matches(msg, m.keys.Clear):
		return m.clear()

	case key.Matches(msg, m.keys.APIKey):
		return m.openKeyPrompt()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
		m.recordScroll()
		return nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
		m.recordScroll()
		return nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		m.recordScroll()
		return nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		m.recordScroll()
		return nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		m.recordScroll()
		return nil

	case key.Matches(msg, m.keys.Bottom):
		// A plain End while pinned belongs to the input's cursor.
		if msg.String() == "end" && m.ctrl.State().Scroll.PinnedToBottom {
			return m.input.Update(msg)
		}
		m.viewport.GotoBottom()
		m.ctrl.RecordScrollPosition(true)
		return nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	return m.input.Update(msg)
}

func (m *Model) handleKeyPromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		k := m.keyPrompt.Value()
		if k == "" {
			m.setNotice("Paste a key first, or press Esc to skip.", true)
			return nil
		}
		return m.setAPIKey(k)

	case tea.KeyEsc:
		cmd := m.closeKeyPrompt()
		if m.cfg.API.APIKey == "" {
			m.setNotice("No API key set. Press Ctrl+K when you have one.", false)
		}
		return cmd
	}
	return m.keyPrompt.Update(msg)
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit sends the input as a message, or runs it as a slash command.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "/") {
		m.input.Reset()
		return m.runCommand(trimmed)
	}

	err := m.ctrl.Submit(text)
	switch {
	case errors.Is(err, conversation.ErrBusy):
		m.setNotice("Still answering. Ctrl+C stops the reply.", true)
		return nil

	case errors.Is(err, conversation.ErrMissingCredential):
		m.dismissed = nil
		m.sync()
		return m.openKeyPrompt()

	case err != nil:
		m.dismissed = nil
		return m.sync()
	}

	m.input.Reset()
	m.dismissed = nil
	m.setNotice("", false)
	return m.sync()
}

func (m *Model) clear() tea.Cmd {
	m.ctrl.Clear()
	m.dismissed = nil
	m.setNotice("", false)
	return m.sync()
}

// dismiss hides the error banner, then the notice.
func (m *Model) dismiss() {
	if m.banner.Visible() {
		m.dismissed = m.ctrl.State().Err
		m.banner.Set(nil)
		return
	}
	m.setNotice("", false)
}

func (m *Model) quit() tea.Cmd {
	m.ctrl.Close()
	m.quitting = true
	return tea.Quit
}

// =============================================================================
// API KEY
// =============================================================================

func (m *Model) openKeyPrompt() tea.Cmd {
	m.promptingKey = true
	m.input.Blur()
	m.keyPrompt.Reset()
	return m.keyPrompt.Focus()
}

func (m *Model) closeKeyPrompt() tea.Cmd {
	m.promptingKey = false
	m.keyPrompt.Blur()
	m.keyPrompt.Reset()
	return m.input.Focus()
}

// setAPIKey applies k to the session and saves it in the background.
func (m *Model) setAPIKey(k string) tea.Cmd {
	m.cfg.API.APIKey = k
	m.client = m.client.ForKey(k)
	m.applySettings()

	if err := m.ctrl.State().Err; err != nil && errors.Is(err, conversation.ErrMissingCredential) {
		m.dismissed = err
		m.banner.Set(nil)
	}
	m.setNotice("API key set.", false)

	cmds := []tea.Cmd{m.closeKeyPrompt()}
	if m.cfgPath != "" {
		cmds = append(cmds, saveKey(m.cfgPath, k))
	}
	if m.client.Dialect() == api.DialectPyPal {
		cmds = append(cmds, m.initializeBackend())
	}
	return tea.Batch(cmds...)
}

// saveKey stores k in the config file at path without writing values that
// came from the environment.
func saveKey(path, k string) tea.Cmd {
	return func() tea.Msg {
		cfg := config.Default()
		if _, err := os.Stat(path); err == nil {
			if err := config.LoadTOML(cfg, path); err != nil {
				return keySavedMsg{path: path, err: err}
			}
		}
		cfg.API.APIKey = k
		return keySavedMsg{path: path, err: config.SaveTOML(cfg, path)}
	}
}

func (m *Model) initializeBackend() tea.Cmd {
	client := m.client
	return withTimeout(func(ctx context.Context) tea.Msg {
		_, err := client.Initialize(ctx)
		return initializedMsg{err: err}
	})
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// handleConfigReload applies a config file change. Invalid files are
// reported and otherwise ignored.
func (m *Model) handleConfigReload(msg ConfigReloadedMsg) tea.Cmd {
	if msg.Err != nil || msg.Config == nil {
		m.setNotice(fmt.Sprintf("Config not reloaded: %v", msg.Err), true)
		return nil
	}
	next := msg.Config
	prevTheme := m.cfg.UI.Theme
	prevKey := m.cfg.API.APIKey
	prevRAG := m.cfg.API.UseRAG

	m.cfg = next
	if next.API.APIKey != prevKey {
		m.client = m.client.ForKey(next.API.APIKey)
	}
	m.applySettings()

	m.viewport.SetThreshold(next.UI.ScrollThreshold)
	m.input.SetWarnAt(next.UI.LongMessageWarning)
	m.markdown.SetEnabled(next.UI.Markdown)
	m.messages.SetShowTimestamps(next.UI.ShowTimestamps)

	var cmds []tea.Cmd
	if next.UI.Theme != prevTheme {
		t, _ := config.ParseTheme(next.UI.Theme)
		cmds = append(cmds, m.setTheme(t))
	}
	if next.API.UseRAG && !prevRAG && m.documentsSupported() {
		cmds = append(cmds, m.fetchDocuments(true))
	}
	m.applyLabels()
	m.refresh()
	m.setNotice("Config reloaded.", false)
	return tea.Batch(cmds...)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (m *Model) fetchDocuments(quiet bool) tea.Cmd {
	client := m.client
	return withTimeout(func(ctx context.Context) tea.Msg {
		status, err := client.Status(ctx)
		return documentsMsg{status: status, err: err, quiet: quiet}
	})
}

func (m *Model) handleDocuments(msg documentsMsg) {
	if msg.err != nil {
		if !msg.quiet {
			m.setNotice(errText(msg.err), true)
		}
		return
	}
	m.status.Documents = msg.status.DocumentCount
	if !msg.quiet {
		m.setNotice(util.Plural(msg.status.DocumentCount, "document")+" uploaded.", false)
	}
}

func (m *Model) handleDocList(msg docListMsg) {
	if msg.err != nil {
		m.setNotice(errText(msg.err), true)
		return
	}
	m.status.Documents = len(msg.list.Documents)
	if len(msg.list.Documents) == 0 {
		m.setNotice("No documents uploaded. Try /upload <path>.", false)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:", util.Plural(len(msg.list.Documents), "document"))
	for _, d := range msg.list.Documents {
		fmt.Fprintf(&b, "\n  %s  %s", d.Filename, m.theme.Muted.Render(util.RelativeTime(d.UploadedAt(), now())))
	}
	m.setNotice(b.String(), false)
}

// errText prefers a transport error's user-facing message.
func errText(err error) string {
	var te *api.TransportError
	if errors.As(err, &te) {
		return te.UserMessage()
	}
	return err.Error()
}
