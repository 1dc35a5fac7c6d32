// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/export"
	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// commandHandler runs a slash command with its arguments.
type commandHandler func(m *Model, args []string) tea.Cmd

// commandHandlers maps command names and aliases to handlers.
var commandHandlers = map[string]commandHandler{
	"help":   handleHelpCommand,
	"h":      handleHelpCommand,
	"?":      handleHelpCommand,
	"quit":   handleQuitCommand,
	"q":      handleQuitCommand,
	"exit":   handleQuitCommand,
	"clear":  handleClearCommand,
	"c":      handleClearCommand,
	"preset": handlePresetCommand,
	"theme":  handleThemeCommand,
	"model":  handleModelCommand,
	"m":      handleModelCommand,
	"rag":    handleRAGCommand,
	"upload": handleUploadCommand,
	"docs":   handleDocsCommand,
	"export": handleExportCommand,
	"e":      handleExportCommand,
	"copy":   handleCopyCommand,
	"key":    handleKeyCommand,
}

// commandHelp lists the commands shown by /help, in order.
var commandHelp = []struct {
	usage string
	desc  string
}{
	{"/clear", "start over"},
	{"/preset [name]", "show or switch the assistant personality"},
	{"/theme [name]", "show or switch the colour theme"},
	{"/model [id]", "show or switch the model"},
	{"/rag [on|off]", "answer from uploaded documents"},
	{"/upload <path>", "upload a text document"},
	{"/docs [clear|rm <file>]", "list or remove documents"},
	{"/export [path]", "save the chat (.md, .json, .yaml, .html)"},
	{"/copy", "copy the last reply"},
	{"/key", "enter a new API key"},
	{"/quit", "leave"},
}

// runCommand parses and dispatches a slash command.
func (m *Model) runCommand(content string) tea.Cmd {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return nil
	}
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))

	handler, ok := commandHandlers[name]
	if !ok {
		m.setNotice(fmt.Sprintf("Unknown command %q. Type /help for the list.", parts[0]), true)
		return nil
	}
	return handler(m, parts[1:])
}

// =============================================================================
// HELP & META
// =============================================================================

func handleHelpCommand(m *Model, _ []string) tea.Cmd {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range commandHelp {
		fmt.Fprintf(&b, "\n  %-26s %s", c.usage, c.desc)
	}
	b.WriteString("\nKeys:")
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		fmt.Fprintf(&b, "\n  %-26s %s", h.Key, h.Desc)
	}
	m.setNotice(b.String(), false)
	return nil
}

func handleQuitCommand(m *Model, _ []string) tea.Cmd {
	return m.quit()
}

func handleClearCommand(m *Model, _ []string) tea.Cmd {
	cmd := m.clear()
	m.setNotice("Chat cleared.", false)
	return cmd
}

func handleKeyCommand(m *Model, _ []string) tea.Cmd {
	return m.openKeyPrompt()
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func handlePresetCommand(m *Model, args []string) tea.Cmd {
	current, _ := config.ParsePreset(m.cfg.Chat.Preset)
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("Presets:")
		for _, p := range config.Presets() {
			fmt.Fprintf(&b, "\n  %s %-18s %s", marker(p == current), p, p.Label())
		}
		m.setNotice(b.String(), false)
		return nil
	}

	p, ok := config.ParsePreset(args[0])
	if !ok {
		m.setNotice(fmt.Sprintf("Unknown preset %q. Try: %s", args[0], strings.Join(config.PresetNames(), ", ")), true)
		return nil
	}
	m.cfg.Chat.Preset = string(p)
	// An explicit system prompt would shadow the preset.
	m.cfg.Chat.SystemPrompt = ""
	m.applySettings()
	m.applyLabels()
	m.setNotice(fmt.Sprintf("Preset: %s. Applies from your next message.", p.Label()), false)
	return nil
}

func handleThemeCommand(m *Model, args []string) tea.Cmd {
	current, _ := config.ParseTheme(m.cfg.UI.Theme)
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("Themes:")
		for _, name := range config.ThemeNames() {
			t := config.Theme(name)
			fmt.Fprintf(&b, "\n  %s %-12s %s", marker(t == current), t, t.Label())
		}
		m.setNotice(b.String(), false)
		return nil
	}

	t, ok := config.ParseTheme(args[0])
	if !ok {
		m.setNotice(fmt.Sprintf("Unknown theme %q. Try: %s", args[0], strings.Join(config.ThemeNames(), ", ")), true)
		return nil
	}
	cmd := m.setTheme(t)
	m.setNotice("Theme: "+t.Label(), false)
	return cmd
}

func handleModelCommand(m *Model, args []string) tea.Cmd {
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("Models:")
		for _, id := range model.ModelIDs() {
			info, _ := model.GetModelInfo(id)
			fmt.Fprintf(&b, "\n  %s %-16s %s (%s)", marker(id == m.cfg.API.Model), id, info.Description, info.ContextString())
		}
		m.setNotice(b.String(), false)
		return nil
	}

	id := args[0]
	note := ""
	if info, ok := model.GetModelInfo(id); ok {
		id = info.ID
	} else {
		note = " (not in the catalog, sent as-is)"
	}
	m.cfg.API.Model = id
	m.applySettings()
	m.applyLabels()
	m.setNotice("Model: "+id+note, false)
	return nil
}

func handleRAGCommand(m *Model, args []string) tea.Cmd {
	on := !m.cfg.API.UseRAG
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes", "1":
			on = true
		case "off", "false", "no", "0":
			on = false
		default:
			m.setNotice("Usage: /rag on|off", true)
			return nil
		}
	}

	m.cfg.API.UseRAG = on
	m.applySettings()
	m.applyLabels()
	if !on {
		m.setNotice("Document answers off.", false)
		return nil
	}
	m.setNotice("Document answers on. Replies will only use uploaded documents.", false)
	if m.documentsSupported() {
		return m.fetchDocuments(true)
	}
	return nil
}

func marker(current bool) string {
	if current {
		return "•"
	}
	return " "
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func handleUploadCommand(m *Model, args []string) tea.Cmd {
	if !m.documentsSupported() {
		m.setNotice("Documents need a ChillGPT or PyPal backend.", true)
		return nil
	}
	if len(args) == 0 {
		m.setNotice("Usage: /upload <path>", true)
		return nil
	}
	path := expandHome(strings.Join(args, " "))
	name := filepath.Base(path)

	client := m.client
	m.setNotice("Uploading "+name+"…", false)
	return withTimeout(func(ctx context.Context) tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return docActionMsg{err: err}
		}
		defer f.Close()

		res, err := client.Upload(ctx, name, f)
		if err != nil {
			return docActionMsg{err: err}
		}
		return docActionMsg{text: fmt.Sprintf("Uploaded %s (%s).", name, util.Plural(res.ChunkCount, "chunk"))}
	})
}

func handleDocsCommand(m *Model, args []string) tea.Cmd {
	if !m.documentsSupported() {
		m.setNotice("Documents need a ChillGPT or PyPal backend.", true)
		return nil
	}
	client := m.client

	if len(args) == 0 {
		return withTimeout(func(ctx context.Context) tea.Msg {
			list, err := client.List(ctx)
			return docListMsg{list: list, err: err}
		})
	}

	switch strings.ToLower(args[0]) {
	case "clear":
		return withTimeout(func(ctx context.Context) tea.Msg {
			if _, err := client.ClearDocuments(ctx); err != nil {
				return docActionMsg{err: err}
			}
			return docActionMsg{text: "All documents removed."}
		})

	case "rm", "delete":
		if len(args) < 2 {
			m.setNotice("Usage: /docs rm <file>", true)
			return nil
		}
		name := strings.Join(args[1:], " ")
		return withTimeout(func(ctx context.Context) tea.Msg {
			if _, err := client.Delete(ctx, name); err != nil {
				return docActionMsg{err: err}
			}
			return docActionMsg{text: "Removed " + name + "."}
		})
	}

	m.setNotice("Usage: /docs [clear|rm <file>]", true)
	return nil
}

// =============================================================================
// EXPORT & CLIPBOARD
// =============================================================================

func handleExportCommand(m *Model, args []string) tea.Cmd {
	preset, _ := config.ParsePreset(m.cfg.Chat.Preset)
	t := export.NewTranscript(m.ctrl.State().Log, export.Meta{
		Model:  m.cfg.API.Model,
		Preset: string(preset),
	})

	path := ""
	if len(args) > 0 {
		path = expandHome(strings.Join(args, " "))
	}

	opts := export.DefaultOptions()
	if !m.theme.IsDark {
		opts.Theme = "light"
	}
	written, err := export.WriteFile(t, path, opts)
	if err != nil {
		m.setNotice("Export failed: "+err.Error(), true)
		return nil
	}
	m.setNotice(fmt.Sprintf("Saved %s to %s", util.Plural(len(t.Messages), "message"), written), false)
	return nil
}

func handleCopyCommand(m *Model, _ []string) tea.Cmd {
	last, ok := m.ctrl.State().Log.LastAssistant()
	if !ok || strings.TrimSpace(last.Content) == "" {
		m.setNotice("Nothing to copy yet.", true)
		return nil
	}
	if err := clipboard.WriteAll(last.Content); err != nil {
		m.setNotice("Clipboard unavailable: "+err.Error(), true)
		return nil
	}
	m.setNotice("Copied the last reply.", false)
	return nil
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
