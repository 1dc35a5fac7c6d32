// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat: "chillgpt chat".
//
// A REPL for terminals that cannot host the full-screen chat, and for piped
// scripts. Replies stream as they arrive.
//
// Interactive Commands (during chat):
//
//	/help, /h           Show available commands
//	/clear, /c          Start over
//	/model [id]         Show or switch model
//	/preset [name]      Show or switch preset
//	/rag [on|off]       Toggle document answers
//	/export [path]      Save the conversation
//	/quit, /q           Exit chat
//	Ctrl+C              Stop the current reply
//	Ctrl+D              Exit chat
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/export"
	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close() error
}

// errPromptAborted reports Ctrl+C at the prompt.
var errPromptAborted = liner.ErrPromptAborted

// ChatCLI provides line editing and input history for the chat REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory reads previous input. A missing file is ignored.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	f, err := os.Open(c.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.ReadHistory(f)
}

// ReadInput shows prompt and returns the entered line. Non-empty lines
// are added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the history file with 0600 permissions.
func (c *ChatCLI) SaveHistory() error {
	if c.historyFile == "" {
		return nil
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = c.line.WriteHistory(f)
	return err
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() error {
	saveErr := c.SaveHistory()
	if err := c.line.Close(); err != nil {
		return err
	}
	return saveErr
}

// scanReader reads lines from a non-terminal stdin without echoing a prompt.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxStdinBytes)
	return &scanReader{scanner: s}
}

func (r *scanReader) ReadInput(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Close() error {
	return nil
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// chatSession is the state of one REPL run.
type chatSession struct {
	cfg     *config.Config
	q       *conversation.Queue
	ctrl    *conversation.Controller
	printer *streamPrinter
	in      lineReader
	tty     bool
}

// RunChat starts the line-mode chat.
func RunChat(args Args) error {
	cfg, _, err := LoadConfig(args)
	if err != nil {
		return err
	}
	client, err := NewClient(cfg)
	if err != nil {
		return err
	}

	q := conversation.NewQueue(0)
	defer q.Close()

	s := &chatSession{
		cfg:     cfg,
		q:       q,
		ctrl:    newController(cfg, client, q),
		printer: newStreamPrinter(stdout),
		tty:     IsTTY(),
	}
	defer s.ctrl.Close()
	s.ctrl.Subscribe(s.printer.Observe)

	if s.tty {
		s.in = NewChatCLI(historyPath())
	} else {
		s.in = newScanReader(stdin)
	}
	defer s.in.Close()

	return s.run()
}

// historyPath returns ~/.chillgpt/history, or "" when the directory is
// unavailable.
func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func (s *chatSession) run() error {
	if s.tty {
		s.printWelcome()
	}

	for {
		line, err := s.in.ReadInput(s.prompt())
		if errors.Is(err, errPromptAborted) {
			fmt.Fprintln(stdout, DimStyle.Render("(Ctrl+D or /quit to leave)"))
			continue
		}
		if errors.Is(err, io.EOF) {
			if s.tty {
				fmt.Fprintln(stdout)
			}
			return nil
		}
		if err != nil {
			return NewCommandError("chat", "read", "input", err)
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			if quit := s.command(line); quit {
				return nil
			}
			continue
		}

		s.send(line)
	}
}

func (s *chatSession) prompt() string {
	if !s.tty {
		return ""
	}
	return "you> "
}

func (s *chatSession) printWelcome() {
	preset, _ := config.ParsePreset(s.cfg.Chat.Preset)
	fmt.Fprintln(stdout, TitleStyle.Render("❄ ChillGPT")+" "+DimStyle.Render(s.cfg.API.Model+" · "+preset.Label()))
	if greeting, ok := s.ctrl.State().Log.Last(); ok {
		fmt.Fprintln(stdout, PromptStyle.Render("chill>")+" "+greeting.Content)
	}
	fmt.Fprintln(stdout, DimStyle.Render("/help for commands · Ctrl+C stops a reply · Ctrl+D leaves"))
}

// send runs one turn. Ctrl+C while the reply streams stops it and keeps
// the partial text.
func (s *chatSession) send(text string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if s.tty {
		fmt.Fprint(stdout, PromptStyle.Render("chill>")+" ")
	}
	_, err := runTurn(ctx, s.ctrl, s.q, text)
	s.printer.Finish()
	if err == nil {
		return
	}

	var turnErr *conversation.TurnError
	if errors.As(err, &turnErr) && turnErr.Kind == conversation.KindCanceled {
		fmt.Fprintln(stdout, DimStyle.Render("■ "+turnErr.Message))
		return
	}
	if s.tty {
		fmt.Fprintln(stdout)
	}
	fmt.Fprintln(stderr, ErrorStyle.Render(userMessage(err)))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs a slash command and reports whether the REPL should exit.
func (s *chatSession) command(line string) bool {
	parts := strings.Fields(line)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	switch name {
	case "quit", "q", "exit":
		return true

	case "help", "h", "?":
		fmt.Fprintln(stdout, `Commands:
  /clear            start over
  /model [id]       show or switch the model
  /preset [name]    show or switch the assistant personality
  /rag [on|off]     answer from uploaded documents
  /export [path]    save the chat (.md, .json, .yaml, .html)
  /quit             leave`)

	case "clear", "c":
		s.ctrl.Clear()
		fmt.Fprintln(stdout, DimStyle.Render("Chat cleared."))

	case "model", "m":
		if len(args) == 0 {
			fmt.Fprintln(stdout, "Model: "+s.cfg.API.Model)
			break
		}
		id := args[0]
		if info, ok := model.GetModelInfo(id); ok {
			id = info.ID
		}
		s.cfg.API.Model = id
		s.ctrl.SetSettings(settingsFor(s.cfg))
		fmt.Fprintln(stdout, DimStyle.Render("Model: "+id))

	case "preset":
		if len(args) == 0 {
			fmt.Fprintln(stdout, "Presets: "+strings.Join(config.PresetNames(), ", "))
			break
		}
		p, ok := config.ParsePreset(args[0])
		if !ok {
			fmt.Fprintln(stderr, ErrorStyle.Render(fmt.Sprintf("Unknown preset %q.", args[0])))
			break
		}
		s.cfg.Chat.Preset = string(p)
		s.cfg.Chat.SystemPrompt = ""
		s.ctrl.SetSettings(settingsFor(s.cfg))
		fmt.Fprintln(stdout, DimStyle.Render("Preset: "+p.Label()))

	case "rag":
		on := !s.cfg.API.UseRAG
		if len(args) > 0 {
			v, err := ParseBoolString(args[0])
			if err != nil {
				fmt.Fprintln(stderr, ErrorStyle.Render("Usage: /rag on|off"))
				break
			}
			on = v
		}
		s.cfg.API.UseRAG = on
		s.ctrl.SetSettings(settingsFor(s.cfg))
		fmt.Fprintln(stdout, DimStyle.Render(fmt.Sprintf("Document answers: %t", on)))

	case "export", "e":
		s.export(strings.Join(args, " "))

	default:
		fmt.Fprintln(stderr, ErrorStyle.Render(fmt.Sprintf("Unknown command %q. Type /help for the list.", parts[0])))
	}
	return false
}

func (s *chatSession) export(path string) {
	preset, _ := config.ParsePreset(s.cfg.Chat.Preset)
	t := export.NewTranscript(s.ctrl.State().Log, export.Meta{
		Model:  s.cfg.API.Model,
		Preset: string(preset),
	})
	written, err := export.WriteFile(t, path, export.DefaultOptions())
	if err != nil {
		fmt.Fprintln(stderr, ErrorStyle.Render("Export failed: "+err.Error()))
		return
	}
	fmt.Fprintln(stdout, DimStyle.Render(fmt.Sprintf("Saved %s to %s", util.Plural(len(t.Messages), "message"), written)))
}
