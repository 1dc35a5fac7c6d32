// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot questions: "chillgpt ask".
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/model"
)

// maxStdinBytes bounds a question piped on stdin.
const maxStdinBytes = 1 << 20

// AskResult is the --json payload of ask.
type AskResult struct {
	Question string `json:"question"`
	Reply    string `json:"reply"`
	Model    string `json:"model"`
	Preset   string `json:"preset"`
	Tokens   int    `json:"estimated_tokens"`
}

// RunAsk sends one question and prints the reply. Piped output receives
// the reply as it streams; a terminal gets it rendered as markdown once
// complete. Ctrl+C stops the reply and keeps what arrived.
func RunAsk(args Args) error {
	query, err := askQuery(args)
	if err != nil {
		return err
	}

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
	ctrl := newController(cfg, client, q)
	defer ctrl.Close()

	render := !args.JSON && cfg.UI.Markdown && IsStdoutTTY()
	streaming := !args.JSON && !render

	var printer *streamPrinter
	if streaming {
		printer = newStreamPrinter(stdout)
		ctrl.Subscribe(printer.Observe)
	}
	if render {
		fmt.Fprintln(stderr, DimStyle.Render("Thinking…"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reply, err := runTurn(ctx, ctrl, q, query)
	if printer != nil {
		printer.Finish()
	}
	if err != nil {
		if render && reply != "" {
			fmt.Fprintln(stdout, renderMarkdown(reply, cfg))
		}
		return err
	}

	switch {
	case args.JSON:
		preset, _ := config.ParsePreset(cfg.Chat.Preset)
		return NewJSONResponse("ask", AskResult{
			Question: query,
			Reply:    reply,
			Model:    cfg.API.Model,
			Preset:   string(preset),
			Tokens:   model.EstimateTokens(reply),
		}).Print()
	case render:
		fmt.Fprintln(stdout, renderMarkdown(reply, cfg))
	}
	return nil
}

// askQuery joins the question words, an attached file and piped stdin.
func askQuery(args Args) (string, error) {
	query := strings.TrimSpace(args.Query)

	if args.File != "" {
		data, err := os.ReadFile(args.File)
		if err != nil {
			return "", NewCommandError("ask", "read", args.File, err)
		}
		attached := fmt.Sprintf("File: %s\n```\n%s\n```", filepath.Base(args.File), strings.TrimRight(string(data), "\n"))
		if query == "" {
			query = attached
		} else {
			query += "\n\n" + attached
		}
	}

	if query == "" && !IsTTY() {
		data, err := io.ReadAll(io.LimitReader(stdin, maxStdinBytes))
		if err != nil {
			return "", NewCommandError("ask", "read", "stdin", err)
		}
		query = strings.TrimSpace(string(data))
	}

	if query == "" {
		return "", NewValidationErrorWithExample("question", "", "is empty", `chillgpt ask "why is the sky blue?"`)
	}
	return query, nil
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// runTurn submits text and drains events until the reply is complete.
// Cancelling ctx stops the reply. The returned text is the reply as far as
// it got, which may be partial alongside an error.
func runTurn(ctx context.Context, ctrl *conversation.Controller, q *conversation.Queue, text string) (string, error) {
	if err := ctrl.Submit(text); err != nil {
		return "", err
	}
	runErr := q.RunUntilIdle(ctx, ctrl)

	st := ctrl.State()
	reply := ""
	if last, ok := st.Log.Last(); ok && last.IsAssistant() {
		reply = last.Content
	}
	if st.Err != nil {
		return reply, st.Err
	}
	return reply, runErr
}

// streamPrinter writes each reply's new text as it arrives.
type streamPrinter struct {
	w       io.Writer
	replyID string
	printed int
	wrote   bool
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w}
}

// Observe is a conversation.Subscriber. The placeholder appended by a
// submit marks the reply to follow; rolled-back or older messages are
// never printed.
func (p *streamPrinter) Observe(st conversation.State, _ conversation.Effects) {
	last, ok := st.Log.Last()
	if !ok || !last.IsAssistant() {
		return
	}
	if st.Phase == conversation.PhaseSubmitting && last.ID != p.replyID {
		p.replyID = last.ID
		p.printed = 0
		return
	}
	if last.ID != p.replyID || len(last.Content) <= p.printed {
		return
	}
	fmt.Fprint(p.w, last.Content[p.printed:])
	p.printed = len(last.Content)
	p.wrote = true
}

// Finish ends the reply line.
func (p *streamPrinter) Finish() {
	if p.wrote {
		fmt.Fprintln(p.w)
	}
	p.wrote = false
}

// renderMarkdown formats text for the terminal, falling back to the raw
// text if glamour fails.
func renderMarkdown(text string, cfg *config.Config) string {
	theme, _ := config.ParseTheme(cfg.UI.Theme)
	style := "dark"
	if theme.Resolve(termenv.HasDarkBackground()) == config.ThemeLightSnow {
		style = "light"
	}
	if !ColorsEnabled() {
		style = "notty"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
