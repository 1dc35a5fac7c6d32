// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"net"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// ERROR BANNER
// =============================================================================

// ErrorBanner shows the error of the last turn above the input. It renders
// nothing when there is no error.
type ErrorBanner struct {
	theme *styles.Theme
	width int
	err   *conversation.TurnError
}

// NewErrorBanner creates an empty banner.
func NewErrorBanner(theme *styles.Theme) *ErrorBanner {
	return &ErrorBanner{theme: theme, width: 80}
}

// SetWidth sets the banner width.
func (b *ErrorBanner) SetWidth(width int) {
	b.width = width
}

// Set shows err; nil hides the banner.
func (b *ErrorBanner) Set(err *conversation.TurnError) {
	b.err = err
}

// Visible reports whether there is an error to show.
func (b *ErrorBanner) Visible() bool {
	return b.err != nil
}

// View renders the banner.
func (b *ErrorBanner) View() string {
	if b.err == nil {
		return ""
	}

	// Stopping a reply is not a failure; a one-line notice is enough.
	if b.err.Kind == conversation.KindCanceled {
		return b.theme.Notice.Render("■ " + b.err.Message)
	}

	inner := b.width - 4
	if inner < 20 {
		inner = 20
	}

	lines := []string{b.theme.RenderError(Title(b.err.Kind))}
	lines = append(lines, lipgloss.NewStyle().Width(inner).Render(b.err.Message))
	for _, s := range Suggestions(b.err) {
		lines = append(lines, b.theme.Muted.Width(inner).Render("• "+s))
	}
	lines = append(lines, b.theme.Muted.Render("Esc to dismiss"))

	return b.theme.ErrorBanner.Width(b.width - 2).Render(strings.Join(lines, "\n"))
}

// Title names an error kind for the banner heading.
func Title(kind conversation.ErrorKind) string {
	switch kind {
	case conversation.KindValidation:
		return "Hold up"
	case conversation.KindTransport:
		return "Connection problem"
	case conversation.KindDecode:
		return "Garbled response"
	case conversation.KindCanceled:
		return "Stopped"
	default:
		return "Something went wrong"
	}
}

// Suggestions lists next steps for errors the user can act on.
func Suggestions(err *conversation.TurnError) []string {
	if err == nil {
		return nil
	}
	var opErr *net.OpError
	switch {
	case errors.Is(err, conversation.ErrMissingCredential):
		return []string{"Paste a key in the prompt above, or run: chillgpt setup"}
	case errors.Is(err, api.ErrAuthFailed):
		return []string{"Check the key with: chillgpt config get api.api_key", "Press Ctrl+K to enter a new key"}
	case errors.Is(err, api.ErrRateLimited):
		return []string{"Wait a few seconds, then send again"}
	case errors.Is(err, api.ErrNotFound):
		return []string{"Check api.base_url and api.dialect in the config"}
	case errors.Is(err, api.ErrServer):
		return []string{"The backend failed; try again or switch /model"}
	case errors.As(err, &opErr):
		return []string{"Is the backend running? Start one with: chillgpt serve"}
	}
	return nil
}
