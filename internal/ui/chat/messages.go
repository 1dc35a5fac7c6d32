// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
)

// =============================================================================
// CONVERSATION EVENTS
// =============================================================================

// EventMsg carries a conversation event into Update.
type EventMsg struct {
	Event conversation.Event
}

// ProgramPoster delivers controller events to p. Send blocks until the
// program reads the message, so events keep their order.
func ProgramPoster(p *tea.Program) conversation.Poster {
	return conversation.PosterFunc(func(e conversation.Event) {
		p.Send(EventMsg{Event: e})
	})
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// ConfigReloadedMsg is sent when the config file changes on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// WatchConfig forwards config file changes at path to p until ctx is done.
func WatchConfig(ctx context.Context, p *tea.Program, path string) error {
	return config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if cfg != nil {
			cfg.ApplyEnvOverrides()
		}
		p.Send(ConfigReloadedMsg{Config: cfg, Err: err})
	})
}

// =============================================================================
// BACKGROUND RESULTS
// =============================================================================

// documentsMsg reports the backend's document set.
type documentsMsg struct {
	status *api.DocumentStatus
	err    error
	quiet  bool // startup refresh; errors are not shown
}

// docListMsg is the result of /docs.
type docListMsg struct {
	list *api.DocumentList
	err  error
}

// docActionMsg is the result of an upload, delete or clear.
type docActionMsg struct {
	text string
	err  error
}

// keySavedMsg reports whether the API key reached the config file.
type keySavedMsg struct {
	path string
	err  error
}

// initializedMsg is the result of handing the key to a PyPal backend.
type initializedMsg struct {
	err error
}
