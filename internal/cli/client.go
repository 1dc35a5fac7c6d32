// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// client.go - Config loading and backend client construction shared by
// every command that talks to a backend.
package cli

import (
	"log"
	"os"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// LoadConfig reads the config named by --config, or the default file, and
// applies the global flags on top. It returns the config and the path a
// save should go to. A missing file yields the defaults.
func LoadConfig(args Args) (*config.Config, string, error) {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", &ConfigError{Err: err}
		}
		path = p
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, path, &ConfigError{Path: path, Err: err}
	}
	if err := applyFlags(cfg, args); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// applyFlags overrides cfg with command-line values. Flags win over the
// file and the environment.
func applyFlags(cfg *config.Config, args Args) error {
	if args.URL != "" {
		cfg.API.BaseURL = args.URL
	}
	if args.Dialect != "" {
		d, err := api.ParseDialect(args.Dialect)
		if err != nil {
			return NewValidationErrorWithExample("--dialect", args.Dialect, "is not chillgpt, openai or pypal", "chillgpt --dialect openai")
		}
		cfg.API.Dialect = string(d)
	}
	if args.Model != "" {
		cfg.API.Model = args.Model
	}
	if args.Preset != "" {
		p, ok := config.ParsePreset(args.Preset)
		if !ok {
			return NewValidationErrorWithExample("--preset", args.Preset, "is not a known preset", "chillgpt --preset coding-assistant")
		}
		cfg.Chat.Preset = string(p)
	}
	if args.RAG {
		cfg.API.UseRAG = true
	}
	if args.Plain {
		cfg.UI.Markdown = false
	}
	return nil
}

// NewClient builds the backend client described by cfg. Setting
// CHILLGPT_DEBUG logs every request to stderr.
func NewClient(cfg *config.Config) (*api.Client, error) {
	dialect, err := api.ParseDialect(cfg.API.Dialect)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey).
		WithDialect(dialect).
		WithRateLimit(cfg.API.RequestsPerSecond, 1)
	if os.Getenv("CHILLGPT_DEBUG") != "" {
		client.WithLogger(log.New(stderr, "chillgpt: ", log.LstdFlags))
	}
	return client, nil
}

// newController creates a controller for line-mode commands. Events are
// delivered through q and drained with Queue.RunUntilIdle.
func newController(cfg *config.Config, client *api.Client, q *conversation.Queue) *conversation.Controller {
	opts := conversation.Options{Greeting: cfg.Chat.Greeting}
	if mode, ok := stream.ParseMode(cfg.API.StreamFormat); ok {
		opts.StreamMode = &mode
	}

	ctrl := conversation.NewController(client, q, opts)
	ctrl.SetSettings(settingsFor(cfg))
	return ctrl
}

// settingsFor returns the request parameters cfg describes.
func settingsFor(cfg *config.Config) conversation.Settings {
	return conversation.Settings{
		Model:        cfg.API.Model,
		SystemPrompt: cfg.SystemPrompt(),
		APIKey:       cfg.API.APIKey,
		UseRAG:       cfg.API.UseRAG,
	}
}
