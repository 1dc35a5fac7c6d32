// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chillgpt.
//
// Configuration is TOML with defaults, environment variable overrides,
// validation, and an optional file watcher for live reload.
//
// # Key Types
//
//   - Config: Main configuration structure ([api], [chat], [ui], [server])
//   - Preset: Built-in system prompts (coding-assistant, teacher, ...)
//   - Theme: Colour schemes (dark-ice, light-snow, neon-ice, auto)
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHILLGPT_*, then OPENAI_API_KEY for the key)
//   - A .env file in the working directory
//   - ~/.chillgpt/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Watch for edits:
//
//	go config.Watch(ctx, path, func(cfg *config.Config, err error) {
//	    // apply cfg
//	})
package config
