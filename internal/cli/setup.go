// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run wizard: "chillgpt setup".
//
// Asks for the backend dialect, its URL and the API key, checks the backend
// answers, and saves the answers to the config file. Values that came from
// the environment are never written.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/config"
)

// healthTimeout bounds the backend check at the end of setup.
const healthTimeout = 5 * time.Second

// RunSetup runs the interactive setup wizard.
func RunSetup(args Args) error {
	if !CanPrompt() {
		return NewValidationErrorWithExample("setup", "", "needs an interactive terminal", "chillgpt config set api.api_key sk-...")
	}

	_, path, err := LoadConfig(args)
	if err != nil {
		return err
	}
	file, err := loadFileConfig(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, TitleStyle.Render("❄ ChillGPT setup"))
	fmt.Fprintln(stdout, DimStyle.Render("Press Enter to keep the value in brackets."))
	fmt.Fprintln(stdout)

	w := &wizard{in: bufio.NewReader(stdin), secret: readPassword}
	if err := w.run(file); err != nil {
		return err
	}

	if err := config.SaveTOML(file, path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	fmt.Fprintln(stdout, SuccessStyle.Render("✓")+" Saved "+path)

	checkBackend(file)
	fmt.Fprintln(stdout, DimStyle.Render("Run 'chillgpt' to start chatting."))
	return nil
}

// loadFileConfig reads only the config file over the defaults, skipping
// .env and environment overrides, so a save writes back what the user
// typed and nothing else.
func loadFileConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

// =============================================================================
// WIZARD
// =============================================================================

// wizard asks the setup questions. secret reads a line without echo.
type wizard struct {
	in     *bufio.Reader
	secret func() (string, error)
}

func (w *wizard) run(cfg *config.Config) error {
	for {
		answer, err := w.ask("Backend (chillgpt, openai, pypal)", cfg.API.Dialect)
		if err != nil {
			return err
		}
		d, err := api.ParseDialect(answer)
		if err == nil {
			cfg.API.Dialect = string(d)
			break
		}
		fmt.Fprintln(stdout, WarningStyle.Render("  Pick chillgpt, openai or pypal."))
	}

	defaultURL := cfg.API.BaseURL
	if defaultURL == "" {
		defaultURL = api.DefaultBaseURL
		if cfg.API.Dialect == string(api.DialectOpenAI) {
			defaultURL = api.DefaultOpenAIURL
		}
	}
	url, err := w.ask("Backend URL", defaultURL)
	if err != nil {
		return err
	}
	cfg.API.BaseURL = url

	current := "none"
	if cfg.API.APIKey != "" {
		current = api.MaskKey(cfg.API.APIKey)
	}
	fmt.Fprintf(stdout, "API key [%s]: ", current)
	key, err := w.secret()
	if err != nil {
		return NewCommandError("setup", "read", "API key", err)
	}
	if key = strings.TrimSpace(key); key != "" {
		cfg.API.APIKey = key
	}
	if cfg.API.APIKey == "" {
		fmt.Fprintln(stdout, WarningStyle.Render("  No key saved. The chat screen will ask for one."))
	}

	if cfg.API.Model, err = w.ask("Model", cfg.API.Model); err != nil {
		return err
	}

	for {
		answer, err := w.ask("Preset ("+strings.Join(config.PresetNames(), ", ")+")", cfg.Chat.Preset)
		if err != nil {
			return err
		}
		if p, ok := config.ParsePreset(answer); ok {
			cfg.Chat.Preset = string(p)
			break
		}
		fmt.Fprintln(stdout, WarningStyle.Render("  Unknown preset."))
	}

	for {
		answer, err := w.ask("Theme ("+strings.Join(config.ThemeNames(), ", ")+")", cfg.UI.Theme)
		if err != nil {
			return err
		}
		if t, ok := config.ParseTheme(answer); ok {
			cfg.UI.Theme = string(t)
			break
		}
		fmt.Fprintln(stdout, WarningStyle.Render("  Unknown theme."))
	}
	return nil
}

// ask prints question with its default and returns the answer or the
// default for an empty line.
func (w *wizard) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(stdout, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(stdout, "%s: ", question)
	}
	line, err := w.in.ReadString('\n')
	if err != nil && line == "" {
		return "", NewCommandError("setup", "read", question, err)
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return def, nil
}

// readPassword reads a line from the terminal without echo.
func readPassword() (string, error) {
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stdout)
	if err != nil {
		return "", err
	}
	return string(key), nil
}

// checkBackend reports whether the configured backend answers. Failure is a
// warning only; the backend may simply not be running yet.
func checkBackend(cfg *config.Config) {
	client, err := NewClient(cfg)
	if err != nil || client.Dialect() == api.DialectOpenAI {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		fmt.Fprintln(stdout, WarningStyle.Render("! Backend not reachable at "+cfg.API.BaseURL+": "+userMessage(err)))
		return
	}
	rag := "off"
	if health.RAGEnabled {
		rag = "on"
	}
	fmt.Fprintln(stdout, SuccessStyle.Render("✓")+fmt.Sprintf(" Backend is %s (documents %s)", health.Status, rag))
}
