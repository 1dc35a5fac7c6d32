// chillgpt - A chill terminal client for ChillGPT, PyPal and OpenAI chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chillgpt-tui/internal/cli"
	"github.com/jeranaias/chillgpt-tui/internal/config"
	"github.com/jeranaias/chillgpt-tui/internal/ui/chat"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse()
	if args.NoColor {
		cli.ForceColorsEnabled(false)
	}
	if err != nil {
		os.Exit(cli.HandleError(err, args.JSON))
	}

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(args)
	case cli.CmdAsk:
		err = cli.RunAsk(args)
	case cli.CmdChat:
		err = cli.RunChat(args)
	case cli.CmdDocs:
		err = cli.RunDocs(args)
	case cli.CmdServe:
		err = cli.RunServe(args)
	case cli.CmdSetup:
		err = cli.RunSetup(args)
	case cli.CmdConfig:
		err = cli.RunConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	default:
		cli.PrintUsage()
	}

	if err != nil {
		os.Exit(cli.HandleError(err, args.JSON))
	}
}

// =============================================================================
// TUI
// =============================================================================

// runTUI starts the full-screen chat. The config file is watched for the
// whole session and edits are applied live.
func runTUI(args cli.Args) error {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		return cli.NewValidationErrorWithExample("tui", "", "needs an interactive terminal", `chillgpt ask "hello"`)
	}

	cfg, path, err := cli.LoadConfig(args)
	if err != nil {
		return err
	}
	client, err := cli.NewClient(cfg)
	if err != nil {
		return err
	}

	if os.Getenv("CHILLGPT_DEBUG") != "" {
		f, err := tea.LogToFile(debugLogPath(), "chillgpt")
		if err == nil {
			defer f.Close()
		}
	}

	themeName, _ := config.ParseTheme(cfg.UI.Theme)
	m := chat.New(chat.Options{
		Config:     cfg,
		ConfigPath: path,
		Client:     client,
		Theme:      styles.NewThemeFor(themeName, cli.GetColorProfile(), termenv.HasDarkBackground()),
	})
	defer m.Controller().Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	m.Attach(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := chat.WatchConfig(ctx, p, path); err != nil && ctx.Err() == nil {
			p.Send(chat.ConfigReloadedMsg{Err: fmt.Errorf("config watch stopped: %w", err)})
		}
	}()

	if _, err := p.Run(); err != nil {
		return cli.NewCommandError("tui", "run", "terminal program", err)
	}
	return nil
}

// debugLogPath is where CHILLGPT_DEBUG sends the TUI log.
func debugLogPath() string {
	if dir, err := config.ConfigDir(); err == nil {
		if err := os.MkdirAll(dir, 0700); err == nil {
			return dir + string(os.PathSeparator) + "debug.log"
		}
	}
	return "chillgpt-debug.log"
}
