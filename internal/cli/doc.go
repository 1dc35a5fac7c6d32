// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands for
// chillgpt.
//
// The full-screen chat lives in package chat. Everything else a user can do
// from a shell is here: one-shot questions, a line-mode chat for terminals
// that cannot host the TUI, document management, the local development
// backend, and config editing.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global flags plus command-specific values
//   - ArgParser: Subcommand, flag and positional parsing shared by commands
//   - ChatCLI: Line editor with history for the chat REPL
//   - JSONResponse: Machine-readable output envelope for --json
//
// # Usage
//
//	cmd, args, err := cli.Parse()
//	if err != nil {
//	    os.Exit(cli.HandleError(err, false))
//	}
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.RunAsk(args)
//	case cli.CmdChat:
//	    err = cli.RunChat(args)
//	}
//
// # Commands Overview
//
//   - (none), tui: Full-screen chat
//   - ask: Single question, streamed to stdout
//   - chat: Line-mode chat with history
//   - docs: Upload, list and remove documents
//   - serve: Local backend with echo or upstream replies
//   - setup: Store an API key and backend URL
//   - config: Show, get and set configuration values
//
// Commands that print results accept --json.
package cli
