// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current chat transcript to a file.
//
// Exports are one-way: nothing here is ever read back into a session.
//
// # Key Types
//
//   - Transcript: A snapshot of the conversation log with metadata
//   - Exporter: Renders a Transcript in one format
//   - Format: Markdown, JSON, YAML or HTML, chosen by file extension
//
// # Usage
//
//	t := export.NewTranscript(state.Log, export.Meta{Model: "gpt-4.1-mini"})
//	path, err := export.WriteFile(t, "chat.md", nil)
package export
