// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the UI and the CLI.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth, PadRight, StringWidth: Display-width aware (go-runewidth)
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - FirstLine: Single-line previews of multi-line text
//
// Formatting:
//   - RelativeTime: "just now", "3m ago", "yesterday"
//   - Plural, FormatBytes
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	label := util.TruncateWidth(title, 40)
//	stamp := util.RelativeTime(msg.Timestamp, time.Now())
//	err := util.AtomicWriteFile(path, data, 0600)
package util
