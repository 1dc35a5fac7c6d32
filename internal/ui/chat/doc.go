// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the full-screen chat interface.
//
// The Model is a Bubble Tea model that owns no conversation state of its
// own: it forwards user input to a conversation.Controller and redraws from
// the controller's State after every event. Stream events produced on
// background goroutines reach the model as EventMsg values through
// ProgramPoster, so the controller is only ever touched from Update.
//
// # Key Types
//
//   - Model: the Bubble Tea model
//   - Options: construction parameters
//   - KeyMap: keyboard bindings
//   - EventMsg: a conversation event delivered through the program
//
// # Usage
//
//	m := chat.New(chat.Options{Config: cfg, Client: client})
//	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
//	m.Attach(p)
//	go chat.WatchConfig(ctx, p, path)
//	_, err := p.Run()
//
// # Slash Commands
//
// Input starting with "/" is a command: /clear, /preset, /theme, /model,
// /rag, /upload, /docs, /export, /copy, /key, /help and /quit.
package chat
