// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the conversation reducer,
// the API client and the terminal views.
//
// # Key Types
//
//   - Message: a single message with role, content and creation time
//   - Log: ordered, immutable-by-convention sequence of messages
//   - Role: message role enumeration (user, assistant, system)
//   - ModelInfo: information about a chat model in the catalog
//
// # Usage
//
// Logs are values. Every edit returns a new Log and leaves the receiver
// untouched, which keeps the conversation reducer pure:
//
//	log := model.Greeting("Hey, what's up?", time.Now())
//	log = log.Append(model.NewUserMessage("Hello", time.Now()))
//	log = log.Append(model.NewAssistantPlaceholder(time.Now()))
//	log = log.WithLastContent("Hi there")
package model
