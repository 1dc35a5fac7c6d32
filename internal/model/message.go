// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole accepts wire role names. "bot" is an alias for assistant.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, true
	case "assistant", "bot":
		return RoleAssistant, true
	case "system", "developer":
		return RoleSystem, true
	default:
		return "", false
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
// Messages are passed by value; content changes go through Log.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string, at time.Time) Message {
	return NewMessage(RoleUser, content, at)
}

// NewAssistantMessage creates a new assistant message with content.
func NewAssistantMessage(content string, at time.Time) Message {
	return NewMessage(RoleAssistant, content, at)
}

// NewAssistantPlaceholder creates the empty assistant message that a
// stream fills in.
func NewAssistantPlaceholder(at time.Time) Message {
	return NewMessage(RoleAssistant, "", at)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return m.Content == ""
}

// IsAssistant returns true for assistant messages.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// EstimatedTokens returns a rough token count for the message content.
func (m Message) EstimatedTokens() int {
	return EstimateTokens(m.Content)
}

// EstimateTokens approximates the token count of s at four characters per token.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
