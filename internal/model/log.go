// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"slices"
	"strings"
	"time"
)

// =============================================================================
// LOG TYPE
// =============================================================================

// Log is the ordered message history of a conversation.
// Ordering is insertion order and duplicate content is allowed.
// Methods never modify the receiver; each edit returns a new Log.
type Log []Message

// Greeting returns a log holding only the assistant greeting.
func Greeting(text string, at time.Time) Log {
	return Log{NewAssistantMessage(text, at)}
}

// Len returns the number of messages.
func (l Log) Len() int {
	return len(l)
}

// Last returns the most recently appended message.
func (l Log) Last() (Message, bool) {
	if len(l) == 0 {
		return Message{}, false
	}
	return l[len(l)-1], true
}

// Append returns a new log with msgs added at the end.
func (l Log) Append(msgs ...Message) Log {
	out := make(Log, 0, len(l)+len(msgs))
	out = append(out, l...)
	return append(out, msgs...)
}

// WithLastContent returns a new log whose last message carries content.
// The message keeps its ID, role and creation time.
func (l Log) WithLastContent(content string) Log {
	if len(l) == 0 {
		return l
	}
	out := slices.Clone(l)
	out[len(out)-1].Content = content
	return out
}

// DropTrailingEmptyAssistant returns a new log without the last message
// if it is an assistant message with no content. Otherwise it returns l.
func (l Log) DropTrailingEmptyAssistant() Log {
	last, ok := l.Last()
	if !ok || !last.IsAssistant() || !last.IsEmpty() {
		return l
	}
	return slices.Clone(l[:len(l)-1])
}

// LastAssistant returns the most recent assistant message with content.
func (l Log) LastAssistant() (Message, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].IsAssistant() && !l[i].IsEmpty() {
			return l[i], true
		}
	}
	return Message{}, false
}

// EstimatedTokens returns the rough token count of every message in the log.
func (l Log) EstimatedTokens() int {
	total := 0
	for _, m := range l {
		total += m.EstimatedTokens()
	}
	return total
}

// =============================================================================
// WIRE HISTORY
// =============================================================================

// ChatMessage is the role/content pair sent to a chat backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToChatMessages converts the log into request history.
// A non-blank system prompt is placed once at the head. Empty assistant
// messages are left out since they are placeholders still waiting for content.
func (l Log) ToChatMessages(systemPrompt string) []ChatMessage {
	out := make([]ChatMessage, 0, len(l)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		out = append(out, ChatMessage{Role: RoleSystem.String(), Content: systemPrompt})
	}
	for _, m := range l {
		if m.Role == RoleSystem {
			continue
		}
		if m.IsAssistant() && m.IsEmpty() {
			continue
		}
		out = append(out, ChatMessage{Role: m.Role.String(), Content: m.Content})
	}
	return out
}
