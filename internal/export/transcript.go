// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Meta describes the session a transcript came from.
type Meta struct {
	Title  string
	Model  string
	Preset string
}

// Entry is one exported message.
type Entry struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Transcript is an exportable copy of a conversation.
type Transcript struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	Preset     string    `json:"preset,omitempty" yaml:"preset,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Messages   []Entry   `json:"messages" yaml:"messages"`
}

// titleWidth bounds derived titles.
const titleWidth = 60

// now is replaced in tests.
var now = time.Now

// NewTranscript copies log into a Transcript. Empty assistant placeholders
// are left out. Without a title, the first user message is used.
func NewTranscript(log model.Log, meta Meta) *Transcript {
	t := &Transcript{
		ID:         uuid.NewString(),
		Title:      meta.Title,
		Model:      meta.Model,
		Preset:     meta.Preset,
		ExportedAt: now(),
		Messages:   make([]Entry, 0, len(log)),
	}

	for _, m := range log {
		if m.IsAssistant() && m.IsEmpty() {
			continue
		}
		if t.StartedAt.IsZero() || m.CreatedAt.Before(t.StartedAt) {
			t.StartedAt = m.CreatedAt
		}
		if t.Title == "" && m.Role == model.RoleUser {
			t.Title = util.Preview(m.Content, titleWidth)
		}
		t.Messages = append(t.Messages, Entry{
			Role:      m.Role.String(),
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	if t.Title == "" {
		t.Title = "ChillGPT chat"
	}
	return t
}
