// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
	"github.com/jeranaias/chillgpt-tui/internal/util"
)

// =============================================================================
// MESSAGE LIST COMPONENT
// =============================================================================

// MessageList renders a conversation log as a column of bubbles.
type MessageList struct {
	theme          *styles.Theme
	markdown       *MarkdownRenderer
	width          int
	showTimestamps bool
	streaming      bool

	// now is the reference time for relative timestamps
	now func() time.Time
}

// NewMessageList creates a list that renders replies through md.
func NewMessageList(theme *styles.Theme, md *MarkdownRenderer) *MessageList {
	return &MessageList{
		theme:          theme,
		markdown:       md,
		width:          80,
		showTimestamps: true,
		now:            time.Now,
	}
}

// SetWidth sets the available width.
func (ml *MessageList) SetWidth(width int) {
	ml.width = width
	ml.markdown.SetWidth(ml.theme.BubbleWidth() - 4)
}

// SetShowTimestamps toggles the relative time in bubble headers.
func (ml *MessageList) SetShowTimestamps(show bool) {
	ml.showTimestamps = show
}

// SetStreaming marks the last assistant message as still growing.
func (ml *MessageList) SetStreaming(streaming bool) {
	ml.streaming = streaming
}

// Render draws every message. The empty assistant placeholder of a pending
// turn is skipped; the typing indicator stands in for it.
func (ml *MessageList) Render(log model.Log) string {
	now := ml.now()
	parts := make([]string, 0, len(log))
	for i, msg := range log {
		if msg.IsAssistant() && msg.IsEmpty() {
			continue
		}
		streaming := ml.streaming && i == len(log)-1 && msg.IsAssistant()
		parts = append(parts, ml.renderMessage(msg, now, streaming))
	}
	return strings.Join(parts, "\n\n")
}

func (ml *MessageList) renderMessage(msg model.Message, now time.Time, streaming bool) string {
	if msg.Role == model.RoleUser {
		return ml.renderUser(msg, now)
	}
	return ml.renderAssistant(msg, now, streaming)
}

// renderUser right-aligns a plain-text bubble.
func (ml *MessageList) renderUser(msg model.Message, now time.Time) string {
	maxWidth := ml.theme.BubbleWidth() - 4
	if maxWidth < 10 {
		maxWidth = 10
	}
	content := wordwrap.String(msg.Content, maxWidth)
	bubble := ml.theme.UserBubble.Render(content)
	header := ml.header(msg, now)

	block := lipgloss.JoinVertical(lipgloss.Right, header, bubble)
	return lipgloss.PlaceHorizontal(ml.width, lipgloss.Right, block)
}

// renderAssistant renders the reply through the markdown renderer.
func (ml *MessageList) renderAssistant(msg model.Message, now time.Time, streaming bool) string {
	content := ml.markdown.RenderCached(msg.ID, msg.Content)
	if streaming {
		content += ml.theme.Spinner.Render("▍")
	}
	bubble := ml.theme.AssistantBubble.
		MaxWidth(ml.theme.BubbleWidth()).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, ml.header(msg, now), bubble)
}

// header is "You · 2m ago".
func (ml *MessageList) header(msg model.Message, now time.Time) string {
	name := msg.Role.DisplayName()
	if msg.IsAssistant() {
		name = "ChillGPT"
	}
	label := ml.theme.RoleLabel.Render(name)
	if !ml.showTimestamps || msg.CreatedAt.IsZero() {
		return label
	}
	return label + ml.theme.Timestamp.Render(" · "+util.RelativeTime(msg.CreatedAt, now))
}
