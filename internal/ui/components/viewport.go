// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// CHAT VIEWPORT COMPONENT
// =============================================================================

// ChatViewport is the scrollable transcript. It never decides on its own
// whether to follow new output: the caller passes the pinned flag from the
// conversation state to SetContent, and reads NearBottom after every scroll
// to report the new position back.
type ChatViewport struct {
	viewport  viewport.Model
	theme     *styles.Theme
	threshold int
	width     int
	height    int
}

// NewChatViewport creates a viewport. threshold is how many lines from the
// end still count as the bottom.
func NewChatViewport(theme *styles.Theme, threshold int) *ChatViewport {
	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()
	vp.MouseWheelEnabled = false

	return &ChatViewport{
		viewport:  vp,
		theme:     theme,
		threshold: threshold,
		width:     80,
		height:    20,
	}
}

// SetSize updates the viewport dimensions.
func (cv *ChatViewport) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	cv.width = width
	cv.height = height
	cv.viewport.Width = width
	cv.viewport.Height = height
}

// SetThreshold changes the near-bottom tolerance.
func (cv *ChatViewport) SetThreshold(lines int) {
	cv.threshold = lines
}

// SetContent replaces the transcript. When follow is set the view jumps to
// the end; otherwise the offset is kept so a reader scrolled up stays put.
func (cv *ChatViewport) SetContent(content string, follow bool) {
	cv.viewport.SetContent(content)
	if follow {
		cv.viewport.GotoBottom()
	}
}

// wheelLines is how far one mouse wheel step scrolls.
const wheelLines = 3

// Update handles mouse wheel events. It reports whether the view moved.
func (cv *ChatViewport) Update(msg tea.Msg) bool {
	mouse, ok := msg.(tea.MouseMsg)
	if !ok {
		return false
	}
	switch mouse.Type {
	case tea.MouseWheelUp:
		cv.viewport.LineUp(wheelLines)
		return true
	case tea.MouseWheelDown:
		cv.viewport.LineDown(wheelLines)
		return true
	}
	return false
}

// =============================================================================
// SCROLLING
// =============================================================================

// LineUp scrolls up by n lines.
func (cv *ChatViewport) LineUp(n int) {
	cv.viewport.LineUp(n)
}

// LineDown scrolls down by n lines.
func (cv *ChatViewport) LineDown(n int) {
	cv.viewport.LineDown(n)
}

// PageUp scrolls up by one page.
func (cv *ChatViewport) PageUp() {
	cv.viewport.ViewUp()
}

// PageDown scrolls down by one page.
func (cv *ChatViewport) PageDown() {
	cv.viewport.ViewDown()
}

// GotoTop jumps to the first line.
func (cv *ChatViewport) GotoTop() {
	cv.viewport.GotoTop()
}

// GotoBottom jumps to the last line.
func (cv *ChatViewport) GotoBottom() {
	cv.viewport.GotoBottom()
}

// NearBottom reports whether the view is within the threshold of the end.
func (cv *ChatViewport) NearBottom() bool {
	return conversation.NearBottom(
		cv.viewport.YOffset,
		cv.viewport.TotalLineCount(),
		cv.viewport.Height,
		cv.threshold,
	)
}

// YOffset is the index of the first visible line.
func (cv *ChatViewport) YOffset() int {
	return cv.viewport.YOffset
}

// ScrollPercent returns the scroll position as a fraction.
func (cv *ChatViewport) ScrollPercent() float64 {
	return cv.viewport.ScrollPercent()
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the visible lines. With unread replies the last line is
// replaced by a right-aligned badge.
func (cv *ChatViewport) View(unread int) string {
	view := cv.viewport.View()
	badge := cv.Badge(unread)
	if badge == "" {
		return view
	}
	lines := strings.Split(view, "\n")
	lines[len(lines)-1] = lipgloss.PlaceHorizontal(cv.width, lipgloss.Right, badge)
	return strings.Join(lines, "\n")
}

// Badge renders the unread indicator, or nothing when unread is zero.
func (cv *ChatViewport) Badge(unread int) string {
	if unread <= 0 {
		return ""
	}
	label := "new message"
	if unread > 1 {
		label = "new messages"
	}
	return cv.theme.UnreadBadge.Render(fmt.Sprintf("↓ %d %s · End", unread, label))
}
