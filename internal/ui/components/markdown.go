// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer turns reply text into terminal output. Glamour handles
// Markdown; the plain path wraps text and highlights fenced code itself.
// Rendered output is cached per message so a redraw only re-renders the
// message that changed.
type MarkdownRenderer struct {
	theme   *styles.Theme
	width   int
	enabled bool

	glamour *glamour.TermRenderer
	style   string // glamour style the renderer was built for
	built   int    // width the renderer was built for

	cache map[string]renderedEntry
}

type renderedEntry struct {
	content string
	width   int
	style   string
	out     string
}

// NewMarkdownRenderer creates a renderer. When enabled is false replies are
// shown as wrapped text with highlighted code blocks.
func NewMarkdownRenderer(theme *styles.Theme, width int, enabled bool) *MarkdownRenderer {
	return &MarkdownRenderer{
		theme:   theme,
		width:   width,
		enabled: enabled,
		cache:   make(map[string]renderedEntry),
	}
}

// SetWidth sets the wrap width.
func (r *MarkdownRenderer) SetWidth(width int) {
	r.width = width
}

// SetEnabled switches between glamour and the plain path.
func (r *MarkdownRenderer) SetEnabled(enabled bool) {
	if r.enabled != enabled {
		r.enabled = enabled
		r.Reset()
	}
}

// Enabled reports whether glamour is in use.
func (r *MarkdownRenderer) Enabled() bool {
	return r.enabled
}

// Reset drops every cached rendering.
func (r *MarkdownRenderer) Reset() {
	r.cache = make(map[string]renderedEntry)
}

// RenderCached renders text for the message with the given ID, reusing the
// previous output when nothing relevant changed.
func (r *MarkdownRenderer) RenderCached(id, text string) string {
	style := r.theme.Palette.GlamourStyle
	if e, ok := r.cache[id]; ok && e.content == text && e.width == r.width && e.style == style {
		return e.out
	}
	out := r.Render(text)
	if id != "" {
		r.cache[id] = renderedEntry{content: text, width: r.width, style: style, out: out}
	}
	return out
}

// Render renders text without caching.
func (r *MarkdownRenderer) Render(text string) string {
	width := r.width
	if width < 20 {
		width = 20
	}
	if r.enabled && r.theme.HasColor() {
		if tr := r.renderer(width); tr != nil {
			if out, err := tr.Render(text); err == nil {
				return strings.Trim(out, "\n")
			}
		}
	}
	return ParseCodeBlocks(wordwrap.String(text, width), width, r.theme)
}

// renderer builds the glamour renderer lazily and rebuilds it when the
// width or theme changes.
func (r *MarkdownRenderer) renderer(width int) *glamour.TermRenderer {
	style := r.theme.Palette.GlamourStyle
	if r.glamour != nil && r.style == style && r.built == width {
		return r.glamour
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil
	}
	r.glamour, r.style, r.built = tr, style, width
	return tr
}
