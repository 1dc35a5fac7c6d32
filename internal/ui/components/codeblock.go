// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/chillgpt-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock represents a fenced code block from a reply.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render draws the block with a language badge and a left rule.
func (c CodeBlock) Render(theme *styles.Theme) string {
	code := strings.TrimRight(c.Code, "\n")
	if theme.HasColor() {
		code = strings.TrimRight(HighlightCode(code, c.Language, theme.Palette.CodeStyle), "\n")
	}

	var header string
	if c.Language != "" {
		header = theme.CodeLangBadge.Render(c.Language) + "\n"
	}

	width := c.MaxWidth - 2
	if width < 20 {
		width = 20
	}
	return theme.CodeBlock.MaxWidth(width).Render(header + code)
}

// ParseCodeBlocks replaces fenced blocks in text with rendered ones. An
// unterminated fence, as seen mid-stream, still renders as code.
func ParseCodeBlocks(text string, maxWidth int, theme *styles.Theme) string {
	var result []string
	var code []string
	var language string
	inCode := false

	flush := func() {
		cb := NewCodeBlock(language, strings.Join(code, "\n"))
		cb.MaxWidth = maxWidth
		result = append(result, cb.Render(theme))
		code, language = nil, ""
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "```") && inCode:
			flush()
			inCode = false
		case strings.HasPrefix(trimmed, "```"):
			language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			inCode = true
		case inCode:
			code = append(code, line)
		default:
			result = append(result, line)
		}
	}
	if inCode {
		flush()
	}
	return strings.Join(result, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// HighlightCode colours code for a 256-colour terminal. The language is
// guessed when unknown, and the input comes back unchanged on failure.
func HighlightCode(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
