// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a standalone page with embedded CSS. Code blocks are
// highlighted with chroma using inline styles.
type HTMLExporter struct {
	options *Options
}

// Export implements Exporter.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return nil, ErrEmptyTranscript
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(t.Title))
	sb.WriteString("<meta name=\"generator\" content=\"chillgpt\">\n")
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString("<header class=\"header\">\n")
		fmt.Fprintf(&sb, "<h1>%s</h1>\n<div class=\"metadata\">\n", html.EscapeString(t.Title))
		if t.Model != "" {
			fmt.Fprintf(&sb, "<span><strong>Model:</strong> %s</span>\n", html.EscapeString(t.Model))
		}
		if t.Preset != "" {
			fmt.Fprintf(&sb, "<span><strong>Preset:</strong> %s</span>\n", html.EscapeString(t.Preset))
		}
		fmt.Fprintf(&sb, "<span><strong>Started:</strong> %s</span>\n", formatTimestamp(t.StartedAt))
		fmt.Fprintf(&sb, "<span><strong>Messages:</strong> %d</span>\n", len(t.Messages))
		sb.WriteString("</div>\n</header>\n")
	}

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range t.Messages {
		fmt.Fprintf(&sb, "<div class=\"message %s-message\">\n<div class=\"message-header\">\n", html.EscapeString(msg.Role))
		fmt.Fprintf(&sb, "<span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg.Role)))
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "<span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
		}
		sb.WriteString("</div>\n<div class=\"message-content\">\n")
		sb.WriteString(e.formatContent(msg.Content, theme))
		sb.WriteString("</div>\n</div>\n")
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\">Exported from <strong>ChillGPT</strong> on %s</footer>\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension implements Exporter.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType implements Exporter.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

var inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")

// formatContent turns message Markdown into paragraphs and highlighted code.
func (e *HTMLExporter) formatContent(content, theme string) string {
	var out strings.Builder
	var para []string
	var code []string
	lang := ""
	inCode := false

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		text := html.EscapeString(strings.Join(para, "\n"))
		text = inlineCodeRegex.ReplaceAllString(text, "<code class=\"inline-code\">$1</code>")
		out.WriteString("<p>" + strings.ReplaceAll(text, "\n", "<br>\n") + "</p>\n")
		para = para[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				out.WriteString(highlightHTML(strings.Join(code, "\n"), lang, theme))
				code, lang, inCode = nil, "", false
			} else {
				flushPara()
				lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				inCode = true
			}
			continue
		}
		switch {
		case inCode:
			code = append(code, line)
		case trimmed == "":
			flushPara()
		default:
			para = append(para, line)
		}
	}

	// An unterminated fence still renders as code.
	if inCode {
		out.WriteString(highlightHTML(strings.Join(code, "\n"), lang, theme))
	}
	flushPara()
	return out.String()
}

// highlightHTML renders code with chroma, falling back to escaped text.
func highlightHTML(code, lang, theme string) string {
	label := ""
	if lang != "" {
		label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", html.EscapeString(lang))
	}
	plain := fmt.Sprintf("<div class=\"code-block\">%s<pre><code>%s</code></pre></div>\n", label, html.EscapeString(code))

	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return plain
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return plain
	}
	var buf strings.Builder
	if err := chromahtml.New(chromahtml.PreventSurroundingPre(false)).Format(&buf, style, iterator); err != nil {
		return plain
	}
	return fmt.Sprintf("<div class=\"code-block\">%s%s</div>\n", label, buf.String())
}

// pageCSS is embedded in every HTML export.
const pageCSS = `<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
:root {
  --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
  --font-mono: "SF Mono", "Fira Code", "Source Code Pro", monospace;
}
.dark-theme {
  --bg: #0b1620; --panel: #11212e; --text: #e3f2fd; --muted: #7fa7c0;
  --user-bg: #163247; --assistant-bg: #0f1c27; --accent: #81d4fa; --border: #1e3a4f;
}
.light-theme {
  --bg: #f5fbff; --panel: #ffffff; --text: #0d2636; --muted: #55788d;
  --user-bg: #e1f3fd; --assistant-bg: #ffffff; --accent: #0277bd; --border: #cfe6f3;
}
body { font-family: var(--font-sans); line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px; }
.container { max-width: 860px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; border: 1px solid var(--border); }
.header { padding: 28px 32px; border-bottom: 1px solid var(--border); }
.header h1 { font-size: 26px; margin-bottom: 12px; color: var(--accent); }
.metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--muted); }
.conversation { padding: 24px 32px; display: flex; flex-direction: column; gap: 16px; }
.message { padding: 14px 18px; border-radius: 12px; border: 1px solid var(--border); }
.user-message { background: var(--user-bg); margin-left: 15%; }
.assistant-message { background: var(--assistant-bg); margin-right: 15%; }
.message-header { display: flex; justify-content: space-between; font-size: 13px; color: var(--muted); margin-bottom: 6px; }
.role-label { font-weight: 600; color: var(--accent); }
.message-content p { margin: 6px 0; }
.inline-code { font-family: var(--font-mono); font-size: 0.9em; padding: 1px 5px; border-radius: 4px; background: var(--border); }
.code-block { margin: 10px 0; border-radius: 8px; overflow: hidden; }
.code-block pre { padding: 12px 14px; overflow-x: auto; font-family: var(--font-mono); font-size: 14px; }
.code-lang { font-size: 12px; padding: 4px 14px; color: var(--muted); background: var(--border); }
.footer { padding: 16px 32px; font-size: 13px; color: var(--muted); border-top: 1px solid var(--border); text-align: center; }
</style>
`
