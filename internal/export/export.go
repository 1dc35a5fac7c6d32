// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/util"
)

var (
	// ErrEmptyTranscript indicates there is nothing worth exporting.
	ErrEmptyTranscript = errors.New("transcript has no messages")

	// ErrUnknownFormat indicates the file extension maps to no exporter.
	ErrUnknownFormat = errors.New("unknown export format")
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export returns the rendered transcript.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the preferred extension (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
)

// FormatForPath picks the format from path's extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w %q (use .md, .json, .yaml or .html)", ErrUnknownFormat, filepath.Ext(path))
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures rendering.
type Options struct {
	// IncludeMetadata adds a header with model, preset and dates.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch format {
	case FormatMarkdown:
		return &MarkdownExporter{options: opts}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	case FormatYAML:
		return &YAMLExporter{}, nil
	case FormatHTML:
		return &HTMLExporter{options: opts}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// WriteFile renders t in the format implied by path and writes it
// atomically. A path that names a directory (or is empty) gets a generated
// Markdown filename inside it. The written path is returned.
func WriteFile(t *Transcript, path string, opts *Options) (string, error) {
	if t == nil || len(t.Messages) == 0 {
		return "", ErrEmptyTranscript
	}

	if path == "" || strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, "/") {
		path = filepath.Join(path, DefaultFilename(t, FormatMarkdown, time.Now()))
	}

	format, err := FormatForPath(path)
	if err != nil {
		return "", err
	}
	exporter, err := New(format, opts)
	if err != nil {
		return "", err
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// DefaultFilename returns chat_<title>_<timestamp><ext>.
func DefaultFilename(t *Transcript, format Format, now time.Time) string {
	ext := ".md"
	if e, err := New(format, nil); err == nil {
		ext = e.FileExtension()
	}
	return fmt.Sprintf("chat_%s_%s%s", sanitizeFilename(t.Title), now.Format("20060102_150405"), ext)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames on
// Windows or Unix and bounds the length.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 40)
	s = strings.TrimSuffix(s, "...")

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// roleLabel returns the display label for a role string.
func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "ChillGPT"
	case "system":
		return "System"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(role[:1]) + role[1:]
	}
}
