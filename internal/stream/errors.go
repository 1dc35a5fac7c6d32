// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoBody indicates the response carried no readable body.
	ErrNoBody = errors.New("no response body")

	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("stream closed")

	// ErrUpstream indicates an error record arrived inside an event-line stream.
	ErrUpstream = errors.New("upstream error")

	// ErrLineTooLong indicates an event line exceeded MaxLineSize.
	ErrLineTooLong = errors.New("event line too long")
)

// StreamError represents a transport failure while reading the body,
// preserving the snapshot received before the failure.
type StreamError struct {
	Partial string // Snapshot before the failure
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// DecodeError describes an event line whose payload could not be parsed.
// The line is skipped and the stream continues.
type DecodeError struct {
	Line string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("skipped malformed event line %q: %v", truncate(e.Line, 64), e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
