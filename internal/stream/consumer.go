// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects how decoded text is folded into the snapshot.
type Mode int

const (
	// ModeRaw appends every decoded chunk verbatim.
	ModeRaw Mode = iota

	// ModeEventLine parses newline-delimited "data:" records.
	ModeEventLine
)

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeEventLine:
		return "sse"
	default:
		return "raw"
	}
}

// ParseMode converts a config value to a Mode.
// "auto" and "" return ok=false so the caller can fall back to the content type.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw", "text", "plain":
		return ModeRaw, true
	case "sse", "event", "event-line", "events":
		return ModeEventLine, true
	default:
		return ModeRaw, false
	}
}

// ModeForContentType picks event-line mode for text/event-stream bodies
// and raw mode for everything else.
func ModeForContentType(contentType string) Mode {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == "text/event-stream" {
		return ModeEventLine
	}
	return ModeRaw
}

// =============================================================================
// EVENT PAYLOAD
// =============================================================================

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	// DefaultReadSize is the size of a single read from the body.
	DefaultReadSize = 4096

	// MaxLineSize bounds one event line, newline excluded.
	MaxLineSize = 64 * 1024
)

// eventPayload is the subset of a streamed completion record we care about.
type eventPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// =============================================================================
// CONSUMER
// =============================================================================

// Option configures a Consumer.
type Option func(*Consumer)

// WithDecodeErrorHandler registers a hook called for every skipped event line.
func WithDecodeErrorHandler(fn func(*DecodeError)) Option {
	return func(c *Consumer) {
		c.onDecodeError = fn
	}
}

// WithReadSize sets the buffer size used for each body read.
func WithReadSize(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.chunk = make([]byte, n)
		}
	}
}

// Consumer folds a response body into cumulative snapshots.
// A Consumer is single-use and must be driven from one goroutine.
type Consumer struct {
	body io.ReadCloser
	src  io.Reader
	mode Mode

	buf     strings.Builder
	partial strings.Builder // Event-line mode: incomplete trailing line
	chunk   []byte

	done    bool
	err     error // Terminal error, io.EOF on success
	skipped int

	onDecodeError func(*DecodeError)
	closeOnce     sync.Once
}

// NewConsumer wraps body. A nil body yields ErrNoBody from the first Next.
func NewConsumer(body io.ReadCloser, mode Mode, opts ...Option) *Consumer {
	c := &Consumer{
		body:  body,
		mode:  mode,
		chunk: make([]byte, DefaultReadSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	if body == nil {
		c.err = &StreamError{Err: ErrNoBody}
		return c
	}
	c.src = transform.NewReader(body, unicode.UTF8.NewDecoder())
	return c
}

// Mode returns the decoding mode.
func (c *Consumer) Mode() Mode {
	return c.mode
}

// Snapshot returns the cumulative text received so far.
func (c *Consumer) Snapshot() string {
	return c.buf.String()
}

// Skipped returns the number of event lines dropped as malformed.
func (c *Consumer) Skipped() int {
	return c.skipped
}

// Next blocks until a chunk changes the snapshot and returns the new snapshot.
// It returns io.EOF once the stream has completed, a *StreamError on
// transport failure, and the context error if ctx is cancelled. Terminal
// errors are sticky.
func (c *Consumer) Next(ctx context.Context) (string, error) {
	if c.err != nil {
		return c.buf.String(), c.err
	}

	// Unblock a pending read when the caller gives up.
	stop := context.AfterFunc(ctx, c.closeBody)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return c.fail(err)
		}

		n, readErr := c.src.Read(c.chunk)

		// Bytes from a failing read are discarded.
		if readErr != nil && readErr != io.EOF {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.fail(ctxErr)
			}
			return c.fail(&StreamError{Partial: c.buf.String(), Err: readErr})
		}

		changed := false
		if n > 0 {
			var err error
			changed, err = c.fold(string(c.chunk[:n]))
			if err != nil {
				return c.fail(err)
			}
		}

		if readErr == io.EOF && !c.done {
			flushed, err := c.flushPartial()
			if err != nil {
				return c.fail(err)
			}
			changed = changed || flushed
			c.done = true
		}

		if c.done {
			c.finish(io.EOF)
			if changed {
				return c.buf.String(), nil
			}
			return c.buf.String(), io.EOF
		}

		if changed {
			return c.buf.String(), nil
		}
	}
}

// Run drives Next to completion, calling fn with every snapshot.
// It returns the final snapshot and nil on normal completion.
func (c *Consumer) Run(ctx context.Context, fn func(snapshot string)) (string, error) {
	defer c.Close()
	for {
		snapshot, err := c.Next(ctx)
		if errors.Is(err, io.EOF) {
			return snapshot, nil
		}
		if err != nil {
			return snapshot, err
		}
		if fn != nil {
			fn(snapshot)
		}
	}
}

// Close stops the consumer and releases the body. It is safe to call more than once.
func (c *Consumer) Close() error {
	if c.err == nil {
		c.err = ErrClosed
	}
	c.closeBody()
	return nil
}

func (c *Consumer) closeBody() {
	c.closeOnce.Do(func() {
		if c.body != nil {
			c.body.Close()
		}
	})
}

func (c *Consumer) finish(err error) {
	c.err = err
	c.closeBody()
}

func (c *Consumer) fail(err error) (string, error) {
	c.finish(err)
	return c.buf.String(), err
}

// =============================================================================
// FOLDING
// =============================================================================

// fold applies decoded text to the buffer and reports whether it grew.
func (c *Consumer) fold(text string) (bool, error) {
	if c.mode == ModeRaw {
		c.buf.WriteString(text)
		return text != "", nil
	}

	changed := false
	for !c.done {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		if err := c.checkLineSize(i); err != nil {
			return changed, err
		}
		line := text[:i]
		if c.partial.Len() > 0 {
			c.partial.WriteString(line)
			line = c.partial.String()
			c.partial.Reset()
		}
		text = text[i+1:]

		grew, err := c.handleLine(line)
		if err != nil {
			return changed, err
		}
		changed = changed || grew
	}
	if c.done {
		c.partial.Reset()
		return changed, nil
	}
	if err := c.checkLineSize(len(text)); err != nil {
		return changed, err
	}
	c.partial.WriteString(text)
	return changed, nil
}

// checkLineSize fails the stream when the pending line plus n more bytes
// would pass MaxLineSize.
func (c *Consumer) checkLineSize(n int) error {
	if c.partial.Len()+n <= MaxLineSize {
		return nil
	}
	return &StreamError{
		Partial: c.buf.String(),
		Err:     fmt.Errorf("%w: more than %d bytes without a newline", ErrLineTooLong, MaxLineSize),
	}
}

// flushPartial handles a final event line that was not newline-terminated.
func (c *Consumer) flushPartial() (bool, error) {
	if c.mode != ModeEventLine || c.partial.Len() == 0 {
		return false, nil
	}
	line := c.partial.String()
	c.partial.Reset()
	return c.handleLine(line)
}

// handleLine processes one event line. Lines other than data records are ignored.
func (c *Consumer) handleLine(line string) (bool, error) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		// event:, id:, retry:, comments and blank separators
		return false, nil
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" {
		return false, nil
	}
	if payload == doneSentinel {
		c.done = true
		return false, nil
	}

	var event eventPayload
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.skip(line, err)
		return false, nil
	}

	if event.Error != nil && len(event.Choices) == 0 {
		return false, &StreamError{
			Partial: c.buf.String(),
			Err:     fmt.Errorf("%w: %s", ErrUpstream, event.Error.Message),
		}
	}

	if len(event.Choices) == 0 {
		return false, nil
	}
	content := event.Choices[0].Delta.Content
	c.buf.WriteString(content)
	return content != "", nil
}

func (c *Consumer) skip(line string, err error) {
	c.skipped++
	if c.onDecodeError != nil {
		c.onDecodeError(&DecodeError{Line: line, Err: err})
	}
}
