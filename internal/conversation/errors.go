// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned by Submit while a turn is in flight.
	ErrBusy = errors.New("a response is still streaming")

	// ErrEmptyMessage indicates the submitted text was empty or whitespace.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMissingCredential indicates no API key is configured.
	ErrMissingCredential = errors.New("API key not configured")
)

// User-facing messages.
const (
	msgMissingKey   = "You forgot your API key! (Don't worry, I won't tell anyone.)"
	msgEmptyMessage = "Type something first. Even \"hi\" works."
	msgNoBody       = "No response body. The AI is being shy."
	msgFallback     = "Something went wrong! Maybe the AI is on a coffee break? ☕️"
	msgCanceled     = "Stopped generating."
)

// ValidationError reports input rejected before any request is made.
type ValidationError struct {
	Field   string // "message" or "api_key"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateSubmission checks text and credential presence.
func ValidateSubmission(text string, hasCredential bool) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "message", Message: msgEmptyMessage, Err: ErrEmptyMessage}
	}
	if !hasCredential {
		return &ValidationError{Field: "api_key", Message: msgMissingKey, Err: ErrMissingCredential}
	}
	return nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// ErrorKind groups turn errors by origin.
type ErrorKind int

const (
	KindUnknown    ErrorKind = iota
	KindValidation           // Empty input, missing credential
	KindTransport            // Non-success status, absent body, broken stream
	KindDecode               // Malformed chunk encoding
	KindCanceled             // Stopped by the user
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// TurnError is the user-visible error of the current turn.
type TurnError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	return e.Message
}

// Unwrap returns the classified error.
func (e *TurnError) Unwrap() error {
	return e.Err
}

// Classify maps err to a TurnError with a message fit for display.
func Classify(err error) *TurnError {
	if err == nil {
		return nil
	}

	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return &TurnError{Kind: KindValidation, Message: validationErr.Message, Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &TurnError{Kind: KindCanceled, Message: msgCanceled, Err: err}
	}

	if errors.Is(err, stream.ErrNoBody) {
		return &TurnError{Kind: KindTransport, Message: msgNoBody, Err: err}
	}

	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return &TurnError{Kind: KindTransport, Message: transportErr.UserMessage(), Err: err}
	}

	var decodeErr *stream.DecodeError
	if errors.As(err, &decodeErr) {
		return &TurnError{Kind: KindDecode, Message: "Couldn't read the response: " + decodeErr.Err.Error(), Err: err}
	}

	var streamErr *stream.StreamError
	if errors.As(err, &streamErr) {
		return &TurnError{Kind: KindTransport, Message: "The response was cut off: " + streamErr.Err.Error(), Err: err}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return &TurnError{Kind: KindUnknown, Message: msg, Err: err}
	}
	return &TurnError{Kind: KindUnknown, Message: msgFallback, Err: err}
}
