// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, exit codes and error display for chillgpt commands.
//
// Commands return errors and never print-and-return-nil. main reports the
// error once through HandleError and exits with the code it returns.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/conversation"
	"github.com/jeranaias/chillgpt-tui/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected API key
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached or failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
	// ExitInterrupted indicates the user stopped the command with Ctrl+C
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "docs")
	Action  string // Action being performed (e.g., "upload")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents invalid command-line input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string // Optional usage example
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConfigError wraps a failure to load or save the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCodeFor maps err to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErr *ConfigError
	var turnErr *conversation.TurnError
	var transportErr *api.TransportError
	var netErr net.Error

	switch {
	case errors.As(err, &validationErr):
		return ExitUsageError
	case errors.As(err, &configErr):
		return ExitConfigError
	case errors.As(err, &turnErr) && turnErr.Kind == conversation.KindCanceled,
		errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, conversation.ErrMissingCredential), errors.Is(err, api.ErrAuthFailed):
		return ExitAuthError
	case errors.Is(err, conversation.ErrEmptyMessage):
		return ExitUsageError
	case errors.Is(err, api.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &transportErr), errors.As(err, &netErr):
		return ExitNetworkError
	case errors.As(err, &turnErr) && turnErr.Kind == conversation.KindTransport:
		return ExitNetworkError
	}
	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// userMessage returns the friendliest available text for err.
func userMessage(err error) string {
	var turnErr *conversation.TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Message
	}
	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.UserMessage()
	}
	if errors.Is(err, conversation.ErrMissingCredential) {
		return "No API key configured. Run 'chillgpt setup' or set CHILLGPT_API_KEY."
	}
	return err.Error()
}

// DisplayError prints err to stderr, or as a JSON error response on stdout
// in JSON mode.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponseStr("", userMessage(err)).Print()
		return
	}

	fmt.Fprintln(stderr, ErrorStyle.Render("Error:")+" "+userMessage(err))

	var validationErr *ValidationError
	if errors.As(err, &validationErr) && validationErr.Example != "" {
		fmt.Fprintln(stderr, DimStyle.Render("Example: "+validationErr.Example))
	}
	if ExitCodeFor(err) == ExitUsageError {
		fmt.Fprintln(stderr, DimStyle.Render("Run 'chillgpt --help' for usage."))
	}
}

// HandleError displays err and returns the exit code for it.
//
// Example:
//
//	if err := cli.RunAsk(args); err != nil {
//	    os.Exit(cli.HandleError(err, args.JSON))
//	}
func HandleError(err error, jsonMode bool) int {
	DisplayError(err, jsonMode)
	return ExitCodeFor(err)
}
