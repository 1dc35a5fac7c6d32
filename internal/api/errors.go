// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// =============================================================================
// TRANSPORT ERROR
// =============================================================================

// TransportError reports a non-success HTTP status or a missing body.
type TransportError struct {
	StatusCode int
	Detail     string // Human-readable text from the server, if any
	Err        error  // Sentinel for the status class
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	status := fmt.Sprintf("HTTP %d", e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		status += " " + text
	}
	switch {
	case errors.Is(e.Err, stream.ErrNoBody):
		return status + ": " + stream.ErrNoBody.Error()
	case e.Detail != "":
		return status + ": " + e.Detail
	default:
		return status
	}
}

// Unwrap returns the status sentinel.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage returns text suitable for an inline error banner.
func (e *TransportError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrAuthFailed):
		if e.Detail != "" {
			return "Your API key was rejected: " + e.Detail
		}
		return "Your API key was rejected. Double-check it and try again."
	case errors.Is(e.Err, ErrRateLimited):
		return "Whoa, slow down! The server is rate limiting us. Try again in a moment."
	case e.Detail != "":
		return e.Detail
	default:
		return fmt.Sprintf("The server answered %d %s.", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// sentinelForStatus maps a status code to an error class.
func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthFailed
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// errorBody covers FastAPI ({"detail": ...}) and OpenAI ({"error": {...}}) shapes.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// handleErrorResponse converts an HTTP error response to a *TransportError.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &TransportError{
		StatusCode: resp.StatusCode,
		Detail:     parseErrorDetail(body),
		Err:        sentinelForStatus(resp.StatusCode),
	}
}

// parseErrorDetail extracts the message from an error body, falling back
// to the trimmed raw text.
func parseErrorDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Detail) > 0 {
			if detail := detailText(parsed.Detail); detail != "" {
				return detail
			}
		}
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300] + "..."
	}
	return text
}

// detailText reads a FastAPI detail, which is a string or a list of
// validation errors with "msg" fields.
func detailText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
