// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// ChatRequest is a chat turn after document retrieval has been applied.
type ChatRequest struct {
	Messages []model.ChatMessage
	Model    string
	APIKey   string
}

// Responder produces a reply as a sequence of text deltas.
// emit returns an error once the client has gone away.
type Responder interface {
	Respond(ctx context.Context, req ChatRequest, emit func(delta string) error) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req ChatRequest, emit func(string) error) error

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, req ChatRequest, emit func(string) error) error {
	return f(ctx, req, emit)
}

// ============================================================================
// ECHO
// ============================================================================

// EchoResponder repeats the last user message back one word at a time.
// It needs no network and is deterministic.
type EchoResponder struct {
	// Delay is the pause before each word.
	Delay time.Duration
}

// EchoReply returns the full text EchoResponder sends for msgs.
func EchoReply(msgs []model.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser.String() {
			return "You said: " + msgs[i].Content
		}
	}
	return "Hey, what's up?"
}

// Respond implements Responder.
func (e EchoResponder) Respond(ctx context.Context, req ChatRequest, emit func(string) error) error {
	for _, word := range strings.SplitAfter(EchoReply(req.Messages), " ") {
		if word == "" {
			continue
		}
		if e.Delay > 0 {
			timer := time.NewTimer(e.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(word); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// UPSTREAM
// ============================================================================

// UpstreamResponder forwards the turn to an OpenAI-compatible endpoint using
// the caller's API key and re-emits the streamed text.
type UpstreamResponder struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewUpstreamResponder creates a responder for baseURL. Empty means OpenAI.
func NewUpstreamResponder(baseURL string) *UpstreamResponder {
	if baseURL == "" {
		baseURL = api.DefaultOpenAIURL
	}
	return &UpstreamResponder{BaseURL: baseURL}
}

// Respond implements Responder.
func (u *UpstreamResponder) Respond(ctx context.Context, req ChatRequest, emit func(string) error) error {
	client := api.NewClient(u.BaseURL, req.APIKey).WithDialect(api.DialectOpenAI)
	if u.HTTPClient != nil {
		client = client.WithHTTPClient(u.HTTPClient)
	}
	if u.Logger != nil {
		client = client.WithLogger(u.Logger)
	}

	chat, err := client.Chat(ctx, api.ChatRequest{
		Messages: req.Messages,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		return err
	}

	consumer := stream.NewConsumer(chat.Body, chat.Mode)
	defer consumer.Close()

	// Snapshots only grow, so the delta is whatever follows the last one sent.
	sent := 0
	for {
		snapshot, err := consumer.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(snapshot) > sent {
			if err := emit(snapshot[sent:]); err != nil {
				return err
			}
			sent = len(snapshot)
		}
	}
}
