// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ChatClient opens a streamed reply for a request.
type ChatClient interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatStream, error)
}

// Poster accepts events from any goroutine and delivers them, in order,
// to the goroutine that owns the Controller.
type Poster interface {
	Post(Event)
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(Event)

// Post calls f(e).
func (f PosterFunc) Post(e Event) {
	f(e)
}

// Subscriber is notified after every event with the new state and the
// effects that produced it.
type Subscriber func(State, Effects)

// =============================================================================
// CONTROLLER
// =============================================================================

// Settings are the request parameters applied to the next turn.
type Settings struct {
	Model        string
	SystemPrompt string
	APIKey       string
	UseRAG       bool
}

// Options configures a Controller.
type Options struct {
	Greeting string

	// CredentialOptional allows submits without an API key, for backends
	// that hold their own.
	CredentialOptional bool

	// StreamMode overrides content-type detection when set.
	StreamMode *stream.Mode

	// OnDecodeError observes skipped event lines. It runs on the stream goroutine.
	OnDecodeError func(*stream.DecodeError)
}

// Controller owns a conversation State. All methods except the Poster side
// must be called from the owner goroutine.
type Controller struct {
	state       State
	client      ChatClient
	poster      Poster
	settings    Settings
	opts        Options
	subscribers []Subscriber

	cancel context.CancelFunc
}

// NewController creates a controller showing the greeting.
func NewController(client ChatClient, poster Poster, opts Options) *Controller {
	return &Controller{
		state:  NewState(opts.Greeting, time.Now()),
		client: client,
		poster: poster,
		opts:   opts,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Settings returns the request parameters.
func (c *Controller) Settings() Settings {
	return c.settings
}

// SetSettings replaces the request parameters. The in-flight turn keeps the
// settings it started with.
func (c *Controller) SetSettings(s Settings) {
	c.settings = s
}

// SetPoster replaces the event sink. The TUI sets it once its program exists.
func (c *Controller) SetPoster(p Poster) {
	c.poster = p
}

// Subscribe registers fn for state changes.
func (c *Controller) Subscribe(fn Subscriber) {
	c.subscribers = append(c.subscribers, fn)
}

// Submit sends text as the next user message. It returns a *ValidationError
// for rejected input and ErrBusy while a turn is in flight. Validation
// errors are also recorded in State.Err.
func (c *Controller) Submit(text string) error {
	if c.state.Phase.Busy() {
		return ErrBusy
	}
	hasCredential := c.hasCredential()
	err := ValidateSubmission(text, hasCredential)
	c.Handle(NewSubmitted(text, hasCredential))
	return err
}

// Clear resets the conversation and abandons any in-flight turn.
func (c *Controller) Clear() {
	c.Handle(NewCleared())
}

// RecordScrollPosition records whether the view is near the bottom.
func (c *Controller) RecordScrollPosition(nearBottom bool) {
	if c.state.Scroll.PinnedToBottom == nearBottom {
		return
	}
	c.Handle(ScrollPositionChanged{NearBottom: nearBottom})
}

// Cancel stops the in-flight turn. The stream goroutine reports the
// cancellation as a failure, which keeps any partial reply.
func (c *Controller) Cancel() bool {
	if !c.state.Phase.Busy() || c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Close cancels any in-flight turn without waiting for its events.
func (c *Controller) Close() {
	c.releaseTurn()
}

// Handle applies an event and performs its effects.
func (c *Controller) Handle(e Event) {
	next, eff := Reduce(c.state, e)
	c.state = next

	if eff.CancelStream {
		c.releaseTurn()
	}
	if eff.StartStream {
		c.startTurn(eff)
	}
	if !next.Phase.Busy() && c.cancel != nil {
		c.releaseTurn()
	}

	for _, fn := range c.subscribers {
		fn(next, eff)
	}
}

func (c *Controller) hasCredential() bool {
	return c.opts.CredentialOptional || c.settings.APIKey != ""
}

func (c *Controller) releaseTurn() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// =============================================================================
// STREAMING
// =============================================================================

func (c *Controller) startTurn(eff Effects) {
	c.releaseTurn()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	req := api.ChatRequest{
		Messages: eff.History.ToChatMessages(c.settings.SystemPrompt),
		Model:    c.settings.Model,
		APIKey:   c.settings.APIKey,
		UseRAG:   c.settings.UseRAG,
	}

	go runTurn(ctx, eff.Turn, c.client, req, c.poster, c.opts)
}

// runTurn streams one reply, posting exactly one event per received chunk
// and a single terminal event.
func runTurn(ctx context.Context, turn int, client ChatClient, req api.ChatRequest, poster Poster, opts Options) {
	if client == nil {
		poster.Post(StreamFailed{Turn: turn, Err: api.ErrNotConfigured})
		return
	}

	cs, err := client.Chat(ctx, req)
	if err != nil {
		poster.Post(StreamFailed{Turn: turn, Err: err})
		return
	}
	poster.Post(StreamOpened{Turn: turn})

	mode := cs.Mode
	if opts.StreamMode != nil {
		mode = *opts.StreamMode
	}

	var consumerOpts []stream.Option
	if opts.OnDecodeError != nil {
		consumerOpts = append(consumerOpts, stream.WithDecodeErrorHandler(opts.OnDecodeError))
	}
	consumer := stream.NewConsumer(cs.Body, mode, consumerOpts...)

	_, err = consumer.Run(ctx, func(snapshot string) {
		poster.Post(SnapshotReceived{Turn: turn, Text: snapshot})
	})
	if err != nil {
		poster.Post(StreamFailed{Turn: turn, Err: err})
		return
	}
	poster.Post(StreamEnded{Turn: turn})
}
