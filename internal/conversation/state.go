// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/model"
)

// DefaultGreeting is the first assistant message of every conversation.
const DefaultGreeting = "Hey, what's up?"

// =============================================================================
// PHASE
// =============================================================================

// Phase is the turn state machine:
// Idle -> Submitting -> Streaming -> Completed | Failed.
type Phase int

const (
	PhaseIdle       Phase = iota // No turn yet, or cleared
	PhaseSubmitting              // Request sent, waiting for headers
	PhaseStreaming               // Receiving chunks
	PhaseCompleted               // Last turn ended normally
	PhaseFailed                  // Last turn ended with an error
)

// String returns the name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Busy reports whether a turn is in flight. Busy phases reject Submit.
func (p Phase) Busy() bool {
	return p == PhaseSubmitting || p == PhaseStreaming
}

// =============================================================================
// SCROLL STATE
// =============================================================================

// ScrollState tracks whether the view follows new content.
// UnreadCount is always zero while PinnedToBottom is true.
type ScrollState struct {
	PinnedToBottom bool
	UnreadCount    int
}

// NearBottom reports whether a viewport scrolled to offset, showing visible
// lines out of total, is within threshold lines of the end. Sitting exactly
// on the threshold counts as near.
func NearBottom(offset, total, visible, threshold int) bool {
	if threshold < 0 {
		threshold = 0
	}
	remaining := total - offset - visible
	return remaining <= threshold
}

// =============================================================================
// STATE
// =============================================================================

// State is everything the conversation view renders.
type State struct {
	Log    model.Log
	Scroll ScrollState
	Phase  Phase
	Turn   int // Incremented by every accepted submit
	Err    *TurnError

	Greeting string

	// unreadCounted is set once the in-flight reply has added its unread.
	unreadCounted bool
}

// NewState returns a conversation holding only the greeting.
func NewState(greeting string, at time.Time) State {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	return State{
		Log:      model.Greeting(greeting, at),
		Scroll:   ScrollState{PinnedToBottom: true},
		Phase:    PhaseIdle,
		Greeting: greeting,
	}
}

// Loading reports whether a reply is being fetched.
func (s State) Loading() bool {
	return s.Phase.Busy()
}

// IsPristine reports whether the state is exactly what Clear produces.
func (s State) IsPristine() bool {
	if len(s.Log) != 1 || s.Log[0].Content != s.Greeting || !s.Log[0].IsAssistant() {
		return false
	}
	return s.Phase == PhaseIdle && s.Err == nil &&
		s.Scroll == ScrollState{PinnedToBottom: true}
}
