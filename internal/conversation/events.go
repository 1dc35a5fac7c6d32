// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chillgpt-tui/internal/model"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Submitted is the user sending text. IDs and time are fixed by the caller
// so the reducer stays deterministic.
type Submitted struct {
	Text          string
	At            time.Time
	HasCredential bool
	UserID        string
	ReplyID       string
}

// StreamOpened signals that response headers arrived for a turn.
type StreamOpened struct {
	Turn int
}

// SnapshotReceived carries the cumulative reply text after one chunk.
type SnapshotReceived struct {
	Turn int
	Text string
}

// StreamEnded signals normal completion of a turn.
type StreamEnded struct {
	Turn int
}

// StreamFailed signals that a turn failed or was cancelled.
type StreamFailed struct {
	Turn int
	Err  error
}

// ScrollPositionChanged records whether the viewport is near the bottom.
type ScrollPositionChanged struct {
	NearBottom bool
}

// Cleared resets the conversation to the greeting.
type Cleared struct {
	At         time.Time
	GreetingID string
}

func (Submitted) isEvent()             {}
func (StreamOpened) isEvent()          {}
func (SnapshotReceived) isEvent()      {}
func (StreamEnded) isEvent()           {}
func (StreamFailed) isEvent()          {}
func (ScrollPositionChanged) isEvent() {}
func (Cleared) isEvent()               {}

// NewSubmitted stamps a submission with the current time and fresh IDs.
func NewSubmitted(text string, hasCredential bool) Submitted {
	return Submitted{
		Text:          text,
		At:            time.Now(),
		HasCredential: hasCredential,
		UserID:        uuid.NewString(),
		ReplyID:       uuid.NewString(),
	}
}

// NewCleared stamps a clear with the current time and a fresh greeting ID.
func NewCleared() Cleared {
	return Cleared{At: time.Now(), GreetingID: uuid.NewString()}
}

func (e Submitted) messages() (model.Message, model.Message) {
	user := model.Message{ID: e.UserID, Role: model.RoleUser, Content: e.Text, CreatedAt: e.At}
	reply := model.Message{ID: e.ReplyID, Role: model.RoleAssistant, CreatedAt: e.At}
	return user, reply
}

// =============================================================================
// EFFECTS
// =============================================================================

// Effects are the side effects a reduction asks the Controller to perform.
type Effects struct {
	// StartStream asks for a request built from History for Turn.
	StartStream bool
	Turn        int
	History     model.Log

	// CancelStream asks to abandon the in-flight turn.
	CancelStream bool

	// ScrollToEnd asks the view to follow new content.
	ScrollToEnd bool
}
