// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chillgpt-tui/internal/api"
	"github.com/jeranaias/chillgpt-tui/internal/model"
	"github.com/jeranaias/chillgpt-tui/internal/stream"
)

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func submitted(text string) Submitted {
	return Submitted{
		Text:          text,
		At:            testTime,
		HasCredential: true,
		UserID:        "user-" + text,
		ReplyID:       "reply-" + text,
	}
}

// reduceAll folds events into s, checking the pinned/unread invariant after
// every step.
func reduceAll(t *testing.T, s State, events ...Event) (State, []Effects) {
	t.Helper()
	var effects []Effects
	for _, e := range events {
		var eff Effects
		s, eff = Reduce(s, e)
		effects = append(effects, eff)
		if s.Scroll.PinnedToBottom {
			require.Zero(t, s.Scroll.UnreadCount, "unread must be zero while pinned (after %T)", e)
		}
	}
	return s, effects
}

// =============================================================================
// SUBMIT AND STREAM
// =============================================================================

func TestReduce_SubmitWhilePinnedFollowsContent(t *testing.T) {
	s := NewState("", testTime)

	s, eff := Reduce(s, submitted("Hello"))
	require.Len(t, s.Log, 3)
	assert.Equal(t, DefaultGreeting, s.Log[0].Content)
	assert.Equal(t, model.RoleUser, s.Log[1].Role)
	assert.Equal(t, "Hello", s.Log[1].Content)
	assert.Equal(t, model.RoleAssistant, s.Log[2].Role)
	assert.Empty(t, s.Log[2].Content)
	assert.Equal(t, PhaseSubmitting, s.Phase)
	assert.True(t, s.Loading())

	assert.True(t, eff.StartStream)
	assert.True(t, eff.ScrollToEnd)
	assert.Equal(t, 1, eff.Turn)
	require.Len(t, eff.History, 2, "history excludes the placeholder")
	assert.Equal(t, "Hello", eff.History[1].Content)

	var effects []Effects
	s, effects = reduceAll(t, s,
		StreamOpened{Turn: 1},
		SnapshotReceived{Turn: 1, Text: "Hi"},
		SnapshotReceived{Turn: 1, Text: "Hi there"},
		StreamEnded{Turn: 1},
	)
	assert.Equal(t, "Hi there", s.Log[2].Content)
	assert.Equal(t, PhaseCompleted, s.Phase)
	assert.Zero(t, s.Scroll.UnreadCount)
	assert.True(t, effects[1].ScrollToEnd)
	assert.True(t, effects[2].ScrollToEnd)
}

func TestReduce_UnreadCountedOncePerReply(t *testing.T) {
	s := NewState("", testTime)
	s, _ = Reduce(s, ScrollPositionChanged{NearBottom: false})

	s, _ = reduceAll(t, s,
		submitted("question"),
		StreamOpened{Turn: 1},
		SnapshotReceived{Turn: 1, Text: ""},
	)
	assert.Zero(t, s.Scroll.UnreadCount, "empty content does not count")

	s, effects := reduceAll(t, s,
		SnapshotReceived{Turn: 1, Text: "Hi"},
		SnapshotReceived{Turn: 1, Text: "Hi there"},
		StreamEnded{Turn: 1},
	)
	assert.Equal(t, 1, s.Scroll.UnreadCount)
	for _, eff := range effects {
		assert.False(t, eff.ScrollToEnd)
	}

	s, _ = reduceAll(t, s,
		submitted("again"),
		SnapshotReceived{Turn: 2, Text: "More"},
		StreamEnded{Turn: 2},
	)
	assert.Equal(t, 2, s.Scroll.UnreadCount, "each reply adds one")

	s, _ = Reduce(s, ScrollPositionChanged{NearBottom: true})
	assert.True(t, s.Scroll.PinnedToBottom)
	assert.Zero(t, s.Scroll.UnreadCount)
}

func TestReduce_FailureBeforeFirstChunkRollsBack(t *testing.T) {
	s := NewState("", testTime)
	s, _ = reduceAll(t, s,
		submitted("Hello"),
		StreamFailed{Turn: 1, Err: &api.TransportError{StatusCode: 500, Detail: "boom", Err: api.ErrServer}},
	)

	require.Len(t, s.Log, 2)
	assert.Equal(t, "Hello", s.Log[1].Content)
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.False(t, s.Loading())
	require.NotNil(t, s.Err)
	assert.Equal(t, KindTransport, s.Err.Kind)
	assert.Equal(t, "boom", s.Err.Message)
}

func TestReduce_FailureKeepsPartialReply(t *testing.T) {
	s := NewState("", testTime)
	s, _ = reduceAll(t, s,
		submitted("Hello"),
		SnapshotReceived{Turn: 1, Text: "Par"},
		StreamFailed{Turn: 1, Err: &stream.StreamError{Partial: "Par", Err: errors.New("connection reset")}},
	)

	require.Len(t, s.Log, 3)
	assert.Equal(t, "Par", s.Log[2].Content)
	require.NotNil(t, s.Err)
	assert.Contains(t, s.Err.Message, "cut off")
}

func TestReduce_SubmitWhileStreamingIsIgnored(t *testing.T) {
	s := NewState("", testTime)
	s, _ = reduceAll(t, s,
		submitted("first"),
		SnapshotReceived{Turn: 1, Text: "working"},
	)
	require.Equal(t, PhaseStreaming, s.Phase)

	next, eff := Reduce(s, submitted("second"))
	assert.Equal(t, s, next)
	assert.False(t, eff.StartStream)
	assert.Len(t, next.Log, 3)
}

func TestReduce_ValidationFailureSetsErrorOnly(t *testing.T) {
	tests := []struct {
		name    string
		event   Submitted
		message string
	}{
		{
			name:    "whitespace",
			event:   Submitted{Text: "   \n", HasCredential: true},
			message: msgEmptyMessage,
		},
		{
			name:    "missing key",
			event:   Submitted{Text: "hi", HasCredential: false},
			message: msgMissingKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("", testTime)
			next, eff := Reduce(s, tt.event)

			assert.Equal(t, s.Log, next.Log)
			assert.Equal(t, PhaseIdle, next.Phase)
			assert.False(t, eff.StartStream)
			require.NotNil(t, next.Err)
			assert.Equal(t, KindValidation, next.Err.Kind)
			assert.Equal(t, tt.message, next.Err.Message)
		})
	}
}

func TestReduce_SuccessfulSubmitClearsError(t *testing.T) {
	s := NewState("", testTime)
	s, _ = Reduce(s, Submitted{Text: ""})
	require.NotNil(t, s.Err)

	s, _ = Reduce(s, submitted("ok"))
	assert.Nil(t, s.Err)
}

func TestReduce_StaleTurnEventsAreDropped(t *testing.T) {
	s := NewState("", testTime)
	s, _ = reduceAll(t, s,
		submitted("one"),
		StreamEnded{Turn: 1},
		submitted("two"),
	)
	require.Equal(t, 2, s.Turn)

	next, _ := Reduce(s, SnapshotReceived{Turn: 1, Text: "late"})
	assert.Equal(t, s, next)

	next, _ = Reduce(s, StreamFailed{Turn: 1, Err: errors.New("late")})
	assert.Equal(t, s, next)

	ended, _ := Reduce(s, StreamEnded{Turn: 2})
	after, _ := Reduce(ended, SnapshotReceived{Turn: 2, Text: "after end"})
	assert.Equal(t, ended, after, "snapshots after the end are ignored")
}

func TestReduce_UnchangedSnapshotIsNoop(t *testing.T) {
	s := NewState("", testTime)
	s, _ = reduceAll(t, s, submitted("x"), SnapshotReceived{Turn: 1, Text: "same"})

	next, eff := Reduce(s, SnapshotReceived{Turn: 1, Text: "same"})
	assert.Equal(t, s, next)
	assert.Equal(t, Effects{}, eff)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := NewState("", testTime)
	s, _ = Reduce(s, submitted("x"))
	before := s.Log[2].Content

	_, _ = Reduce(s, SnapshotReceived{Turn: 1, Text: "changed"})
	assert.Equal(t, before, s.Log[2].Content)
}

// =============================================================================
// CLEAR
// =============================================================================

func TestReduce_Clear(t *testing.T) {
	s := NewState("Yo", testTime)
	s, _ = reduceAll(t, s,
		ScrollPositionChanged{NearBottom: false},
		submitted("Hello"),
		SnapshotReceived{Turn: 1, Text: "reply"},
	)
	require.Equal(t, 1, s.Scroll.UnreadCount)

	cleared, eff := Reduce(s, Cleared{At: testTime, GreetingID: "g1"})
	require.Len(t, cleared.Log, 1)
	assert.Equal(t, "Yo", cleared.Log[0].Content)
	assert.Equal(t, "g1", cleared.Log[0].ID)
	assert.Equal(t, ScrollState{PinnedToBottom: true}, cleared.Scroll)
	assert.Nil(t, cleared.Err)
	assert.Equal(t, PhaseIdle, cleared.Phase)
	assert.True(t, eff.CancelStream, "clearing mid-stream cancels it")
	assert.True(t, eff.ScrollToEnd)

	twice, eff := Reduce(cleared, Cleared{At: testTime.Add(time.Minute), GreetingID: "g2"})
	assert.Equal(t, cleared, twice)
	assert.False(t, eff.CancelStream)

	late, _ := Reduce(cleared, SnapshotReceived{Turn: 1, Text: "late"})
	assert.Equal(t, cleared, late, "events from the abandoned turn are dropped")
}

func TestReduce_ClearAfterFailureResetsError(t *testing.T) {
	s := NewState("", testTime)
	s, _ = reduceAll(t, s, submitted("x"), StreamFailed{Turn: 1, Err: errors.New("nope")})
	require.NotNil(t, s.Err)

	s, eff := Reduce(s, Cleared{At: testTime, GreetingID: "g"})
	assert.Nil(t, s.Err)
	assert.False(t, eff.CancelStream)
	assert.True(t, s.IsPristine())
}

// =============================================================================
// INVARIANTS
// =============================================================================

func TestReduce_PinnedUnreadInvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		s := NewState("", testTime)
		text := ""
		for step := 0; step < 40; step++ {
			var e Event
			switch rng.IntN(7) {
			case 0:
				e = submitted(fmt.Sprintf("m%d", step))
				text = ""
			case 1:
				e = StreamOpened{Turn: s.Turn}
			case 2, 3:
				text += string(rune('a' + rng.IntN(26)))
				e = SnapshotReceived{Turn: s.Turn - rng.IntN(2), Text: text}
			case 4:
				e = StreamEnded{Turn: s.Turn}
			case 5:
				e = ScrollPositionChanged{NearBottom: rng.IntN(2) == 0}
			default:
				if rng.IntN(4) == 0 {
					e = Cleared{At: testTime, GreetingID: "g"}
				} else {
					e = StreamFailed{Turn: s.Turn, Err: errors.New("x")}
				}
			}

			prevUnread := s.Scroll.UnreadCount
			s, _ = Reduce(s, e)
			if s.Scroll.PinnedToBottom {
				require.Zero(t, s.Scroll.UnreadCount, "run %d step %d", run, step)
			}
			if _, ok := e.(SnapshotReceived); ok {
				require.LessOrEqual(t, s.Scroll.UnreadCount-prevUnread, 1)
			}
		}
	}
}

// =============================================================================
// SCROLL GEOMETRY
// =============================================================================

func TestNearBottom(t *testing.T) {
	tests := []struct {
		name                              string
		offset, total, visible, threshold int
		want                              bool
	}{
		{"at bottom", 80, 100, 20, 2, true},
		{"exactly on threshold", 78, 100, 20, 2, true},
		{"just past threshold", 77, 100, 20, 2, false},
		{"content shorter than view", 0, 5, 20, 0, true},
		{"negative threshold treated as zero", 80, 100, 20, -5, true},
		{"top of long log", 0, 100, 20, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearBottom(tt.offset, tt.total, tt.visible, tt.threshold))
		})
	}
}

// =============================================================================
// CLASSIFY
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
		msg  string
	}{
		{
			name: "canceled",
			err:  &stream.StreamError{Partial: "x", Err: context.Canceled},
			kind: KindCanceled,
			msg:  msgCanceled,
		},
		{
			name: "no body",
			err:  &api.TransportError{StatusCode: 204, Err: stream.ErrNoBody},
			kind: KindTransport,
			msg:  msgNoBody,
		},
		{
			name: "rate limited",
			err:  &api.TransportError{StatusCode: 429, Err: api.ErrRateLimited},
			kind: KindTransport,
			msg:  "Whoa, slow down! The server is rate limiting us. Try again in a moment.",
		},
		{
			name: "decode",
			err:  &stream.DecodeError{Line: "data: {", Err: errors.New("unexpected end of JSON input")},
			kind: KindDecode,
			msg:  "Couldn't read the response: unexpected end of JSON input",
		},
		{
			name: "wrapped validation",
			err:  fmt.Errorf("submit: %w", &ValidationError{Field: "message", Message: msgEmptyMessage, Err: ErrEmptyMessage}),
			kind: KindValidation,
			msg:  msgEmptyMessage,
		},
		{
			name: "plain error",
			err:  errors.New("dial tcp: connection refused"),
			kind: KindUnknown,
			msg:  "dial tcp: connection refused",
		},
		{
			name: "blank error",
			err:  errors.New("  "),
			kind: KindUnknown,
			msg:  msgFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.msg, got.Message)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, Classify(nil))
}
