// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"github.com/jeranaias/chillgpt-tui/internal/model"
)

// =============================================================================
// REDUCER
// =============================================================================

// Reduce applies e to s. It performs no I/O and never mutates s.
func Reduce(s State, e Event) (State, Effects) {
	switch ev := e.(type) {
	case Submitted:
		return reduceSubmitted(s, ev)
	case StreamOpened:
		if !s.isCurrent(ev.Turn) {
			return s, Effects{}
		}
		if s.Phase == PhaseSubmitting {
			s.Phase = PhaseStreaming
		}
		return s, Effects{}
	case SnapshotReceived:
		return reduceSnapshot(s, ev)
	case StreamEnded:
		if !s.isCurrent(ev.Turn) {
			return s, Effects{}
		}
		s.Phase = PhaseCompleted
		s.unreadCounted = false
		return s, Effects{}
	case StreamFailed:
		return reduceFailed(s, ev)
	case ScrollPositionChanged:
		s.Scroll.PinnedToBottom = ev.NearBottom
		if ev.NearBottom {
			s.Scroll.UnreadCount = 0
		}
		return s, Effects{}
	case Cleared:
		return reduceCleared(s, ev)
	default:
		return s, Effects{}
	}
}

// isCurrent reports whether turn is the one in flight.
func (s State) isCurrent(turn int) bool {
	return turn == s.Turn && s.Phase.Busy()
}

func reduceSubmitted(s State, ev Submitted) (State, Effects) {
	// A second submit while loading is ignored outright.
	if s.Phase.Busy() {
		return s, Effects{}
	}

	if err := ValidateSubmission(ev.Text, ev.HasCredential); err != nil {
		s.Err = Classify(err)
		return s, Effects{}
	}

	user, reply := ev.messages()
	history := s.Log.Append(user)

	s.Log = history.Append(reply)
	s.Turn++
	s.Phase = PhaseSubmitting
	s.Err = nil
	s.unreadCounted = false

	return scrollPolicy(s, false, Effects{
		StartStream: true,
		Turn:        s.Turn,
		History:     history,
	})
}

func reduceSnapshot(s State, ev SnapshotReceived) (State, Effects) {
	if !s.isCurrent(ev.Turn) {
		return s, Effects{}
	}
	last, ok := s.Log.Last()
	if !ok || !last.IsAssistant() {
		return s, Effects{}
	}

	s.Phase = PhaseStreaming
	if last.Content == ev.Text {
		return s, Effects{}
	}
	s.Log = s.Log.WithLastContent(ev.Text)
	return scrollPolicy(s, ev.Text != "", Effects{})
}

func reduceFailed(s State, ev StreamFailed) (State, Effects) {
	if !s.isCurrent(ev.Turn) {
		return s, Effects{}
	}

	before := s.Log.Len()
	s.Log = s.Log.DropTrailingEmptyAssistant()
	s.Phase = PhaseFailed
	s.Err = Classify(ev.Err)
	s.unreadCounted = false

	if s.Log.Len() != before {
		return scrollPolicy(s, false, Effects{})
	}
	return s, Effects{}
}

func reduceCleared(s State, ev Cleared) (State, Effects) {
	if s.IsPristine() {
		return s, Effects{}
	}

	eff := Effects{ScrollToEnd: true, CancelStream: s.Phase.Busy()}
	return State{
		Log: model.Log{{
			ID:        ev.GreetingID,
			Role:      model.RoleAssistant,
			Content:   s.Greeting,
			CreatedAt: ev.At,
		}},
		Scroll:   ScrollState{PinnedToBottom: true},
		Phase:    PhaseIdle,
		Turn:     s.Turn,
		Greeting: s.Greeting,
	}, eff
}

// scrollPolicy follows content while pinned. While scrolled away it adds one
// unread for the in-flight reply, the first time the reply has content.
func scrollPolicy(s State, newReplyContent bool, eff Effects) (State, Effects) {
	if s.Scroll.PinnedToBottom {
		s.Scroll.UnreadCount = 0
		eff.ScrollToEnd = true
		return s, eff
	}
	if newReplyContent && !s.unreadCounted {
		s.Scroll.UnreadCount++
		s.unreadCounted = true
	}
	return s, eff
}
