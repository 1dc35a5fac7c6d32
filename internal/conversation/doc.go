// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the message log and scroll state of a chat view.
//
// State changes go through Reduce, a pure function from (State, Event) to
// (State, Effects). The Controller applies effects (starting or cancelling a
// stream, scrolling) and notifies subscribers, so rendering is just another
// subscriber.
//
// # Key Types
//
//   - State: log, scroll state, turn phase and the current error
//   - Event: Submitted, StreamOpened, SnapshotReceived, StreamEnded,
//     StreamFailed, ScrollPositionChanged, Cleared
//   - Controller: runs the reducer on its owner goroutine and drives streams
//   - Queue: channel-backed event poster for non-TUI front ends
//
// # Concurrency
//
// All state lives on one goroutine. Stream goroutines never touch State;
// they post one event per received chunk to a Poster, and the owner feeds
// the events back through Controller.Handle in order. Events from a turn
// that was cleared or cancelled are dropped by the reducer.
//
// # Usage
//
//	q := conversation.NewQueue(64)
//	c := conversation.NewController(client, q, conversation.Options{Greeting: "Hey, what's up?"})
//	c.Subscribe(render)
//	if err := c.Submit("Hello"); err != nil {
//	    return err
//	}
//	q.RunUntilIdle(ctx, c)
package conversation
