// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"sync"
)

// DefaultQueueSize is the event buffer used when NewQueue gets size <= 0.
const DefaultQueueSize = 64

// =============================================================================
// EVENT QUEUE
// =============================================================================

// Queue is a channel-backed Poster. Stream goroutines post into it and the
// owner goroutine drains it into a Controller, one event at a time, which
// keeps event order deterministic.
type Queue struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue buffering up to size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Post enqueues e. It blocks while the buffer is full and drops e once the
// queue is closed.
func (q *Queue) Post(e Event) {
	select {
	case q.events <- e:
	case <-q.done:
	}
}

// Close stops accepting events. Pending posters are released.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Run drains events into c until ctx is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, c *Controller) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case e := <-q.events:
			c.Handle(e)
		}
	}
}

// RunUntilIdle drains events into c until no turn is in flight.
// If ctx is cancelled first, the in-flight turn is cancelled and its
// terminal event is still drained.
func (q *Queue) RunUntilIdle(ctx context.Context, c *Controller) error {
	canceled := false
	for c.State().Phase.Busy() {
		if canceled {
			select {
			case e := <-q.events:
				c.Handle(e)
			case <-q.done:
				return ctx.Err()
			}
			continue
		}

		select {
		case <-ctx.Done():
			canceled = true
			if !c.Cancel() {
				return ctx.Err()
			}
		case <-q.done:
			return nil
		case e := <-q.events:
			c.Handle(e)
		}
	}
	if canceled {
		return ctx.Err()
	}
	return nil
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.events)
}
