// Package events provides the in-process lifecycle event channel.
package events

import (
	"context"
	"sync"

	"github.com/mtlprog/tasktrail/internal/domain"
)

// ErrClosed is returned by Publish after Close and by Next once the queue is drained.
var ErrClosed = domain.ErrChannelClosed

// Channel is an unbounded FIFO queue of lifecycle events with many producers
// and a single consumer. Publish never blocks.
type Channel struct {
	mu     sync.Mutex
	queue  []domain.LifecycleEvent
	ready  chan struct{}
	closed bool
}

// NewChannel creates an empty Channel.
func NewChannel() *Channel {
	return &Channel{ready: make(chan struct{}, 1)}
}

// Publish appends the event to the queue.
func (c *Channel) Publish(event domain.LifecycleEvent) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, event)
	c.mu.Unlock()

	c.signal()
	return nil
}

// Next blocks until an event is available, the context is done, or the
// channel is closed and drained.
func (c *Channel) Next(ctx context.Context) (domain.LifecycleEvent, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			event := c.queue[0]
			c.queue[0] = domain.LifecycleEvent{}
			c.queue = c.queue[1:]
			if len(c.queue) == 0 {
				c.queue = nil
			}
			c.mu.Unlock()
			return event, nil
		}
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return domain.LifecycleEvent{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return domain.LifecycleEvent{}, ctx.Err()
		case <-c.ready:
		}
	}
}

// Len returns the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close stops accepting events. Queued events can still be consumed.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.signal()
}

func (c *Channel) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}
