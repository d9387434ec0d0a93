package broadcast

import (
	"sync"

	"github.com/park285/Cheese-Web/internal/obslog"
	"go.uber.org/zap"
)

// Event is one queued stream message.
type Event struct {
	Kind string `json:"event"`
	Data string `json:"data"`
}

// Subscription is a single viewer's queue on a Channel.
type Subscription struct {
	ch chan Event
}

// Events returns the receive side of the queue. It is closed when the
// subscription is removed, either by Unsubscribe or by a dropped delivery.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Channel fans out one game's events to its subscribers.
type Channel struct {
	gameID    string
	queueSize int

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newChannel(gameID string, queueSize int) *Channel {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Channel{
		gameID:    gameID,
		queueSize: queueSize,
		subs:      make(map[*Subscription]struct{}),
	}
}

func (c *Channel) GameID() string { return c.gameID }

// Subscribe registers a new queue.
func (c *Channel) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan Event, c.queueSize)}
	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()
	return s
}

// Unsubscribe removes s. Unknown or already removed subscriptions are ignored.
func (c *Channel) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(s)
}

// Broadcast enqueues the event on every current subscriber without blocking.
// A subscriber whose queue is full is dropped; the rest still receive it.
// It returns the number of queues that accepted the event.
func (c *Channel) Broadcast(data, kind string) int {
	ev := Event{Kind: kind, Data: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	delivered := 0
	for s := range c.subs {
		select {
		case s.ch <- ev:
			delivered++
		default:
			c.removeLocked(s)
			obslog.L().Debug("broadcast_drop_subscriber",
				zap.String("game_id", c.gameID),
				zap.String("kind", kind),
			)
		}
	}
	return delivered
}

// Len returns the number of live subscribers.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Channel) removeLocked(s *Subscription) {
	if _, ok := c.subs[s]; !ok {
		return
	}
	// membership is the close-once guard
	delete(c.subs, s)
	close(s.ch)
}
