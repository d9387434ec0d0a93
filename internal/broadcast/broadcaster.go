package broadcast

import (
	"strings"
	"sync"
)

const (
	// DefaultQueueSize is the per-subscriber buffer when none is configured.
	DefaultQueueSize = 64

	updateKindPrefix = "fen-update-"
)

// UpdateKind is the event kind used for position updates of gameID.
func UpdateKind(gameID string) string { return updateKindPrefix + gameID }

// IsUpdate reports whether kind carries a raw position.
func IsUpdate(kind string) bool { return strings.HasPrefix(kind, updateKindPrefix) }

// Broadcaster owns the game id → Channel registry. Channels are created on
// first use and kept for the life of the process.
type Broadcaster struct {
	queueSize int

	mu       sync.Mutex
	channels map[string]*Channel
}

type Option func(*Broadcaster)

// WithQueueSize sets the buffer of every subscriber queue created afterwards.
func WithQueueSize(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		queueSize: DefaultQueueSize,
		channels:  make(map[string]*Channel),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Channel returns the channel for gameID, creating it if needed.
func (b *Broadcaster) Channel(gameID string) *Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[gameID]
	if !ok {
		ch = newChannel(gameID, b.queueSize)
		b.channels[gameID] = ch
	}
	return ch
}

// BroadcastToGame sends fen to every viewer of gameID under UpdateKind(gameID).
func (b *Broadcaster) BroadcastToGame(gameID, fen string) int {
	return b.Channel(gameID).Broadcast(fen, UpdateKind(gameID))
}

type Stats struct {
	Channels    int
	Subscribers int
}

func (b *Broadcaster) Stats() Stats {
	b.mu.Lock()
	chans := make([]*Channel, 0, len(b.channels))
	for _, ch := range b.channels {
		chans = append(chans, ch)
	}
	b.mu.Unlock()

	st := Stats{Channels: len(chans)}
	for _, ch := range chans {
		st.Subscribers += ch.Len()
	}
	return st
}
