// Package streamclient follows a game's WebSocket stream, reconnecting with
// backoff when the connection drops.
package streamclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/Cheese-Web/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
)

type (
	EventCallback func(ev chessdto.StreamEvent)
	StateCallback func(state State, err error)
)

// ErrGaveUp is returned by Run after MaxReconnects consecutive failures.
var ErrGaveUp = errors.New("streamclient: reconnect attempts exhausted")

type Follower struct {
	wsURL string

	onEvent EventCallback
	onState StateCallback

	maxReconnects int
	pingInterval  time.Duration
	dialTimeout   time.Duration
}

type Option func(*Follower)

func WithMaxReconnects(n int) Option          { return func(f *Follower) { f.maxReconnects = n } }
func WithPingInterval(d time.Duration) Option { return func(f *Follower) { f.pingInterval = d } }
func OnState(cb StateCallback) Option         { return func(f *Follower) { f.onState = cb } }

// StreamURL builds the WebSocket URL of gameID on an http(s) base URL.
func StreamURL(base, gameID, perspective string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/games/" + url.PathEscape(gameID) + "/ws"
	if perspective != "" {
		u.RawQuery = url.Values{"perspective": {perspective}}.Encode()
	}
	return u.String(), nil
}

func New(wsURL string, onEvent EventCallback, opts ...Option) *Follower {
	f := &Follower{
		wsURL:         wsURL,
		onEvent:       onEvent,
		maxReconnects: 5,
		pingInterval:  30 * time.Second,
		dialTimeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run follows the stream until ctx ends (returning nil) or reconnects are
// exhausted. A session that delivered at least one frame resets the count.
func (f *Follower) Run(ctx context.Context) error {
	failures := 0
	state := StateConnecting
	for {
		f.setState(state, nil)
		delivered, err := f.session(ctx)
		if ctx.Err() != nil {
			f.setState(StateDisconnected, nil)
			return nil
		}
		if delivered {
			failures = 0
		}
		failures++
		if failures > f.maxReconnects {
			f.setState(StateFailed, err)
			return fmt.Errorf("%w: %v", ErrGaveUp, err)
		}
		f.setState(StateReconnecting, err)
		if err := sleepWithContext(ctx, backoffDuration(failures)); err != nil {
			f.setState(StateDisconnected, nil)
			return nil
		}
		state = StateConnecting
	}
}

// session runs one connection and reports whether any frame arrived.
func (f *Follower) session(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, f.dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, f.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	cancel()
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()
	f.setState(StateConnected, nil)

	sctx, stop := context.WithCancel(ctx)
	defer stop()
	go f.pingLoop(sctx, conn, stop)

	delivered := false
	for {
		var ev chessdto.StreamEvent
		if err := wsjson.Read(sctx, conn, &ev); err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "bye")
			}
			return delivered, err
		}
		delivered = true
		if f.onEvent != nil {
			f.onEvent(ev)
		}
	}
}

// pingLoop cancels the session after two consecutive failed pings.
func (f *Follower) pingLoop(ctx context.Context, conn *websocket.Conn, stop context.CancelFunc) {
	t := time.NewTicker(f.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				stop()
				return
			}
		}
	}
}

func (f *Follower) setState(s State, err error) {
	if f.onState != nil {
		f.onState(s, err)
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 7 {
		attempt = 7
	}
	d := 250 * time.Millisecond << uint(attempt-1)
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
