package streamclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/Cheese-Web/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base, game, perspective, want string
	}{
		{"http://localhost:8000", "g1", "", "ws://localhost:8000/api/games/g1/ws"},
		{"https://chess.example.com/", "g2", "black", "wss://chess.example.com/api/games/g2/ws?perspective=black"},
	}
	for _, tt := range tests {
		got, err := StreamURL(tt.base, tt.game, tt.perspective)
		if err != nil || got != tt.want {
			t.Fatalf("StreamURL(%q)=%q,%v want %q", tt.base, got, err, tt.want)
		}
	}
	if _, err := StreamURL("ftp://x", "g", ""); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestFollowerReconnectsAfterDrop(t *testing.T) {
	var sessions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		n := sessions.Add(1)
		_ = wsjson.Write(r.Context(), c, chessdto.StreamEvent{Event: "connected", Data: "Watching game"})
		_ = wsjson.Write(r.Context(), c, chessdto.StreamEvent{Event: "game-update-g", Data: string(rune('0' + n))})
		_ = c.Close(websocket.StatusGoingAway, "restart")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		updates []string
	)
	f := New("ws"+strings.TrimPrefix(srv.URL, "http"), func(ev chessdto.StreamEvent) {
		if ev.Event != "game-update-g" {
			return
		}
		mu.Lock()
		updates = append(updates, ev.Data)
		if len(updates) == 2 {
			cancel()
		}
		mu.Unlock()
	})
	if err := f.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(updates) < 2 || updates[0] != "1" || updates[1] != "2" {
		t.Fatalf("updates=%v", updates)
	}
}

func TestFollowerGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	var states []State
	f := New(wsURL, nil, WithMaxReconnects(1), OnState(func(s State, _ error) {
		states = append(states, s)
	}))
	err := f.Run(context.Background())
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("err=%v want ErrGaveUp", err)
	}
	if states[len(states)-1] != StateFailed {
		t.Fatalf("final state %v", states)
	}
}

func TestBackoffDurationCapped(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 200; attempt++ {
		d := backoffDuration(attempt)
		if d < prev || d <= 0 || d > 10*time.Second {
			t.Fatalf("attempt %d: backoff=%v after %v", attempt, d, prev)
		}
		prev = d
	}
	if backoffDuration(1) != 250*time.Millisecond || backoffDuration(200) != 10*time.Second {
		t.Fatalf("first=%v last=%v", backoffDuration(1), backoffDuration(200))
	}
}
