package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/park285/Cheese-Web/internal/broadcast"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/internal/render"
	"go.uber.org/zap"
)

const (
	eventConnected = "connected"
	eventKeepalive = "keepalive"
)

// emitFunc writes one named event to a viewer.
type emitFunc func(event, data string) error

// viewer is one live subscription to a game, shared by the SSE and WebSocket
// transports.
type viewer struct {
	gameID    string
	pinned    string
	tick      time.Duration
	keepalive bool
	connected string
}

// runViewer subscribes, emits the connected event and forwards events until ctx
// ends, the queue is dropped or a write fails. idle runs on every tick
// without an event. The subscription is always released.
func (s *server) runViewer(ctx context.Context, v viewer, emit emitFunc, idle func() error) {
	ch := s.Broadcaster.Channel(v.gameID)
	sub := ch.Subscribe()
	defer ch.Unsubscribe(sub)

	start := time.Now()
	reason := "client_gone"
	obslog.L().Info("stream_open", zap.String("game_id", v.gameID), zap.String("perspective", v.pinned))
	defer func() {
		obslog.L().Info("stream_close",
			zap.String("game_id", v.gameID),
			zap.String("reason", reason),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if err := emit(eventConnected, v.connected); err != nil {
		reason = "write_failed"
		return
	}

	timer := time.NewTimer(v.tick)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				reason = "dropped"
				return
			}
			name, data, err := s.viewerEvent(v, ev)
			if err != nil {
				obslog.L().Warn("stream_render_failed", zap.String("game_id", v.gameID), zap.Error(err))
			} else if err := emit(name, data); err != nil {
				reason = "write_failed"
				return
			}
		case <-timer.C:
			if idle != nil {
				if err := idle(); err != nil {
					reason = "write_failed"
					return
				}
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(v.tick)
	}
}

// viewerEvent renders position updates as a board for the viewer's
// perspective; anything else passes through unchanged.
func (s *server) viewerEvent(v viewer, ev broadcast.Event) (string, string, error) {
	if !broadcast.IsUpdate(ev.Kind) {
		return ev.Kind, ev.Data, nil
	}
	board, err := render.BoardHTML(ev.Data, render.Perspective(v.pinned, ev.Data))
	if err != nil {
		return "", "", err
	}
	return "game-update-" + v.gameID, string(board), nil
}

func (s *server) newViewer(r *http.Request) viewer {
	return viewer{
		gameID:    chi.URLParam(r, "id"),
		pinned:    r.URL.Query().Get("perspective"),
		tick:      s.StreamTick,
		keepalive: s.Config.StreamKeepalive,
		connected: s.Messages.Text("stream.connected", nil),
	}
}

// stream serves a game as Server-Sent Events.
func (s *server) stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// streams outlive any server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	emit := func(event, data string) error {
		if err := writeSSE(w, event, data); err != nil {
			return err
		}
		return rc.Flush()
	}
	v := s.newViewer(r)
	var idle func() error
	if v.keepalive {
		idle = func() error { return emit(eventKeepalive, "") }
	}
	s.runViewer(r.Context(), v, emit, idle)
}

func writeSSE(w http.ResponseWriter, event, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	b.WriteString("\n")
	_, err := w.Write([]byte(b.String()))
	return err
}
