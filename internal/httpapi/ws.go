package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const wsWriteTimeout = 10 * time.Second

// wsStream serves the same stream as SSE with JSON frames. The client is
// pinged on every idle tick.
func (s *server) wsStream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  originHosts(s.Config.CORSOrigins),
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Debug("ws_accept_failed", zap.Error(err))
		return
	}
	defer c.CloseNow()

	// viewers never send data; any message or close ends the session
	ctx := c.CloseRead(r.Context())

	emit := func(event, data string) error {
		wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancel()
		return wsjson.Write(wctx, c, chessdto.StreamEvent{Event: event, Data: data})
	}
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancel()
		return c.Ping(pctx)
	}
	s.runViewer(ctx, s.newViewer(r), emit, ping)
	_ = c.Close(websocket.StatusNormalClosure, "")
}

func originHosts(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
