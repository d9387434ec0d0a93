package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/Cheese-Web/internal/streamclient"
	"github.com/park285/Cheese-Web/pkg/chessdto"
)

func main() {
	baseURL := flag.String("url", envDefault("CHEESE_URL", "http://localhost:8000"), "server base URL")
	gameID := flag.String("game", "", "game id to follow")
	perspective := flag.String("perspective", "", "white, black or empty to follow the side to move")
	duration := flag.Duration("for", 0, "stop after this long (0 = until interrupted)")
	flag.Parse()

	if *gameID == "" {
		log.Fatal("-game is required")
	}
	wsURL, err := streamclient.StreamURL(*baseURL, *gameID, *perspective)
	if err != nil {
		log.Fatalf("bad url: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	f := streamclient.New(wsURL,
		func(ev chessdto.StreamEvent) {
			fmt.Printf("%s event=%s bytes=%d\n", time.Now().Format("15:04:05.000"), ev.Event, len(ev.Data))
		},
		streamclient.WithPingInterval(10*time.Second),
		streamclient.OnState(func(s streamclient.State, err error) {
			if err != nil {
				log.Printf("WS state: %s (%v)", s, err)
				return
			}
			log.Printf("WS state: %s", s)
		}),
	)
	log.Printf("following %s", wsURL)
	if err := f.Run(ctx); err != nil {
		log.Fatalf("stream ended: %v", err)
	}
}

func envDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
