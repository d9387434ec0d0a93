package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/config"
	"github.com/park285/Cheese-Web/internal/engine"
)

func memoryConfig() *config.AppConfig {
	return &config.AppConfig{
		DevMode:            true,
		HostName:           "http://localhost:8000",
		PostgresURL:        MemoryDSN,
		ServiceSecret:      "secret",
		SessionTTL:         time.Hour,
		RateLimit:          60,
		BroadcastQueueSize: 8,
		CORSOrigins:        []string{"http://localhost:8000"},
	}
}

func TestLifecycleWithMemoryStore(t *testing.T) {
	a, err := New(memoryConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Handler(); err == nil {
		t.Fatalf("handler before startup should fail")
	}
	if err := a.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	h, err := a.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_status/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status=%d", rec.Code)
	}
	if _, ok := a.analyzer.(*engine.Dummy); !ok {
		t.Fatalf("analyzer=%T want *engine.Dummy", a.analyzer)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestStartupWrapsCacheWhenRedisConfigured(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	a, _ := New(cfg)
	if err := a.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	defer a.Shutdown(context.Background())
	if _, ok := a.analyzer.(*engine.Cached); !ok {
		t.Fatalf("analyzer=%T want *engine.Cached", a.analyzer)
	}
}

func TestStartupFailures(t *testing.T) {
	cfg := memoryConfig()
	cfg.StockfishPath = "/nonexistent/stockfish"
	a, _ := New(cfg)
	err := a.Startup(context.Background())
	if apperr.KindOf(err) != apperr.StartupFailure {
		t.Fatalf("missing engine err=%v", err)
	}

	cfg = memoryConfig()
	cfg.RedisURL = "http://localhost:6379"
	a, _ = New(cfg)
	if err := a.Startup(context.Background()); apperr.KindOf(err) != apperr.StartupFailure {
		t.Fatalf("bad redis url err=%v", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		raw     string
		addr    string
		db      int
		pass    string
		tls     bool
		wantErr bool
	}{
		{raw: "redis://localhost", addr: "localhost:6379"},
		{raw: "redis://:pw@cache:6380/2", addr: "cache:6380", db: 2, pass: "pw"},
		{raw: "rediss://user:pw@cache.example.com", addr: "cache.example.com:6379", pass: "pw", tls: true},
		{raw: "redis://cache/notanumber", wantErr: true},
		{raw: "memcache://cache", wantErr: true},
	}
	for _, tt := range tests {
		opts, err := parseRedisURL(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.raw, err)
		}
		if opts.Addr != tt.addr || opts.DB != tt.db || opts.Password != tt.pass || (opts.TLSConfig != nil) != tt.tls {
			t.Fatalf("%s: got addr=%s db=%d pass=%q tls=%t", tt.raw, opts.Addr, opts.DB, opts.Password, opts.TLSConfig != nil)
		}
	}
}
