// Package app owns the process-wide collaborators and their lifecycle.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/broadcast"
	"github.com/park285/Cheese-Web/internal/config"
	"github.com/park285/Cheese-Web/internal/engine"
	"github.com/park285/Cheese-Web/internal/engine/uci"
	"github.com/park285/Cheese-Web/internal/game"
	"github.com/park285/Cheese-Web/internal/httpapi"
	"github.com/park285/Cheese-Web/internal/identity"
	"github.com/park285/Cheese-Web/internal/msgcat"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/internal/rules"
	"github.com/park285/Cheese-Web/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MemoryDSN selects the in-memory repository instead of PostgreSQL.
const MemoryDSN = "memory://"

const startupTimeout = 5 * time.Second

// App is built once by main and handed to the HTTP layer. Nothing here is
// a package-level singleton.
type App struct {
	cfg         *config.AppConfig
	broadcaster *broadcast.Broadcaster
	rules       rules.Engine
	identity    *identity.Client

	// set by Startup
	repo     store.Repository
	games    *game.Service
	sessions *auth.Sessions
	analyzer engine.Analyzer
	redis    *redis.Client
	messages *msgcat.Catalog
	started  bool
}

// New builds the collaborators that need no I/O.
func New(cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	a := &App{
		cfg:         cfg,
		broadcaster: broadcast.New(broadcast.WithQueueSize(cfg.BroadcastQueueSize)),
		rules:       rules.NewChess(),
	}
	if cfg.OAuthEnabled() {
		a.identity = identity.NewClient(identity.Config{
			AuthorizeURL: cfg.OAuthAuthorizeURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserInfoURL:  cfg.OAuthUserInfoURL,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.HostName + "/api/auth/callback",
			Scopes:       []string{"openid", "email"},
		})
	}
	return a, nil
}

// Startup opens storage and the optional engine and cache. Every failure is
// a StartupFailure.
func (a *App) Startup(ctx context.Context) error {
	if a.started {
		return nil
	}
	msgs, err := msgcat.New(a.cfg.MessagesDir)
	if err != nil {
		return apperr.Wrap(apperr.StartupFailure, "load messages", err)
	}
	a.messages = msgs

	repo, err := openRepository(ctx, a.cfg.PostgresURL)
	if err != nil {
		return apperr.Wrap(apperr.StartupFailure, "open database", err)
	}
	a.repo = repo

	analyzer, err := a.openAnalyzer()
	if err != nil {
		_ = repo.Close()
		return apperr.Wrap(apperr.StartupFailure, "start engine", err)
	}
	if strings.TrimSpace(a.cfg.RedisURL) != "" {
		opts, err := parseRedisURL(a.cfg.RedisURL)
		if err != nil {
			_ = analyzer.Close()
			_ = repo.Close()
			return apperr.Wrap(apperr.StartupFailure, "parse redis url", err)
		}
		a.redis = redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, startupTimeout)
		if err := a.redis.Ping(pctx).Err(); err != nil {
			// the cache falls back per request, so an unreachable Redis is not fatal
			obslog.L().Warn("redis_unavailable", zap.Error(err))
		}
		cancel()
		analyzer = engine.NewCached(analyzer, a.redis, a.cfg.AnalysisCacheTTL)
	}
	a.analyzer = analyzer

	a.games = game.NewService(repo, a.rules, a.broadcaster)
	a.sessions = auth.NewSessions(a.cfg.ServiceSecret, a.cfg.SessionTTL, repo, strings.HasPrefix(a.cfg.HostName, "https://"))
	a.started = true

	obslog.L().Info("app_started",
		zap.String("config", a.cfg.String()),
		zap.Bool("memory_store", a.cfg.PostgresURL == MemoryDSN),
		zap.Bool("oauth", a.identity != nil),
	)
	return nil
}

func openRepository(ctx context.Context, dsn string) (store.Repository, error) {
	if strings.TrimSpace(dsn) == MemoryDSN {
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(dsn, store.DefaultPool)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := pg.Ping(pctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := store.ApplySchema(pctx, pg.DB()); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}

// openAnalyzer prefers Stockfish when a binary is configured.
func (a *App) openAnalyzer() (engine.Analyzer, error) {
	if strings.TrimSpace(a.cfg.StockfishPath) == "" {
		return engine.NewDummy(a.rules, 100*time.Millisecond, 500*time.Millisecond), nil
	}
	sf, err := engine.NewStockfish(uci.PoolConfig{
		BinaryPath: a.cfg.StockfishPath,
		Capacity:   a.cfg.EnginePoolSize,
		Options:    uci.Options{Threads: 1, HashMB: 64},
	}, a.rules)
	if err != nil {
		return nil, err
	}
	return sf, nil
}

// Handler returns the HTTP router. Startup must have succeeded.
func (a *App) Handler() (http.Handler, error) {
	if !a.started {
		return nil, errors.New("app not started")
	}
	return httpapi.NewRouter(httpapi.Deps{
		Config:      a.cfg,
		Games:       a.games,
		Broadcaster: a.broadcaster,
		Rules:       a.rules,
		Analyzer:    a.analyzer,
		Sessions:    a.sessions,
		Identity:    a.identity,
		Messages:    a.messages,
		Store:       a.repo,
	})
}

// Shutdown releases the engine, cache and database. Live streams are ended by
// the caller cancelling their contexts first.
func (a *App) Shutdown(ctx context.Context) error {
	st := a.broadcaster.Stats()
	obslog.L().Info("app_shutdown",
		zap.Int("channels", st.Channels),
		zap.Int("subscribers", st.Subscribers),
	)
	if !a.started {
		return nil
	}
	a.started = false

	var errs []error
	if a.analyzer != nil {
		if err := a.analyzer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close analyzer: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return nil, err
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	opts := &redis.Options{
		Addr:     net.JoinHostPort(host, portStr),
		Username: u.User.Username(),
		DB:       db,
	}
	opts.Password, _ = u.User.Password()
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
