// Package httpapi serves the JSON API, the HTML pages and the live game
// streams.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/broadcast"
	"github.com/park285/Cheese-Web/internal/config"
	"github.com/park285/Cheese-Web/internal/engine"
	"github.com/park285/Cheese-Web/internal/game"
	"github.com/park285/Cheese-Web/internal/identity"
	"github.com/park285/Cheese-Web/internal/msgcat"
	"github.com/park285/Cheese-Web/internal/rules"
)

// DefaultStreamTick is how long a stream waits for an event before running
// its idle policy.
const DefaultStreamTick = 5 * time.Second

// Pinger reports storage readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators handlers need. Identity may be nil when no
// provider is configured.
type Deps struct {
	Config      *config.AppConfig
	Games       *game.Service
	Broadcaster *broadcast.Broadcaster
	Rules       rules.Engine
	Analyzer    engine.Analyzer
	Sessions    *auth.Sessions
	Identity    *identity.Client
	Messages    *msgcat.Catalog
	Store       Pinger

	// StreamTick overrides DefaultStreamTick.
	StreamTick time.Duration
}

type server struct {
	Deps
	pages *pageSet
}

// NewRouter wires every route onto a chi router.
func NewRouter(d Deps) (http.Handler, error) {
	if d.Config == nil || d.Games == nil || d.Broadcaster == nil || d.Rules == nil ||
		d.Analyzer == nil || d.Sessions == nil || d.Messages == nil {
		return nil, errors.New("httpapi: missing dependency")
	}
	if d.StreamTick <= 0 {
		d.StreamTick = DefaultStreamTick
	}
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &server{Deps: d, pages: pages}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	r.Use(d.Sessions.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeDetail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	r.Get("/up", s.up)
	r.Get("/_status/ready", s.ready)

	requireUser := auth.RequireUser(s.writeError)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.login)
			r.Get("/callback", s.callback)
			r.Post("/logout", s.logout)
			r.Post("/dev-login", s.devLogin)
			r.Get("/whoami", s.whoami)
		})
		r.Route("/games", func(r chi.Router) {
			r.With(requireUser).Post("/", s.createGame)
			r.Get("/{id}", s.gameJSON)
			r.Post("/{id}/move", s.move)
			r.Get("/{id}/board.png", s.boardPNG)
			r.Get("/{id}/stream", s.stream)
			r.Get("/{id}/ws", s.wsStream)
		})
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(rateLimit(d.Config.RateLimit), time.Minute,
				httprate.WithKeyByIP(),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					s.writeDetail(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				}),
			))
			r.Get("/engine/analyze", s.analyze)
		})
	})

	r.Get("/", s.indexPage)
	r.Route("/app", func(r chi.Router) {
		r.Get("/login", s.loginPage)
		r.Get("/games/{id}", s.gamePage)
		r.Group(func(r chi.Router) {
			r.Use(s.requirePageUser)
			r.Get("/dashboard", s.dashboardPage)
			r.Get("/games/new", s.newGamePage)
		})
	})
	return r, nil
}

func rateLimit(n int) int {
	if n <= 0 {
		return 60
	}
	return n
}

func (s *server) up(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	st := s.Broadcaster.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"channels":    st.Channels,
		"subscribers": st.Subscribers,
	})
}
