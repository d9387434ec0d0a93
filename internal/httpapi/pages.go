package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/internal/render"
	"github.com/park285/Cheese-Web/internal/rules"
	"github.com/park285/Cheese-Web/internal/store"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "login", "dashboard", "new_game", "game", "not_found"}

// pageSet holds one template tree per page, each sharing the layout.
type pageSet struct {
	pages map[string]*template.Template
}

func loadPages() (*pageSet, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	ps := &pageSet{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		ps.pages[name] = t
	}
	return ps, nil
}

// pageData is the union of what the pages read.
type pageData struct {
	Site    string
	Tagline string
	Title   string
	User    *store.User

	// login
	OAuth         bool
	DevMode       bool
	ProviderLabel string
	DevLabel      string

	// dashboard
	Games []*store.Game
	Empty string

	// game
	GameID      string
	Board       template.HTML
	CanMove     bool
	Perspective rules.Color
	StatusLine  string

	// not found
	Body string
}

func (s *server) basePage(r *http.Request, titleKey string, titleData map[string]any) pageData {
	site := s.Messages.Text("site.name", nil)
	if titleData == nil {
		titleData = map[string]any{}
	}
	titleData["Site"] = site
	return pageData{
		Site:    site,
		Tagline: s.Messages.Text("site.tagline", nil),
		Title:   s.Messages.Text(titleKey, titleData),
		User:    auth.UserFrom(r.Context()),
	}
}

func (s *server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := s.pages.pages[name]
	if !ok {
		s.writeError(w, r, fmt.Errorf("unknown page %q", name))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		obslog.L().Error("page_render_failed", zap.String("page", name), zap.Error(err))
		s.writeDetail(w, http.StatusInternalServerError, s.Messages.Text("errors.internal", nil))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.basePage(r, "page.not_found.title", nil)
	data.Body = s.Messages.Text("page.not_found.body", nil)
	s.renderPage(w, r, http.StatusNotFound, "not_found", data)
}

func (s *server) indexPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "index", s.basePage(r, "page.index.title", nil))
}

func (s *server) loginPage(w http.ResponseWriter, r *http.Request) {
	if auth.UserFrom(r.Context()) != nil {
		http.Redirect(w, r, "/app/dashboard", http.StatusFound)
		return
	}
	data := s.basePage(r, "page.login.title", nil)
	data.OAuth = s.Identity != nil
	data.DevMode = s.Config.DevMode
	data.ProviderLabel = s.Messages.Text("page.login.provider", nil)
	data.DevLabel = s.Messages.Text("page.login.dev", nil)
	s.renderPage(w, r, http.StatusOK, "login", data)
}

func (s *server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	games, err := s.Games.ListForUser(r.Context(), u.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data := s.basePage(r, "page.dashboard.title", nil)
	data.Games = games
	data.Empty = s.Messages.Text("page.dashboard.empty", nil)
	s.renderPage(w, r, http.StatusOK, "dashboard", data)
}

func (s *server) newGamePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "new_game", s.basePage(r, "page.new_game.title", nil))
}

// gamePage is public; only the seated player to move gets the move form.
func (s *server) gamePage(w http.ResponseWriter, r *http.Request) {
	v, err := s.Games.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data := s.basePage(r, "page.game.title", map[string]any{"ID": v.Game.ID})

	userID := ""
	if data.User != nil {
		userID = data.User.ID
	}
	perspective := v.SideOf(userID)
	if perspective == "" {
		perspective = rules.White
	}
	board, err := render.BoardHTML(v.FEN, perspective)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data.GameID = v.Game.ID
	data.Board = board
	data.CanMove = v.CanMove(userID)
	data.Perspective = perspective
	switch {
	case v.Game.Complete():
		data.StatusLine = s.Messages.Text("page.game.finished", map[string]string{
			"Winner": v.Game.Winner, "Outcome": v.Game.Outcome,
		})
	case data.CanMove:
		data.StatusLine = s.Messages.Text("page.game.your_turn", nil)
	default:
		data.StatusLine = s.Messages.Text("page.game.waiting", map[string]string{"Turn": string(v.Turn)})
	}
	s.renderPage(w, r, http.StatusOK, "game", data)
}
