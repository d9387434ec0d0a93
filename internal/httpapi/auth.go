package httpapi

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/obslog"
	"go.uber.org/zap"
)

const stateCookieMaxAge = 600

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if s.Identity == nil {
		s.writeDetail(w, http.StatusNotFound, s.Messages.Text("auth.provider_disabled", nil))
		return
	}
	state, err := auth.NewState()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(s.Config.HostName, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.Identity.AuthorizeURL(state), http.StatusFound)
}

func (s *server) callback(w http.ResponseWriter, r *http.Request) {
	if s.Identity == nil {
		s.writeDetail(w, http.StatusNotFound, s.Messages.Text("auth.provider_disabled", nil))
		return
	}
	q := r.URL.Query()
	c, err := r.Cookie(auth.StateCookieName)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		s.writeDetail(w, http.StatusBadRequest, s.Messages.Text("auth.invalid_state", nil))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: auth.StateCookieName, Value: "", Path: "/api/auth", MaxAge: -1})

	email, err := s.Identity.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		obslog.L().Warn("oauth_exchange_failed", zap.Error(err))
		s.writeDetail(w, http.StatusUnauthorized, s.Messages.Text("auth.provider_failed", nil))
		return
	}
	if err := s.Sessions.Issue(w, email); err != nil {
		s.writeError(w, r, err)
		return
	}
	obslog.L().Info("login", zap.String("email", email), zap.String("via", "oauth"))
	http.Redirect(w, r, "/app/dashboard", http.StatusFound)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// devLogin signs in any email without a provider. Only served in dev mode.
func (s *server) devLogin(w http.ResponseWriter, r *http.Request) {
	if !s.Config.DevMode {
		s.writeDetail(w, http.StatusNotFound, s.Messages.Text("auth.dev_disabled", nil))
		return
	}
	if err := r.ParseForm(); err != nil {
		s.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("email")))
	if email == "" || !strings.Contains(email, "@") {
		s.writeDetail(w, http.StatusBadRequest, s.Messages.Text("auth.email_required", nil))
		return
	}
	if err := s.Sessions.Issue(w, email); err != nil {
		s.writeError(w, r, err)
		return
	}
	obslog.L().Info("login", zap.String("email", email), zap.String("via", "dev"))
	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

// whoami returns an HTML fragment for the page header.
func (s *server) whoami(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	u := auth.UserFrom(r.Context())
	if u == nil {
		_, _ = w.Write([]byte(`<span class="text-muted">` +
			template.HTMLEscapeString(s.Messages.Text("auth.not_logged_in", nil)) + `</span>`))
		return
	}
	_, _ = w.Write([]byte(`<span class="whoami">` +
		template.HTMLEscapeString(s.Messages.Text("auth.logged_in", map[string]string{"Email": u.Email})) + `</span>`))
}
