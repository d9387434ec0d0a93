package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/config"
	"github.com/park285/Cheese-Web/internal/store"
)

func TestDashboardRequiresLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/app/dashboard", "/app/games/new"} {
		resp := env.do(t, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/app/login" {
			t.Fatalf("%s: status=%d location=%q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestDashboardListsGames(t *testing.T) {
	env := newTestEnv(t, nil)
	u, cookie := env.login(t, "bob@example.com")
	mine := env.newGame(t, store.NewGame{WhitePlayerID: u.ID})
	other := env.newGame(t, store.NewGame{})

	resp := env.do(t, http.MethodGet, "/app/dashboard", nil, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, mine.ID) || strings.Contains(body, other.ID) {
		t.Fatalf("dashboard lists the wrong games")
	}
	if !strings.Contains(body, "bob@example.com") {
		t.Fatalf("header does not show the user")
	}
}

func TestLoginPageRedirectsWhenLoggedIn(t *testing.T) {
	env := newTestEnv(t, nil)
	_, cookie := env.login(t, "carol@example.com")

	resp := env.do(t, http.MethodGet, "/app/login", nil, cookie)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/app/dashboard" {
		t.Fatalf("status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = env.do(t, http.MethodGet, "/app/login", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous status=%d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, "/api/auth/dev-login") {
		t.Fatalf("dev login form missing in dev mode")
	}
}

func TestGamePageMoveForm(t *testing.T) {
	env := newTestEnv(t, nil)
	white, whiteCookie := env.login(t, "white@example.com")
	_, strangerCookie := env.login(t, "stranger@example.com")
	g := env.newGame(t, store.NewGame{WhitePlayerID: white.ID})

	resp := env.do(t, http.MethodGet, "/app/games/"+g.ID, nil, whiteCookie)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `id="move-form"`) {
		t.Fatalf("seated player to move should get the move form")
	}
	if !strings.Contains(body, `id="chessboard"`) {
		t.Fatalf("board missing")
	}

	for _, c := range []*http.Cookie{strangerCookie, nil} {
		resp = env.do(t, http.MethodGet, "/app/games/"+g.ID, nil, c)
		body = readBody(t, resp)
		if resp.StatusCode != http.StatusOK || strings.Contains(body, `id="move-form"`) {
			t.Fatalf("viewer without the seat got a move form")
		}
	}

	// after white moves it is black's turn and black's seat is empty
	env.do(t, http.MethodPost, "/api/games/"+g.ID+"/move", url.Values{"uciMove": {"e2e4"}}, nil)
	resp = env.do(t, http.MethodGet, "/app/games/"+g.ID, nil, whiteCookie)
	if body := readBody(t, resp); strings.Contains(body, `id="move-form"`) {
		t.Fatalf("move form shown out of turn")
	}
}

func TestWhoami(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/auth/whoami", nil, nil)
	if body := readBody(t, resp); !strings.Contains(body, "Not logged in") {
		t.Fatalf("anonymous whoami=%q", body)
	}

	_, cookie := env.login(t, "dave@example.com")
	resp = env.do(t, http.MethodGet, "/api/auth/whoami", nil, cookie)
	if body := readBody(t, resp); !strings.Contains(body, "dave@example.com") {
		t.Fatalf("whoami=%q", body)
	}

	resp = env.do(t, http.MethodGet, "/api/auth/whoami", nil, &http.Cookie{Name: auth.CookieName, Value: "not-a-jwt"})
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || !strings.Contains(body, "Not logged in") {
		t.Fatalf("invalid cookie: status=%d body=%q", resp.StatusCode, body)
	}
}

func TestDevLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/auth/dev-login", url.Values{"email": {"Eve@Example.com"}}, nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/app/dashboard" {
		t.Fatalf("status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("session cookie not issued: %+v", session)
	}

	resp = env.do(t, http.MethodGet, "/api/auth/whoami", nil, session)
	if body := readBody(t, resp); !strings.Contains(body, "eve@example.com") {
		t.Fatalf("whoami after dev login=%q", body)
	}

	resp = env.do(t, http.MethodPost, "/api/auth/logout", nil, session)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status=%d", resp.StatusCode)
	}
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not clear the session cookie")
	}
}

func TestDevLoginDisabledOutsideDevMode(t *testing.T) {
	env := newTestEnv(t, func(c *config.AppConfig) { c.DevMode = false })
	resp := env.do(t, http.MethodPost, "/api/auth/dev-login", url.Values{"email": {"x@example.com"}}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want 404", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/auth/login", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("oauth login without provider status=%d", resp.StatusCode)
	}
}
