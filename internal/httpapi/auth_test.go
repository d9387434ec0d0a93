package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/identity"
)

func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "ok" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "oauth@example.com"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuthLoginFlow(t *testing.T) {
	provider := fakeProvider(t)
	env := newTestEnvWith(t, nil, func(d *Deps) {
		d.Identity = identity.NewClient(identity.Config{
			AuthorizeURL: provider.URL + "/authorize",
			TokenURL:     provider.URL + "/token",
			UserInfoURL:  provider.URL + "/userinfo",
			ClientID:     "cheese",
			RedirectURL:  "http://localhost:8000/api/auth/callback",
		})
	})

	resp := env.do(t, http.MethodGet, "/api/auth/login", nil, nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login status=%d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || !strings.HasPrefix(loc.String(), provider.URL+"/authorize") {
		t.Fatalf("location=%q", resp.Header.Get("Location"))
	}
	var state *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.StateCookieName {
			state = c
		}
	}
	if state == nil || state.Value != loc.Query().Get("state") {
		t.Fatalf("state cookie does not match redirect")
	}

	// mismatched state is rejected
	resp = env.do(t, http.MethodGet, "/api/auth/callback?code=ok&state=forged", nil, state)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("forged state status=%d", resp.StatusCode)
	}

	q := url.Values{"code": {"ok"}, "state": {state.Value}}
	resp = env.do(t, http.MethodGet, "/api/auth/callback?"+q.Encode(), nil, state)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/app/dashboard" {
		t.Fatalf("callback status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatalf("no session cookie after callback")
	}
	resp = env.do(t, http.MethodGet, "/api/auth/whoami", nil, session)
	if body := readBody(t, resp); !strings.Contains(body, "oauth@example.com") {
		t.Fatalf("whoami=%q", body)
	}

	q.Set("code", "bad")
	resp = env.do(t, http.MethodGet, "/api/auth/callback?"+q.Encode(), nil, state)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("rejected code status=%d", resp.StatusCode)
	}
}
