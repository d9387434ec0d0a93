package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/park285/Cheese-Web/internal/store"
)

func serveWith(s *Sessions, cookie *http.Cookie) *store.User {
	var seen *store.User
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func issuedCookie(t *testing.T, s *Sessions, email string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := s.Issue(rec, email); err != nil {
		t.Fatalf("issue: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestSessionRoundTripCreatesUserOnce(t *testing.T) {
	repo := store.NewMemory()
	s := NewSessions("test-secret", time.Hour, repo, false)
	cookie := issuedCookie(t, s, "new@example.com")
	if !cookie.HttpOnly || cookie.MaxAge != 3600 {
		t.Fatalf("unexpected cookie %+v", cookie)
	}

	first := serveWith(s, cookie)
	if first == nil || first.Email != "new@example.com" {
		t.Fatalf("user not resolved: %+v", first)
	}
	second := serveWith(s, cookie)
	if second == nil || second.ID != first.ID {
		t.Fatalf("user recreated: %+v vs %+v", second, first)
	}
}

func TestInvalidSessionsAreAnonymous(t *testing.T) {
	repo := store.NewMemory()
	s := NewSessions("test-secret", time.Hour, repo, false)

	if u := serveWith(s, nil); u != nil {
		t.Fatalf("no cookie resolved %+v", u)
	}
	if u := serveWith(s, &http.Cookie{Name: CookieName, Value: "garbage"}); u != nil {
		t.Fatalf("garbage token resolved %+v", u)
	}
	other := NewSessions("other-secret", time.Hour, repo, false)
	if u := serveWith(s, issuedCookie(t, other, "x@example.com")); u != nil {
		t.Fatalf("foreign signature accepted %+v", u)
	}
	expired := NewSessions("test-secret", -time.Hour, repo, false)
	expired.ttl = -time.Minute
	token, err := expired.Token("late@example.com")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if u := serveWith(s, &http.Cookie{Name: CookieName, Value: token}); u != nil {
		t.Fatalf("expired token accepted %+v", u)
	}
}

func TestClearExpiresCookie(t *testing.T) {
	s := NewSessions("k", time.Hour, store.NewMemory(), true)
	rec := httptest.NewRecorder()
	s.Clear(rec)
	c := rec.Result().Cookies()[0]
	if c.Name != CookieName || c.MaxAge >= 0 || !c.Secure {
		t.Fatalf("unexpected cookie %+v", c)
	}
}

func TestResolveExistingUser(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	u, _ := repo.CreateUser(ctx, "a@example.com")
	got, err := NewSessions("k", time.Hour, repo, false).Resolve(ctx, "a@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("got %+v err=%v", got, err)
	}
	st, err := NewState()
	if err != nil || len(st) != 32 {
		t.Fatalf("state=%q err=%v", st, err)
	}
}
