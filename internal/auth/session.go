// Package auth issues and verifies login sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/internal/store"
	"go.uber.org/zap"
)

const (
	CookieName      = "session"
	StateCookieName = "oauth_state"

	payloadClaim = "pld"
)

// Users is the part of the repository sessions need.
type Users interface {
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateUser(ctx context.Context, email string) (*store.User, error)
}

type Sessions struct {
	ja     *jwtauth.JWTAuth
	users  Users
	ttl    time.Duration
	secure bool
}

// NewSessions signs session tokens with HS256 using secret.
func NewSessions(secret string, ttl time.Duration, users Users, secureCookies bool) *Sessions {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{
		ja:     jwtauth.New("HS256", []byte(secret), nil),
		users:  users,
		ttl:    ttl,
		secure: secureCookies,
	}
}

type ctxKey struct{}

// UserFrom returns the logged-in user stored by Middleware, or nil.
func UserFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(ctxKey{}).(*store.User)
	return u
}

func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func tokenFromSessionCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Middleware attaches the session user to the request context. A missing or
// invalid token leaves the request anonymous.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	resolve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			if !errors.Is(err, jwtauth.ErrNoTokenFound) {
				obslog.L().Debug("session_invalid", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		email := emailFromClaims(claims)
		if email == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := s.Resolve(r.Context(), email)
		if err != nil {
			obslog.L().Warn("session_user_resolve_failed", zap.String("email", email), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
	return jwtauth.Verify(s.ja, tokenFromSessionCookie, jwtauth.TokenFromHeader)(resolve)
}

func emailFromClaims(claims map[string]interface{}) string {
	pld, ok := claims[payloadClaim].(map[string]interface{})
	if !ok {
		return ""
	}
	email, _ := pld["email"].(string)
	return strings.TrimSpace(email)
}

// Resolve finds the user for email, creating it on first sight.
func (s *Sessions) Resolve(ctx context.Context, email string) (*store.User, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}
	u, err = s.users.CreateUser(ctx, email)
	if apperr.KindOf(err) == apperr.Conflict {
		// another request created it first
		return s.users.UserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	obslog.L().Info("user_create", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

// Token signs a session token for email.
func (s *Sessions) Token(email string) (string, error) {
	claims := map[string]interface{}{
		payloadClaim: map[string]interface{}{"email": email},
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, s.ttl)
	_, token, err := s.ja.Encode(claims)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "sign session", err)
	}
	return token, nil
}

// Issue sets the session cookie for email.
func (s *Sessions) Issue(w http.ResponseWriter, email string) error {
	token, err := s.Token(email)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// NewState returns a random OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequireUser rejects anonymous requests with 401. The failure is written by
// onMissing so callers control the response format.
func RequireUser(onMissing func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFrom(r.Context()) == nil {
				onMissing(w, r, apperr.New(apperr.Unauthorized, "Login required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
