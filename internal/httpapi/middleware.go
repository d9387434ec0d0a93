package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/obslog"
	"go.uber.org/zap"
)

// requestLogger writes one http_request entry per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				obslog.L().Warn("http_request", fields...)
				return
			}
			obslog.L().Info("http_request", fields...)
		}()

		next.ServeHTTP(ww, r)
	})
}

// requirePageUser sends anonymous visitors to the login page.
func (s *server) requirePageUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFrom(r.Context()) == nil {
			http.Redirect(w, r, "/app/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
