package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/pkg/chessdto"
	"go.uber.org/zap"
)

var errNotFound = apperr.New(apperr.NotFound, "Not Found")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, chessdto.ErrorResponse{Detail: detail})
}

// writeError maps err to a response. Under /api every failure is JSON;
// elsewhere a 404 renders the not-found page. Internal errors are logged
// and never leak their text.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	detail := apperr.Message(err)

	if status >= http.StatusInternalServerError {
		obslog.L().Error("http_error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		detail = s.Messages.Text("errors.internal", nil)
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	if status == http.StatusNotFound && !isAPI(r) {
		s.renderNotFound(w, r)
		return
	}
	s.writeDetail(w, status, detail)
}

func isAPI(r *http.Request) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}
