package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/engine"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/internal/rules"
	"github.com/park285/Cheese-Web/pkg/chessdto"
	"go.uber.org/zap"
)

func (s *server) analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fen := strings.TrimSpace(q.Get("fen"))
	if !s.Rules.ValidateFEN(fen) {
		s.writeDetail(w, http.StatusBadRequest, s.Messages.Text("errors.invalid_fen", nil))
		return
	}

	depth := engine.DefaultDepth
	if raw := strings.TrimSpace(q.Get("depth")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < engine.MinDepth || n > engine.MaxDepth {
			s.writeDetail(w, http.StatusBadRequest, s.Messages.Text("errors.depth_range",
				map[string]int{"Min": engine.MinDepth, "Max": engine.MaxDepth}))
			return
		}
		depth = n
	}

	res, err := s.Analyzer.Analyze(r.Context(), fen, depth)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidFEN) || apperr.KindOf(err) == apperr.InvalidInput {
			s.writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		obslog.L().Warn("engine_analyze_failed", zap.String("fen", fen), zap.Int("depth", depth), zap.Error(err))
		s.writeDetail(w, http.StatusInternalServerError,
			s.Messages.Text("errors.engine_failed", map[string]string{"Err": err.Error()}))
		return
	}
	writeJSON(w, http.StatusOK, chessdto.AnalyzeResponse{
		Score:    res.Score,
		BestMove: res.BestMove,
		Depth:    res.Depth,
	})
}
