package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/auth"
	"github.com/park285/Cheese-Web/internal/game"
	"github.com/park285/Cheese-Web/internal/render"
	"github.com/park285/Cheese-Web/pkg/chessdto"
)

func (s *server) createGame(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())

	var raw string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req chessdto.CreateGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.InvalidInput, "Invalid JSON body", err))
			return
		}
		raw = req.PlayAs
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.InvalidInput, "Invalid form body", err))
			return
		}
		raw = r.PostForm.Get("play_as")
	}
	playAs, err := game.ParsePlayAs(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.Games.CreateGame(r.Context(), u.ID, playAs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/app/games/"+g.ID, http.StatusSeeOther)
}

func (s *server) move(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.InvalidInput, "Invalid form body", err))
		return
	}
	resign := formBool(r.PostForm.Get("resign"))
	_, present := r.PostForm["uciMove"]
	if !present && !resign {
		s.writeDetail(w, http.StatusBadRequest, s.Messages.Text("errors.uci_required", nil))
		return
	}

	if _, err := s.Games.SubmitMove(r.Context(), chi.URLParam(r, "id"), r.PostForm.Get("uciMove"), resign); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// formBool accepts the usual truthy spellings of an HTML form field.
func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes", "y":
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

func (s *server) gameJSON(w http.ResponseWriter, r *http.Request) {
	v, err := s.Games.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameViewDTO(v))
}

func gameViewDTO(v *game.View) chessdto.GameView {
	out := chessdto.GameView{
		ID:            v.Game.ID,
		Status:        string(v.Game.Status),
		WhitePlayerID: v.Game.WhitePlayerID,
		BlackPlayerID: v.Game.BlackPlayerID,
		Winner:        v.Game.Winner,
		Outcome:       v.Game.Outcome,
		FEN:           v.FEN,
		Turn:          string(v.Turn),
		InCheck:       v.InCheck,
		Moves:         make([]chessdto.MoveEntry, 0, len(v.Moves)),
		CreatedAt:     v.Game.CreatedAt,
		UpdatedAt:     v.Game.UpdatedAt,
	}
	for _, m := range v.Moves {
		out.Moves = append(out.Moves, chessdto.MoveEntry{
			MoveNumber: m.MoveNumber,
			UCI:        m.UCI,
			FEN:        m.FEN,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}

func (s *server) boardPNG(w http.ResponseWriter, r *http.Request) {
	v, err := s.Games.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var opts render.PNGOptions
	if n := len(v.Moves); n > 0 {
		opts.LastMove = v.Moves[n-1].UCI
	}
	img, err := render.BoardPNG(r.Context(), v.FEN, render.Perspective(r.URL.Query().Get("perspective"), v.FEN), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
