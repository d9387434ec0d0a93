package game

import (
	"context"

	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/rules"
	"github.com/park285/Cheese-Web/internal/store"
)

// View is a game joined with its current position.
type View struct {
	Game    *store.Game
	FEN     string
	Turn    rules.Color
	InCheck bool
	Moves   []store.Move
}

func (s *Service) View(ctx context.Context, gameID string) (*View, error) {
	g, err := s.repo.GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	moves, err := s.repo.Moves(ctx, gameID)
	if err != nil {
		return nil, err
	}
	fen := rules.StartFEN
	if len(moves) > 0 {
		fen = moves[len(moves)-1].FEN
	}
	turn, err := s.rules.Turn(fen)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "stored position is unreadable", err)
	}
	check, _ := s.rules.IsCheck(fen)
	return &View{Game: g, FEN: fen, Turn: turn, InCheck: check, Moves: moves}, nil
}

// CanMove reports whether userID holds the seat of the side to move in an
// unfinished game.
func (v *View) CanMove(userID string) bool {
	if v == nil || v.Game == nil || userID == "" || v.Game.Complete() {
		return false
	}
	switch v.Turn {
	case rules.White:
		return v.Game.WhitePlayerID == userID
	case rules.Black:
		return v.Game.BlackPlayerID == userID
	}
	return false
}

// SideOf returns the color userID plays, or "" when not seated.
func (v *View) SideOf(userID string) rules.Color {
	switch {
	case v == nil || v.Game == nil || userID == "":
		return ""
	case v.Game.WhitePlayerID == userID:
		return rules.White
	case v.Game.BlackPlayerID == userID:
		return rules.Black
	}
	return ""
}
