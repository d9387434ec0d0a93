// Package rules adapts a chess rules library to the game service.
package rules

import "errors"

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Color is the side to move or the winning side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
	Draw  Color = "draw"
)

// Opposite returns the other side; Draw has no opposite.
func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return c
	}
}

// Outcome reasons recorded on completed games.
const (
	OutcomeCheckmate            = "checkmate"
	OutcomeStalemate            = "stalemate"
	OutcomeInsufficientMaterial = "insufficient_material"
	OutcomeSeventyFiveMoves     = "seventy_five_moves"
	OutcomeFivefoldRepetition   = "fivefold_repetition"
	OutcomeFiftyMoves           = "fifty_moves"
	OutcomeThreefoldRepetition  = "threefold_repetition"
	OutcomeResignation          = "resignation"
)

// Terminal describes a finished game.
type Terminal struct {
	Winner  Color
	Outcome string
}

// Result is a successfully applied move.
type Result struct {
	NewFEN   string
	UCI      string
	SAN      string
	Terminal *Terminal
}

var (
	ErrInvalidFEN = errors.New("invalid fen")
)

// Engine validates and applies moves. The game service depends only on this
// contract so another rules backend can be swapped in.
type Engine interface {
	// ValidateAndApply returns an *apperr.Error of kind InvalidInput for
	// malformed or illegal moves.
	ValidateAndApply(fen, uci string) (Result, error)
	Turn(fen string) (Color, error)
	ValidateFEN(fen string) bool
	LegalMoves(fen string) ([]string, error)
	IsCheck(fen string) (bool, error)
	IsGameOver(fen string) (bool, *Terminal, error)
}
