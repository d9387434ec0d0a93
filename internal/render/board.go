// Package render draws boards as HTML fragments and PNG images.
package render

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/Cheese-Web/internal/rules"
)

// squareGrid lists squares in display order, top row first, for perspective.
// Black sees rank 1 at the top and file h on the left.
func squareGrid(perspective rules.Color) [8][8]nchess.Square {
	var grid [8][8]nchess.Square
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			file, rank := col, 7-row
			if perspective == rules.Black {
				file, rank = 7-col, row
			}
			grid[row][col] = nchess.NewSquare(nchess.File(file), nchess.Rank(rank))
		}
	}
	return grid
}

func loadBoard(fen string) (map[nchess.Square]nchess.Piece, nchess.Color, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, nchess.NoColor, fmt.Errorf("%w: %v", rules.ErrInvalidFEN, err)
	}
	pos := nchess.NewGame(opt).Position()
	return pos.Board().SquareMap(), pos.Turn(), nil
}

// Perspective resolves the viewing side: the pinned one if valid, otherwise
// the side to move in fen.
func Perspective(pinned string, fen string) rules.Color {
	switch rules.Color(strings.ToLower(strings.TrimSpace(pinned))) {
	case rules.White:
		return rules.White
	case rules.Black:
		return rules.Black
	}
	_, turn, err := loadBoard(fen)
	if err == nil && turn == nchess.Black {
		return rules.Black
	}
	return rules.White
}

func isLight(sq nchess.Square) bool {
	return (int(sq.File())+int(sq.Rank()))%2 == 1
}

// pieceSymbol is the FEN letter: upper case for white.
func pieceSymbol(p nchess.Piece) string {
	var s string
	switch p.Type() {
	case nchess.King:
		s = "k"
	case nchess.Queen:
		s = "q"
	case nchess.Rook:
		s = "r"
	case nchess.Bishop:
		s = "b"
	case nchess.Knight:
		s = "n"
	case nchess.Pawn:
		s = "p"
	}
	if p.Color() == nchess.White {
		return strings.ToUpper(s)
	}
	return s
}

var glyphs = map[string]string{
	"K": "♔", "Q": "♕", "R": "♖", "B": "♗", "N": "♘", "P": "♙",
	"k": "♚", "q": "♛", "r": "♜", "b": "♝", "n": "♞", "p": "♟",
}
