package rules

import nchess "github.com/corentings/chess/v2"

type offset struct{ df, dr int }

var (
	knightJumps = []offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = []offset{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightRay = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalRay = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// kingAttacked reports whether side's king is attacked on the given board.
func kingAttacked(board map[nchess.Square]nchess.Piece, side nchess.Color) bool {
	var (
		king  nchess.Square
		found bool
	)
	for sq, p := range board {
		if p != nchess.NoPiece && p.Type() == nchess.King && p.Color() == side {
			king, found = sq, true
			break
		}
	}
	if !found {
		return false
	}
	return squareAttacked(board, int(king.File()), int(king.Rank()), otherColor(side))
}

func squareAttacked(board map[nchess.Square]nchess.Piece, f, r int, by nchess.Color) bool {
	at := func(f, r int) (nchess.Piece, bool) {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return nchess.NoPiece, false
		}
		return board[nchess.NewSquare(nchess.File(f), nchess.Rank(r))], true
	}
	is := func(p nchess.Piece, types ...nchess.PieceType) bool {
		if p == nchess.NoPiece || p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	// pawns attack toward the opponent
	dir := -1
	if by == nchess.Black {
		dir = 1
	}
	for _, df := range []int{-1, 1} {
		if p, ok := at(f+df, r+dir); ok && is(p, nchess.Pawn) {
			return true
		}
	}
	for _, o := range knightJumps {
		if p, ok := at(f+o.df, r+o.dr); ok && is(p, nchess.Knight) {
			return true
		}
	}
	for _, o := range kingSteps {
		if p, ok := at(f+o.df, r+o.dr); ok && is(p, nchess.King) {
			return true
		}
	}
	slide := func(rays []offset, types ...nchess.PieceType) bool {
		for _, o := range rays {
			for step := 1; step < 8; step++ {
				p, ok := at(f+o.df*step, r+o.dr*step)
				if !ok {
					break
				}
				if p == nchess.NoPiece {
					continue
				}
				if is(p, types...) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(straightRay, nchess.Rook, nchess.Queen) || slide(diagonalRay, nchess.Bishop, nchess.Queen)
}

func otherColor(c nchess.Color) nchess.Color {
	if c == nchess.White {
		return nchess.Black
	}
	return nchess.White
}
