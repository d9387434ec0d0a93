package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/Cheese-Web/internal/apperr"
)

// Any piece letter parses as a promotion; p and k are then rejected as illegal.
var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][pnbrqk]?$`)

// nullMove parses as UCI but is never legal.
const nullMove = "0000"

// Chess implements Engine on corentings/chess.
type Chess struct{}

func NewChess() *Chess { return &Chess{} }

var _ Engine = (*Chess)(nil)

func loadGame(fen string) (*nchess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, ErrInvalidFEN
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

func (c *Chess) ValidateAndApply(fen, uci string) (Result, error) {
	game, err := loadGame(fen)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.InvalidInput, "Invalid FEN string", err)
	}
	if uci == nullMove {
		return Result{}, apperr.Newf(apperr.InvalidInput, "Illegal move: %s", uci)
	}
	if !uciPattern.MatchString(uci) {
		return Result{}, apperr.Newf(apperr.InvalidInput, "Invalid UCI format: %s", uci)
	}

	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return Result{}, apperr.Newf(apperr.InvalidInput, "Illegal move: %s", uci)
	}
	if err := game.Move(mv, nil); err != nil {
		return Result{}, apperr.Newf(apperr.InvalidInput, "Illegal move: %s", uci)
	}

	res := Result{
		NewFEN: game.FEN(),
		UCI:    uci,
		SAN:    nchess.AlgebraicNotation{}.Encode(pos, mv),
	}
	res.Terminal = terminalOf(game)
	return res, nil
}

func (c *Chess) Turn(fen string) (Color, error) {
	game, err := loadGame(fen)
	if err != nil {
		return "", err
	}
	return colorOf(game.Position().Turn()), nil
}

func (c *Chess) ValidateFEN(fen string) bool {
	_, err := loadGame(fen)
	return err == nil
}

// LegalMoves returns the legal moves in UCI, sorted.
func (c *Chess) LegalMoves(fen string) ([]string, error) {
	game, err := loadGame(fen)
	if err != nil {
		return nil, err
	}
	moves := game.ValidMoves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, strings.ToLower(mv.String()))
	}
	sort.Strings(out)
	return out, nil
}

func (c *Chess) IsCheck(fen string) (bool, error) {
	game, err := loadGame(fen)
	if err != nil {
		return false, err
	}
	pos := game.Position()
	return kingAttacked(pos.Board().SquareMap(), pos.Turn()), nil
}

func (c *Chess) IsGameOver(fen string) (bool, *Terminal, error) {
	game, err := loadGame(fen)
	if err != nil {
		return false, nil, err
	}
	t := terminalOf(game)
	return t != nil, t, nil
}

// terminalOf reports the automatic game end, if any. Loading a FEN and making
// a move both evaluate mate and stalemate. Claimable draws (threefold, fifty
// moves) are only reported if the library already applied them.
func terminalOf(game *nchess.Game) *Terminal {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return &Terminal{Winner: White, Outcome: outcomeName(game.Method())}
	case nchess.BlackWon:
		return &Terminal{Winner: Black, Outcome: outcomeName(game.Method())}
	case nchess.Draw:
		return &Terminal{Winner: Draw, Outcome: outcomeName(game.Method())}
	}
	return nil
}

func outcomeName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return OutcomeCheckmate
	case nchess.Stalemate:
		return OutcomeStalemate
	case nchess.InsufficientMaterial:
		return OutcomeInsufficientMaterial
	case nchess.SeventyFiveMoveRule:
		return OutcomeSeventyFiveMoves
	case nchess.FivefoldRepetition:
		return OutcomeFivefoldRepetition
	case nchess.FiftyMoveRule:
		return OutcomeFiftyMoves
	case nchess.ThreefoldRepetition:
		return OutcomeThreefoldRepetition
	case nchess.Resignation:
		return OutcomeResignation
	default:
		return strings.ToLower(m.String())
	}
}

func colorOf(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
