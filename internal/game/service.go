// Package game runs the move submission pipeline and game lifecycle.
package game

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/park285/Cheese-Web/internal/apperr"
	"github.com/park285/Cheese-Web/internal/obslog"
	"github.com/park285/Cheese-Web/internal/rules"
	"github.com/park285/Cheese-Web/internal/store"
	"go.uber.org/zap"
)

// Broadcaster publishes a game's new position to its live viewers.
type Broadcaster interface {
	BroadcastToGame(gameID, fen string) int
}

type Service struct {
	repo  store.Repository
	rules rules.Engine
	bcast Broadcaster
}

func NewService(repo store.Repository, engine rules.Engine, bcast Broadcaster) *Service {
	return &Service{repo: repo, rules: engine, bcast: bcast}
}

// MoveResult is returned to the submitter after the move is committed.
type MoveResult struct {
	FEN        string
	GameOver   bool
	Winner     string
	Outcome    string
	MoveNumber int
}

// SubmitMove validates and records uci for gameID, or resigns for the side to
// move when resign is set. Viewers are notified only after the commit.
func (s *Service) SubmitMove(ctx context.Context, gameID, uci string, resign bool) (*MoveResult, error) {
	g, err := s.repo.GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Complete() {
		return nil, apperr.New(apperr.InvalidInput, "Game is already complete")
	}

	fen, err := s.repo.CurrentFEN(ctx, gameID, rules.StartFEN)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.MoveCount(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if resign {
		return s.resign(ctx, gameID, fen, count)
	}

	res, err := s.rules.ValidateAndApply(fen, uci)
	if err != nil {
		obslog.L().Debug("game_move_rejected",
			zap.String("game_id", gameID),
			zap.String("uci", uci),
			zap.Error(err),
		)
		return nil, err
	}

	out := &MoveResult{FEN: res.NewFEN, MoveNumber: count + 1}
	err = s.repo.WithTx(ctx, func(q store.Queries) error {
		if err := ensureUnchanged(ctx, q, gameID, count); err != nil {
			return err
		}
		if _, err := q.RecordMove(ctx, gameID, count+1, uci, res.NewFEN); err != nil {
			return err
		}
		if res.Terminal != nil {
			out.GameOver = true
			out.Winner = string(res.Terminal.Winner)
			out.Outcome = res.Terminal.Outcome
			return q.CompleteGame(ctx, gameID, out.Winner, out.Outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	viewers := s.bcast.BroadcastToGame(gameID, res.NewFEN)
	obslog.L().Info("game_move",
		zap.String("game_id", gameID),
		zap.Int("move_number", out.MoveNumber),
		zap.String("uci", uci),
		zap.String("san", res.SAN),
		zap.Bool("game_over", out.GameOver),
		zap.Int("viewers", viewers),
	)
	return out, nil
}

func (s *Service) resign(ctx context.Context, gameID, fen string, count int) (*MoveResult, error) {
	turn, err := s.rules.Turn(fen)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "stored position is unreadable", err)
	}
	out := &MoveResult{
		FEN:        fen,
		GameOver:   true,
		Winner:     string(turn.Opposite()),
		Outcome:    rules.OutcomeResignation,
		MoveNumber: count,
	}
	err = s.repo.WithTx(ctx, func(q store.Queries) error {
		if err := ensureUnchanged(ctx, q, gameID, count); err != nil {
			return err
		}
		return q.CompleteGame(ctx, gameID, out.Winner, out.Outcome)
	})
	if err != nil {
		return nil, err
	}
	s.bcast.BroadcastToGame(gameID, fen)
	obslog.L().Info("game_resign",
		zap.String("game_id", gameID),
		zap.String("resigned", string(turn)),
		zap.String("winner", out.Winner),
	)
	return out, nil
}

// ensureUnchanged locks the game row, then fails when another submission
// landed after the position was read.
func ensureUnchanged(ctx context.Context, q store.Queries, gameID string, count int) error {
	g, err := q.LockGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Complete() {
		return apperr.New(apperr.InvalidInput, "Game is already complete")
	}
	n, err := q.MoveCount(ctx, gameID)
	if err != nil {
		return err
	}
	if n != count {
		return apperr.New(apperr.Conflict, "Game was updated by another move, reload and retry")
	}
	return nil
}

// PlayAs is the seat a creator asks for.
type PlayAs string

const (
	PlayWhite  PlayAs = "white"
	PlayBlack  PlayAs = "black"
	PlayRandom PlayAs = "random"
)

func ParsePlayAs(raw string) (PlayAs, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "white", "w":
		return PlayWhite, nil
	case "black", "b":
		return PlayBlack, nil
	case "random":
		return PlayRandom, nil
	default:
		return "", apperr.Newf(apperr.InvalidInput, "play_as must be white, black or random, got %q", raw)
	}
}

// CreateGame seats userID on the requested side and leaves the other seat open.
func (s *Service) CreateGame(ctx context.Context, userID string, playAs PlayAs) (*store.Game, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.New(apperr.Unauthorized, "Login required")
	}
	side := playAs
	if side == PlayRandom {
		side = PlayWhite
		if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 1 {
			side = PlayBlack
		}
	}
	ng := store.NewGame{WhitePlayerID: userID}
	if side == PlayBlack {
		ng = store.NewGame{BlackPlayerID: userID}
	}
	g, err := s.repo.CreateGame(ctx, ng)
	if err != nil {
		return nil, err
	}
	obslog.L().Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("side", string(side)),
	)
	return g, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*store.Game, error) {
	return s.repo.GamesForUser(ctx, userID)
}
