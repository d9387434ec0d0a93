package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/park285/Cheese-Web/internal/engine/uci"
	"github.com/park285/Cheese-Web/internal/rules"
)

// mateCP is the centipawn value used for forced mates before compression.
const mateCP = 10000

// Stockfish analyzes through a pool of UCI engine processes.
type Stockfish struct {
	pool  *uci.Pool
	rules rules.Engine
}

func NewStockfish(cfg uci.PoolConfig, engine rules.Engine) (*Stockfish, error) {
	pool, err := uci.NewPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("init stockfish pool: %w", err)
	}
	return &Stockfish{pool: pool, rules: engine}, nil
}

func (s *Stockfish) Analyze(ctx context.Context, fen string, depth int) (Analysis, error) {
	turn, err := s.rules.Turn(fen)
	if err != nil {
		return Analysis{}, err
	}
	session, err := s.pool.Acquire(ctx)
	if err != nil {
		return Analysis{}, fmt.Errorf("acquire engine: %w", err)
	}
	resp, err := session.Search(ctx, fen, uci.Limits{Depth: depth})
	s.pool.Release(session, err)
	if err != nil {
		return Analysis{}, err
	}
	return fromSearch(resp, turn, depth), nil
}

// fromSearch converts a side-to-move evaluation to white's point of view.
func fromSearch(resp uci.SearchResponse, turn rules.Color, depth int) Analysis {
	var cp int
	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		cp = c.EvalCP
		if c.Mate {
			cp = mateCP
			if c.EvalCP < 0 {
				cp = -mateCP
			}
		}
	}
	if turn == rules.Black {
		cp = -cp
	}
	return Analysis{
		Score:    round3(clampScore(math.Tanh(float64(cp) / 1000))),
		BestMove: resp.BestMove,
		Depth:    depth,
	}
}

func (s *Stockfish) Close() error { return s.pool.Close() }
