package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/park285/Cheese-Web/internal/rules"
)

// Dummy derives a stable evaluation from the FEN text. It stands in for a
// real engine in development and tests.
type Dummy struct {
	rules    rules.Engine
	minDelay time.Duration
	maxDelay time.Duration
}

func NewDummy(engine rules.Engine, minDelay, maxDelay time.Duration) *Dummy {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Dummy{rules: engine, minDelay: minDelay, maxDelay: maxDelay}
}

func fenHash(fen string) uint32 {
	sum := md5.Sum([]byte(fen))
	h, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 32)
	return uint32(h)
}

func (d *Dummy) delay(h uint32, depth int) time.Duration {
	span := float64(d.maxDelay - d.minDelay)
	base := float64(d.minDelay) + float64(h%1000)/1000*span
	return time.Duration(base * (1 + float64(depth)*0.02))
}

func (d *Dummy) Analyze(ctx context.Context, fen string, depth int) (Analysis, error) {
	if !d.rules.ValidateFEN(fen) {
		return Analysis{}, fmt.Errorf("%w: %q", rules.ErrInvalidFEN, fen)
	}
	h := fenHash(fen)

	if wait := d.delay(h, depth); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Analysis{}, ctx.Err()
		case <-timer.C:
		}
	}

	over, term, err := d.rules.IsGameOver(fen)
	if err != nil {
		return Analysis{}, err
	}
	if over {
		switch term.Winner {
		case rules.White:
			return Analysis{Score: 1, Depth: depth}, nil
		case rules.Black:
			return Analysis{Score: -1, Depth: depth}, nil
		default:
			return Analysis{Score: 0, Depth: depth}, nil
		}
	}

	score := (float64(h)/float64(0xFFFFFFFF)*2 - 1) * 0.6
	moves, err := d.rules.LegalMoves(fen)
	if err != nil {
		return Analysis{}, err
	}
	if len(moves) == 0 {
		return Analysis{Score: score, Depth: depth}, nil
	}
	rng := rand.New(rand.NewSource(int64(h)))
	return Analysis{
		Score:    round3(score),
		BestMove: moves[rng.Intn(len(moves))],
		Depth:    depth,
	}, nil
}

func (d *Dummy) Close() error { return nil }
