// Package engine evaluates chess positions.
package engine

import (
	"context"
	"math"
)

// Analysis is an evaluation from white's point of view, Score in [-1, 1].
type Analysis struct {
	Score    float64 `json:"score"`
	BestMove string  `json:"best_move"`
	Depth    int     `json:"depth"`
}

type Analyzer interface {
	Analyze(ctx context.Context, fen string, depth int) (Analysis, error)
	Close() error
}

const (
	DefaultDepth = 10
	MinDepth     = 1
	MaxDepth     = 30
)

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clampScore(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
