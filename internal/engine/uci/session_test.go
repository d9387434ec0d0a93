package uci

import (
	"context"
	"testing"
)

func TestParseInfo(t *testing.T) {
	mv, cand, ok := parseInfo("info depth 12 seldepth 18 multipv 2 score cp -35 nodes 1000 pv e7e5 g1f3 b8c6")
	if !ok || mv != 2 || cand.Move != "e7e5" || cand.EvalCP != -35 || cand.Mate || len(cand.Principal) != 3 {
		t.Fatalf("unexpected parse: %d %+v %v", mv, cand, ok)
	}
	_, cand, ok = parseInfo("info depth 5 score mate -2 pv h4e1")
	if !ok || !cand.Mate || cand.EvalCP != -MateScore {
		t.Fatalf("mate parse: %+v", cand)
	}
	if _, _, ok := parseInfo("info string NNUE evaluation enabled"); ok {
		t.Fatalf("info without pv accepted")
	}
}

func TestBuildCommands(t *testing.T) {
	if got := buildPositionCommand(""); got != "position startpos\n" {
		t.Fatalf("got %q", got)
	}
	if got := buildPositionCommand("8/8/8/8/8/8/8/K6k w - - 0 1"); got != "position fen 8/8/8/8/8/8/8/K6k w - - 0 1\n" {
		t.Fatalf("got %q", got)
	}
	tokens, err := buildGoTokens(Limits{Depth: 10})
	if err != nil || len(tokens) != 3 || tokens[2] != "10" {
		t.Fatalf("tokens=%v err=%v", tokens, err)
	}
	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("empty limits accepted")
	}
}

func TestCollapseCandidatesOrdered(t *testing.T) {
	got := collapseCandidates(map[int]Candidate{3: {Move: "c"}, 1: {Move: "a"}, 2: {Move: "b"}})
	if len(got) != 3 || got[0].Move != "a" || got[2].Move != "c" {
		t.Fatalf("got %+v", got)
	}
}

func TestNewPoolRequiresBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{}); err == nil {
		t.Fatalf("empty path accepted")
	}
	if _, err := NewPool(PoolConfig{BinaryPath: "/nonexistent/stockfish"}); err == nil {
		t.Fatalf("missing binary accepted")
	}
	if _, err := NewSession(context.Background(), "/nonexistent/stockfish", Options{}); err == nil {
		t.Fatalf("session on missing binary")
	}
}
