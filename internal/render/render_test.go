package render

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/park285/Cheese-Web/internal/rules"
)

func TestBoardHTMLWhitePerspective(t *testing.T) {
	html, err := BoardHTML(rules.StartFEN, rules.White)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(html)
	if !strings.HasPrefix(s, `<table id="chessboard" class="chess-board"><tr><td id="a8" class="chess-square-light chess-piece-r">♜</td>`) {
		t.Fatalf("unexpected top-left: %.120s", s)
	}
	if got := strings.Count(s, "<td "); got != 64 {
		t.Fatalf("cells=%d", got)
	}
	if !strings.Contains(s, `<td id="e1" class="chess-square-dark chess-piece-K">♔</td>`) {
		t.Fatalf("white king missing")
	}
	if !strings.Contains(s, `<td id="e4" class="chess-square-light"></td>`) {
		t.Fatalf("empty e4 wrong")
	}
	if !strings.HasSuffix(s, `<td id="h1" class="chess-square-light chess-piece-R">♖</td></tr></table>`) {
		t.Fatalf("unexpected bottom-right")
	}
}

func TestBoardHTMLBlackPerspective(t *testing.T) {
	html, err := BoardHTML(rules.StartFEN, rules.Black)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(html)
	if !strings.HasPrefix(s, `<table id="chessboard" class="chess-board"><tr><td id="h1" `) {
		t.Fatalf("black view should start at h1: %.80s", s)
	}
	if !strings.HasSuffix(s, `<td id="a8" class="chess-square-light chess-piece-r">♜</td></tr></table>`) {
		t.Fatalf("black view should end at a8")
	}
}

func TestBoardHTMLRejectsBadFEN(t *testing.T) {
	if _, err := BoardHTML("nonsense", rules.White); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPerspective(t *testing.T) {
	blackToMove := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	cases := []struct {
		pinned, fen string
		want        rules.Color
	}{
		{"", rules.StartFEN, rules.White},
		{"", blackToMove, rules.Black},
		{"white", blackToMove, rules.White},
		{"BLACK", rules.StartFEN, rules.Black},
		{"purple", blackToMove, rules.Black},
	}
	for _, tc := range cases {
		if got := Perspective(tc.pinned, tc.fen); got != tc.want {
			t.Fatalf("Perspective(%q)=%q want %q", tc.pinned, got, tc.want)
		}
	}
}

func TestBoardPNG(t *testing.T) {
	data, err := BoardPNG(context.Background(), rules.StartFEN, rules.Black, PNGOptions{LastMove: "e2e4"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != boardSize+2*margin || b.Dy() != boardSize+2*margin {
		t.Fatalf("size=%v", b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BoardPNG(ctx, rules.StartFEN, rules.White, PNGOptions{}); err == nil {
		t.Fatalf("cancelled context should fail")
	}
}
