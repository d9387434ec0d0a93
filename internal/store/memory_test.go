package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/Cheese-Web/internal/apperr"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func stepClock(m *Memory) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	m.st.now = func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u, err := m.CreateUser(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateUser(ctx, "a@example.com"); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("duplicate email: %v", err)
	}
	got, err := m.UserByEmail(ctx, "a@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("by email: %+v %v", got, err)
	}
	if _, err := m.UserByID(ctx, "missing"); !errors.Is(err, apperr.E(apperr.NotFound)) {
		t.Fatalf("missing user: %v", err)
	}
	if _, err := m.CreateUser(ctx, " a@example.com "); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("padded duplicate email: %v", err)
	}
}

func TestMemoryCompleteUnknownGame(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CompleteGame(ctx, "missing", "white", "resignation"); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("err=%v want NotFound", err)
	}
	if _, err := m.LockGame(ctx, "missing"); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("lock err=%v want NotFound", err)
	}
}

func TestMemoryMoveLedger(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	g, err := m.CreateGame(ctx, NewGame{})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if g.Status != StatusCreated {
		t.Fatalf("status=%s", g.Status)
	}
	fen, _ := m.CurrentFEN(ctx, g.ID, startFEN)
	if fen != startFEN {
		t.Fatalf("fresh game fen=%q", fen)
	}

	if _, err := m.RecordMove(ctx, g.ID, 1, "e2e4", "fen-1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := m.RecordMove(ctx, g.ID, 1, "d2d4", "fen-x"); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("duplicate move number: %v", err)
	}
	if _, err := m.RecordMove(ctx, g.ID, 2, "e7e5", "fen-1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.PositionCount() != 1 {
		t.Fatalf("positions=%d want 1 (shared fen)", m.PositionCount())
	}

	got, _ := m.GameByID(ctx, g.ID)
	if got.Status != StatusActive {
		t.Fatalf("status=%s want active", got.Status)
	}
	moves, _ := m.Moves(ctx, g.ID)
	for i, mv := range moves {
		if mv.MoveNumber != i+1 {
			t.Fatalf("ledger not contiguous: %+v", moves)
		}
	}

	if err := m.CompleteGame(ctx, g.ID, "draw", "stalemate"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := m.CompleteGame(ctx, g.ID, "white", "checkmate"); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("second completion: %v", err)
	}
	got, _ = m.GameByID(ctx, g.ID)
	if got.Winner != "draw" || got.Outcome != "stalemate" || !got.Complete() {
		t.Fatalf("result revised: %+v", got)
	}
}

func TestMemoryWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	g, _ := m.CreateGame(ctx, NewGame{})

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(q Queries) error {
		if _, err := q.RecordMove(ctx, g.ID, 1, "e2e4", "fen-1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if n, _ := m.MoveCount(ctx, g.ID); n != 0 {
		t.Fatalf("rolled back move persisted, count=%d", n)
	}
	got, _ := m.GameByID(ctx, g.ID)
	if got.Status != StatusCreated {
		t.Fatalf("status=%s after rollback", got.Status)
	}
}

func TestMemoryGamesForUserOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	stepClock(m)
	u, _ := m.CreateUser(ctx, "p@example.com")
	other, _ := m.CreateUser(ctx, "o@example.com")

	first, _ := m.CreateGame(ctx, NewGame{WhitePlayerID: u.ID})
	second, _ := m.CreateGame(ctx, NewGame{BlackPlayerID: u.ID})
	_, _ = m.CreateGame(ctx, NewGame{WhitePlayerID: other.ID})

	// a move bumps updated_at of the older game
	if _, err := m.RecordMove(ctx, first.ID, 1, "e2e4", "fen-1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	games, err := m.GamesForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(games) != 2 || games[0].ID != first.ID || games[1].ID != second.ID {
		t.Fatalf("unexpected order: %+v", games)
	}

	if _, err := m.CreateGame(ctx, NewGame{WhitePlayerID: "ghost"}); apperr.KindOf(err) != apperr.InvalidInput {
		t.Fatalf("unknown player: %v", err)
	}
}
