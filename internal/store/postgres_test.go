package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/park285/Cheese-Web/internal/apperr"
)

// openTestPostgres runs only when TEST_POSTGRES_URL points at a disposable database.
func openTestPostgres(t *testing.T, ctx context.Context) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	repo, err := OpenPostgres(dsn, DefaultPool)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := ApplySchema(ctx, repo.DB()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return repo
}

func TestPostgresMoveLedger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo := openTestPostgres(t, ctx)

	g, err := repo.CreateGame(ctx, NewGame{})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	err = repo.WithTx(ctx, func(q Queries) error {
		_, err := q.RecordMove(ctx, g.ID, 1, "e2e4", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
		return err
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := repo.RecordMove(ctx, g.ID, 1, "d2d4", "x"); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("duplicate move number: %v", err)
	}
	if _, err := repo.GameByID(ctx, "not-a-uuid"); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("bad id: %v", err)
	}
	got, _ := repo.GameByID(ctx, g.ID)
	if got.Status != StatusActive {
		t.Fatalf("status=%s", got.Status)
	}
}

func TestPostgresLockGameSerializesWriters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo := openTestPostgres(t, ctx)

	g, err := repo.CreateGame(ctx, NewGame{})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	locked := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.WithTx(ctx, func(q Queries) error {
			if _, err := q.LockGame(ctx, g.ID); err != nil {
				return err
			}
			close(locked)
			time.Sleep(300 * time.Millisecond)
			return q.CompleteGame(ctx, g.ID, "black", "resignation")
		})
	}()

	select {
	case <-locked:
	case err := <-done:
		t.Fatalf("first tx ended before locking: %v", err)
	}
	var seen *Game
	err = repo.WithTx(ctx, func(q Queries) error {
		got, err := q.LockGame(ctx, g.ID)
		seen = got
		return err
	})
	if err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first tx: %v", err)
	}
	if !seen.Complete() {
		t.Fatalf("second writer read status=%s before the first committed", seen.Status)
	}
	if err := repo.CompleteGame(ctx, "00000000-0000-0000-0000-000000000000", "white", "resignation"); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("unknown game: %v", err)
	}
}
