package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/park285/Cheese-Web/internal/apperr"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var DefaultPool = PoolOptions{MaxOpenConns: 16, MaxIdleConns: 8, ConnMaxLifetime: 30 * time.Minute}

var _ Repository = (*Postgres)(nil)

// Postgres is the lib/pq backed Repository.
type Postgres struct {
	queries
	db *sql.DB
}

// OpenPostgres opens a pool without connecting; call Ping to verify.
func OpenPostgres(dsn string, pool PoolOptions) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	return NewPostgres(db), nil
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{queries: queries{q: db}, db: db}
}

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) WithTx(ctx context.Context, fn func(q Queries) error) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.FromPersistence(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(queries{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return apperr.FromPersistence(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

type queries struct {
	q dbtx
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullable(id string) sql.NullString {
	return sql.NullString{String: id, Valid: strings.TrimSpace(id) != ""}
}

func (r queries) CreateUser(ctx context.Context, email string) (*User, error) {
	const query = `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at`
	var u User
	err := r.q.QueryRowContext(ctx, query, uuid.NewString(), strings.TrimSpace(email)).
		Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("insert user: %w", err))
	}
	return &u, nil
}

func (r queries) UserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT id, email, created_at, updated_at FROM users WHERE email = $1`
	return r.scanUser(r.q.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

func (r queries) UserByID(ctx context.Context, id string) (*User, error) {
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	const query = `SELECT id, email, created_at, updated_at FROM users WHERE id = $1`
	return r.scanUser(r.q.QueryRowContext(ctx, query, id))
}

func (r queries) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("select user: %w", err))
	}
	return &u, nil
}

const gameColumns = `id, white_player_id, black_player_id, status, winner, outcome, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*Game, error) {
	var (
		g               Game
		white, black    sql.NullString
		winner, outcome sql.NullString
		status          string
	)
	if err := row.Scan(&g.ID, &white, &black, &status, &winner, &outcome, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.WhitePlayerID = white.String
	g.BlackPlayerID = black.String
	g.Status = GameStatus(status)
	g.Winner = winner.String
	g.Outcome = outcome.String
	return &g, nil
}

func (r queries) CreateGame(ctx context.Context, ng NewGame) (*Game, error) {
	query := `
		INSERT INTO games (id, white_player_id, black_player_id)
		VALUES ($1, $2, $3)
		RETURNING ` + gameColumns
	g, err := scanGame(r.q.QueryRowContext(ctx, query, uuid.NewString(), nullable(ng.WhitePlayerID), nullable(ng.BlackPlayerID)))
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("insert game: %w", err))
	}
	return g, nil
}

func (r queries) GameByID(ctx context.Context, id string) (*Game, error) {
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, "Game not found")
	}
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	g, err := scanGame(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "Game not found")
	}
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("select game: %w", err))
	}
	return g, nil
}

func (r queries) LockGame(ctx context.Context, id string) (*Game, error) {
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, "Game not found")
	}
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`
	g, err := scanGame(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "Game not found")
	}
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("lock game: %w", err))
	}
	return g, nil
}

func (r queries) GamesForUser(ctx context.Context, userID string) ([]*Game, error) {
	if !validID(userID) {
		return []*Game{}, nil
	}
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE white_player_id = $1 OR black_player_id = $1
		ORDER BY updated_at DESC`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("select games: %w", err))
	}
	defer rows.Close()

	games := make([]*Game, 0, 8)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, apperr.FromPersistence(fmt.Errorf("scan game: %w", err))
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("iterate games: %w", err))
	}
	return games, nil
}

func (r queries) CurrentFEN(ctx context.Context, gameID, startFEN string) (string, error) {
	const query = `
		SELECT p.fen
		FROM moves m
		JOIN positions p ON p.id = m.position_id
		WHERE m.game_id = $1
		ORDER BY m.move_number DESC
		LIMIT 1`
	var fen string
	err := r.q.QueryRowContext(ctx, query, gameID).Scan(&fen)
	if errors.Is(err, sql.ErrNoRows) {
		return startFEN, nil
	}
	if err != nil {
		return "", apperr.FromPersistence(fmt.Errorf("select current fen: %w", err))
	}
	return fen, nil
}

func (r queries) MoveCount(ctx context.Context, gameID string) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM moves WHERE game_id = $1`, gameID).Scan(&n); err != nil {
		return 0, apperr.FromPersistence(fmt.Errorf("count moves: %w", err))
	}
	return n, nil
}

func (r queries) Moves(ctx context.Context, gameID string) ([]Move, error) {
	const query = `
		SELECT m.id, m.game_id, m.move_number, m.uci_move, p.fen, m.created_at
		FROM moves m
		JOIN positions p ON p.id = m.position_id
		WHERE m.game_id = $1
		ORDER BY m.move_number`
	rows, err := r.q.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("select moves: %w", err))
	}
	defer rows.Close()

	var out []Move
	for rows.Next() {
		var m Move
		if err := rows.Scan(&m.ID, &m.GameID, &m.MoveNumber, &m.UCI, &m.FEN, &m.CreatedAt); err != nil {
			return nil, apperr.FromPersistence(fmt.Errorf("scan move: %w", err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("iterate moves: %w", err))
	}
	return out, nil
}

func (r queries) RecordMove(ctx context.Context, gameID string, moveNumber int, uci, fen string) (*Move, error) {
	// the no-op update makes RETURNING yield the existing row on conflict
	const upsertPosition = `
		INSERT INTO positions (id, fen)
		VALUES ($1, $2)
		ON CONFLICT (fen) DO UPDATE SET fen = EXCLUDED.fen
		RETURNING id`
	var positionID string
	if err := r.q.QueryRowContext(ctx, upsertPosition, uuid.NewString(), fen).Scan(&positionID); err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("upsert position: %w", err))
	}

	const insertMove = `
		INSERT INTO moves (id, game_id, position_id, move_number, uci_move)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	m := Move{GameID: gameID, MoveNumber: moveNumber, UCI: uci, FEN: fen}
	if err := r.q.QueryRowContext(ctx, insertMove, uuid.NewString(), gameID, positionID, moveNumber, uci).
		Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("insert move: %w", err))
	}

	const touchGame = `
		UPDATE games
		SET status = CASE WHEN status = 'created' THEN 'active' ELSE status END,
		    updated_at = now()
		WHERE id = $1`
	if _, err := r.q.ExecContext(ctx, touchGame, gameID); err != nil {
		return nil, apperr.FromPersistence(fmt.Errorf("touch game: %w", err))
	}
	return &m, nil
}

func (r queries) CompleteGame(ctx context.Context, gameID, winner, outcome string) error {
	const query = `
		UPDATE games
		SET status = 'complete', winner = $2, outcome = $3, updated_at = now()
		WHERE id = $1 AND status <> 'complete'`
	res, err := r.q.ExecContext(ctx, query, gameID, winner, outcome)
	if err != nil {
		return apperr.FromPersistence(fmt.Errorf("complete game: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.FromPersistence(fmt.Errorf("complete game: %w", err))
	}
	if n == 0 {
		if _, err := r.GameByID(ctx, gameID); err != nil {
			return err
		}
		return apperr.New(apperr.Conflict, "Game is already complete")
	}
	return nil
}
