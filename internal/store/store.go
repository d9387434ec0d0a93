// Package store persists users, games, positions and the move ledger.
package store

import (
	"context"
	"time"
)

type GameStatus string

const (
	StatusCreated  GameStatus = "created"
	StatusActive   GameStatus = "active"
	StatusComplete GameStatus = "complete"
)

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Game is one chess game. Empty player ids mean the seat is open.
type Game struct {
	ID            string
	WhitePlayerID string
	BlackPlayerID string
	Status        GameStatus
	Winner        string
	Outcome       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (g *Game) Complete() bool { return g != nil && g.Status == StatusComplete }

// Move is a ledger entry joined with the position it produced.
type Move struct {
	ID         string
	GameID     string
	MoveNumber int
	UCI        string
	FEN        string
	CreatedAt  time.Time
}

type NewGame struct {
	WhitePlayerID string
	BlackPlayerID string
}

// Queries is the set of operations usable both inside and outside a transaction.
type Queries interface {
	CreateUser(ctx context.Context, email string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	CreateGame(ctx context.Context, ng NewGame) (*Game, error)
	GameByID(ctx context.Context, id string) (*Game, error)
	// LockGame reads the game and holds its row until the transaction ends.
	// Outside WithTx it behaves like GameByID.
	LockGame(ctx context.Context, id string) (*Game, error)
	// GamesForUser lists games where the user holds either seat, most recently updated first.
	GamesForUser(ctx context.Context, userID string) ([]*Game, error)

	// CurrentFEN is the position of the latest move, or startFEN when none.
	CurrentFEN(ctx context.Context, gameID, startFEN string) (string, error)
	MoveCount(ctx context.Context, gameID string) (int, error)
	Moves(ctx context.Context, gameID string) ([]Move, error)
	// RecordMove stores fen (reusing an existing position row), appends the
	// ledger entry and moves a created game to active.
	RecordMove(ctx context.Context, gameID string, moveNumber int, uci, fen string) (*Move, error)
	// CompleteGame sets the final result once. A second call returns Conflict.
	CompleteGame(ctx context.Context, gameID, winner, outcome string) error
}

type Repository interface {
	Queries
	// WithTx runs fn in one transaction; an error from fn rolls it back.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close() error
}
