package store

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id         UUID PRIMARY KEY,
		fen        TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id              UUID PRIMARY KEY,
		white_player_id UUID REFERENCES users(id),
		black_player_id UUID REFERENCES users(id),
		status          TEXT NOT NULL DEFAULT 'created'
			CHECK (status IN ('created', 'active', 'complete')),
		winner          TEXT CHECK (winner IN ('white', 'black', 'draw')),
		outcome         TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS moves (
		id          UUID PRIMARY KEY,
		game_id     UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		position_id UUID NOT NULL REFERENCES positions(id),
		move_number INTEGER NOT NULL,
		uci_move    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (game_id, move_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_updated_at ON games (updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves (game_id)`,
}

// ApplySchema creates missing tables and indexes. It is safe to run on every start.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
