// Package chessdto holds the JSON shapes exchanged with API clients.
package chessdto

import "time"

type CreateGameRequest struct {
	PlayAs string `json:"play_as"`
}

type MoveEntry struct {
	MoveNumber int       `json:"move_number"`
	UCI        string    `json:"uci"`
	FEN        string    `json:"fen"`
	CreatedAt  time.Time `json:"created_at"`
}

type GameView struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	WhitePlayerID string      `json:"white_player_id,omitempty"`
	BlackPlayerID string      `json:"black_player_id,omitempty"`
	Winner        string      `json:"winner,omitempty"`
	Outcome       string      `json:"outcome,omitempty"`
	FEN           string      `json:"fen"`
	Turn          string      `json:"turn"`
	InCheck       bool        `json:"in_check"`
	Moves         []MoveEntry `json:"moves"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
