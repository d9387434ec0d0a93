package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Web/internal/apperr"
)

var _ Repository = (*Memory)(nil)

// Memory is an in-process Repository for development and tests.
// All operations, including whole transactions, are serialized by one mutex.
type Memory struct {
	mu sync.Mutex
	st memState
}

type memState struct {
	users     map[string]*User // id -> user
	emails    map[string]string
	games     map[string]*Game
	positions map[string]string // fen -> position id
	moves     map[string][]Move // game id -> ledger, move_number order
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{st: memState{
		users:     make(map[string]*User),
		emails:    make(map[string]string),
		games:     make(map[string]*Game),
		positions: make(map[string]string),
		moves:     make(map[string][]Move),
		now:       time.Now,
	}}
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

func (m *Memory) WithTx(ctx context.Context, fn func(q Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(&m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CreateUser(ctx, email)
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UserByEmail(ctx, email)
}

func (m *Memory) UserByID(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UserByID(ctx, id)
}

func (m *Memory) CreateGame(ctx context.Context, ng NewGame) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CreateGame(ctx, ng)
}

func (m *Memory) GameByID(ctx context.Context, id string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GameByID(ctx, id)
}

// LockGame needs no row lock here; WithTx already holds the store mutex.
func (m *Memory) LockGame(ctx context.Context, id string) (*Game, error) {
	return m.GameByID(ctx, id)
}

func (m *Memory) GamesForUser(ctx context.Context, userID string) ([]*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.GamesForUser(ctx, userID)
}

func (m *Memory) CurrentFEN(ctx context.Context, gameID, startFEN string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CurrentFEN(ctx, gameID, startFEN)
}

func (m *Memory) MoveCount(ctx context.Context, gameID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.MoveCount(ctx, gameID)
}

func (m *Memory) Moves(ctx context.Context, gameID string) ([]Move, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Moves(ctx, gameID)
}

func (m *Memory) RecordMove(ctx context.Context, gameID string, moveNumber int, uci, fen string) (*Move, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.RecordMove(ctx, gameID, moveNumber, uci, fen)
}

func (m *Memory) CompleteGame(ctx context.Context, gameID, winner, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CompleteGame(ctx, gameID, winner, outcome)
}

// memState methods assume the caller holds Memory.mu.

func (s *memState) clone() memState {
	c := memState{
		users:     make(map[string]*User, len(s.users)),
		emails:    make(map[string]string, len(s.emails)),
		games:     make(map[string]*Game, len(s.games)),
		positions: make(map[string]string, len(s.positions)),
		moves:     make(map[string][]Move, len(s.moves)),
		now:       s.now,
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.games {
		g := *v
		c.games[k] = &g
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	for k, v := range s.moves {
		c.moves[k] = append([]Move(nil), v...)
	}
	return c
}

func (s *memState) CreateUser(_ context.Context, email string) (*User, error) {
	email = strings.TrimSpace(email)
	if _, exists := s.emails[email]; exists {
		return nil, apperr.New(apperr.Conflict, "duplicate key value violates unique constraint \"users_email_key\"")
	}
	now := s.now()
	u := &User{ID: uuid.NewString(), Email: email, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	copy := *u
	return &copy, nil
}

func (s *memState) UserByEmail(_ context.Context, email string) (*User, error) {
	id, ok := s.emails[strings.TrimSpace(email)]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	copy := *s.users[id]
	return &copy, nil
}

func (s *memState) UserByID(_ context.Context, id string) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	copy := *u
	return &copy, nil
}

func (s *memState) CreateGame(_ context.Context, ng NewGame) (*Game, error) {
	for _, pid := range []string{ng.WhitePlayerID, ng.BlackPlayerID} {
		if pid == "" {
			continue
		}
		if _, ok := s.users[pid]; !ok {
			return nil, apperr.New(apperr.InvalidInput, "insert or update on table \"games\" violates foreign key constraint")
		}
	}
	now := s.now()
	g := &Game{
		ID:            uuid.NewString(),
		WhitePlayerID: ng.WhitePlayerID,
		BlackPlayerID: ng.BlackPlayerID,
		Status:        StatusCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.games[g.ID] = g
	copy := *g
	return &copy, nil
}

func (s *memState) GameByID(_ context.Context, id string) (*Game, error) {
	g, ok := s.games[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "Game not found")
	}
	copy := *g
	return &copy, nil
}

func (s *memState) LockGame(ctx context.Context, id string) (*Game, error) {
	return s.GameByID(ctx, id)
}

func (s *memState) GamesForUser(_ context.Context, userID string) ([]*Game, error) {
	out := make([]*Game, 0, 8)
	if userID == "" {
		return out, nil
	}
	for _, g := range s.games {
		if g.WhitePlayerID == userID || g.BlackPlayerID == userID {
			copy := *g
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *memState) CurrentFEN(_ context.Context, gameID, startFEN string) (string, error) {
	ledger := s.moves[gameID]
	if len(ledger) == 0 {
		return startFEN, nil
	}
	return ledger[len(ledger)-1].FEN, nil
}

func (s *memState) MoveCount(_ context.Context, gameID string) (int, error) {
	return len(s.moves[gameID]), nil
}

func (s *memState) Moves(_ context.Context, gameID string) ([]Move, error) {
	return append([]Move(nil), s.moves[gameID]...), nil
}

func (s *memState) RecordMove(_ context.Context, gameID string, moveNumber int, uci, fen string) (*Move, error) {
	g, ok := s.games[gameID]
	if !ok {
		return nil, apperr.New(apperr.InvalidInput, "insert or update on table \"moves\" violates foreign key constraint")
	}
	for _, m := range s.moves[gameID] {
		if m.MoveNumber == moveNumber {
			return nil, apperr.New(apperr.Conflict, "duplicate key value violates unique constraint \"moves_game_id_move_number_key\"")
		}
	}
	if _, ok := s.positions[fen]; !ok {
		s.positions[fen] = uuid.NewString()
	}
	now := s.now()
	m := Move{
		ID:         uuid.NewString(),
		GameID:     gameID,
		MoveNumber: moveNumber,
		UCI:        uci,
		FEN:        fen,
		CreatedAt:  now,
	}
	s.moves[gameID] = append(s.moves[gameID], m)
	if g.Status == StatusCreated {
		g.Status = StatusActive
	}
	g.UpdatedAt = now
	return &m, nil
}

func (s *memState) CompleteGame(_ context.Context, gameID, winner, outcome string) error {
	g, ok := s.games[gameID]
	if !ok {
		return apperr.New(apperr.NotFound, "Game not found")
	}
	if g.Status == StatusComplete {
		return apperr.New(apperr.Conflict, "Game is already complete")
	}
	switch winner {
	case "white", "black", "draw":
	default:
		return apperr.New(apperr.InvalidInput, "new row for relation \"games\" violates check constraint \"games_winner_check\"")
	}
	g.Status = StatusComplete
	g.Winner = winner
	g.Outcome = outcome
	g.UpdatedAt = s.now()
	return nil
}

// PositionCount reports distinct stored positions.
func (m *Memory) PositionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.positions)
}
