package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// SessionRepository persists one game session per chat. Nested fields are
// stored as JSONB. Update is a compare-and-swap on version.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `chat_id, round_id, creator_id, message_id, mode, status, bet_amount, bet_set,
	test_mode, players, bets, card_choices, target_number, hand, version, created_at, updated_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ChatID,
		&s.RoundID,
		&s.CreatorID,
		&s.MessageID,
		&s.Mode,
		&s.Status,
		&s.BetAmount,
		&s.BetSet,
		&s.TestMode,
		&s.Players,
		&s.Bets,
		&s.CardChoices,
		&s.TargetNumber,
		&s.Hand,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// sessionArgs returns the mutable columns in insert order ($2..$14).
func sessionArgs(s *model.Session) []any {
	players := s.Players
	if players == nil {
		players = []int64{}
	}
	bets := s.Bets
	if bets == nil {
		bets = map[int64]model.Bet{}
	}
	choices := s.CardChoices
	if choices == nil {
		choices = map[int64]int{}
	}
	return []any{
		s.ChatID, s.RoundID, s.CreatorID, s.MessageID, s.Mode, s.Status, s.BetAmount, s.BetSet,
		s.TestMode, players, bets, choices, s.TargetNumber, s.Hand,
	}
}

// Create inserts a new session. Returns ErrSessionExists if the chat already has one.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	const query = `
		INSERT INTO games (chat_id, round_id, creator_id, message_id, mode, status, bet_amount, bet_set,
			test_mode, players, bets, card_choices, target_number, hand, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, NOW(), NOW())
		ON CONFLICT (chat_id) DO NOTHING
		RETURNING ` + sessionColumns

	saved, err := scanSession(r.pool.QueryRow(ctx, query, sessionArgs(s)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionExists
		}
		return nil, storeError("create game session", err)
	}
	return saved, nil
}

// Replace writes s over whatever the chat holds, creating it if absent.
func (r *SessionRepository) Replace(ctx context.Context, s *model.Session) (*model.Session, error) {
	const query = `
		INSERT INTO games (chat_id, round_id, creator_id, message_id, mode, status, bet_amount, bet_set,
			test_mode, players, bets, card_choices, target_number, hand, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, NOW(), NOW())
		ON CONFLICT (chat_id) DO UPDATE
		SET round_id = EXCLUDED.round_id,
			creator_id = EXCLUDED.creator_id,
			message_id = EXCLUDED.message_id,
			mode = EXCLUDED.mode,
			status = EXCLUDED.status,
			bet_amount = EXCLUDED.bet_amount,
			bet_set = EXCLUDED.bet_set,
			test_mode = EXCLUDED.test_mode,
			players = EXCLUDED.players,
			bets = EXCLUDED.bets,
			card_choices = EXCLUDED.card_choices,
			target_number = EXCLUDED.target_number,
			hand = EXCLUDED.hand,
			version = games.version + 1,
			created_at = NOW(),
			updated_at = NOW()
		RETURNING ` + sessionColumns

	saved, err := scanSession(r.pool.QueryRow(ctx, query, sessionArgs(s)...))
	if err != nil {
		return nil, storeError("replace game session", err)
	}
	return saved, nil
}

// Get returns the chat's session or ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, chatID int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM games WHERE chat_id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, storeError("get game session", err)
	}
	return s, nil
}

// Update saves s if nobody else wrote the row since s was loaded.
// Returns ErrVersionConflict otherwise.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) (*model.Session, error) {
	const query = `
		UPDATE games
		SET round_id = $2, creator_id = $3, message_id = $4, mode = $5, status = $6, bet_amount = $7,
			bet_set = $8, test_mode = $9, players = $10, bets = $11, card_choices = $12,
			target_number = $13, hand = $14, version = version + 1, updated_at = NOW()
		WHERE chat_id = $1 AND version = $15
		RETURNING ` + sessionColumns

	args := append(sessionArgs(s), s.Version)
	saved, err := scanSession(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, storeError("update game session", err)
	}
	return saved, nil
}

// Delete removes the chat's session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	const query = `DELETE FROM games WHERE chat_id = $1`

	if _, err := r.pool.Exec(ctx, query, chatID); err != nil {
		return storeError("delete game session", err)
	}
	return nil
}

// CountActive counts sessions that are not settled.
func (r *SessionRepository) CountActive(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM games WHERE status <> $1`

	var n int64
	if err := r.pool.QueryRow(ctx, query, model.StatusSettled).Scan(&n); err != nil {
		return 0, storeError("count game sessions", err)
	}
	return n, nil
}
