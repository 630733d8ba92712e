package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// DepositRepository stores stakes recorded at bet time that settlement
// still has to move on-chain. Stakes belong to a round, so a chat can hold
// the stakes of a settling round and of the next one at the same time.
type DepositRepository struct {
	pool *pgxpool.Pool
}

// NewDepositRepository creates a new DepositRepository instance.
func NewDepositRepository(pool *pgxpool.Pool) *DepositRepository {
	return &DepositRepository{pool: pool}
}

// Create records a stake. A second stake by the same user in the same round
// replaces the first.
func (r *DepositRepository) Create(ctx context.Context, roundID string, chatID, userID int64, amount decimal.Decimal) (*model.PendingDeposit, error) {
	const query = `
		INSERT INTO pending_deposits (round_id, chat_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (round_id, user_id) DO UPDATE SET amount = EXCLUDED.amount, created_at = NOW()
		RETURNING id, round_id, chat_id, user_id, amount, created_at
	`

	var d model.PendingDeposit
	err := r.pool.QueryRow(ctx, query, roundID, chatID, userID, amount).Scan(
		&d.ID,
		&d.RoundID,
		&d.ChatID,
		&d.UserID,
		&d.Amount,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, storeError("create pending deposit", err)
	}
	return &d, nil
}

// ListByRound returns the round's pending stakes, oldest first.
func (r *DepositRepository) ListByRound(ctx context.Context, roundID string) ([]*model.PendingDeposit, error) {
	const query = `
		SELECT id, round_id, chat_id, user_id, amount, created_at
		FROM pending_deposits
		WHERE round_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, storeError("list pending deposits", err)
	}
	defer rows.Close()

	var deposits []*model.PendingDeposit
	for rows.Next() {
		var d model.PendingDeposit
		if err := rows.Scan(&d.ID, &d.RoundID, &d.ChatID, &d.UserID, &d.Amount, &d.CreatedAt); err != nil {
			return nil, storeError("scan pending deposit", err)
		}
		deposits = append(deposits, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate pending deposits", err)
	}

	return deposits, nil
}

// Delete drops one user's stake in a round.
func (r *DepositRepository) Delete(ctx context.Context, roundID string, userID int64) error {
	const query = `DELETE FROM pending_deposits WHERE round_id = $1 AND user_id = $2`

	if _, err := r.pool.Exec(ctx, query, roundID, userID); err != nil {
		return storeError("delete pending deposit", err)
	}
	return nil
}

// DeleteByRound drops every pending stake of the round.
func (r *DepositRepository) DeleteByRound(ctx context.Context, roundID string) error {
	const query = `DELETE FROM pending_deposits WHERE round_id = $1`

	if _, err := r.pool.Exec(ctx, query, roundID); err != nil {
		return storeError("delete pending deposits", err)
	}
	return nil
}
