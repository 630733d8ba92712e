package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// JournalRepository keeps the ledger transaction log and the round history.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository instance.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// RecordTransaction appends one ledger call to the log.
func (r *JournalRepository) RecordTransaction(ctx context.Context, tx *model.LedgerTransaction) error {
	const query = `
		INSERT INTO ledger_transactions (round_id, chat_id, user_id, kind, amount, tx_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		tx.RoundID, tx.ChatID, tx.UserID, tx.Kind, tx.Amount, tx.TxHash, tx.Status,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return storeError("record ledger transaction", err)
	}
	return nil
}

// TransactionsByUser returns the user's ledger history, newest first.
func (r *JournalRepository) TransactionsByUser(ctx context.Context, userID int64, limit int) ([]*model.LedgerTransaction, error) {
	const query = `
		SELECT id, round_id, chat_id, user_id, kind, amount, tx_hash, status, created_at
		FROM ledger_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, storeError("get ledger transactions", err)
	}
	defer rows.Close()

	var transactions []*model.LedgerTransaction
	for rows.Next() {
		var tx model.LedgerTransaction
		err := rows.Scan(
			&tx.ID,
			&tx.RoundID,
			&tx.ChatID,
			&tx.UserID,
			&tx.Kind,
			&tx.Amount,
			&tx.TxHash,
			&tx.Status,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, storeError("scan ledger transaction", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("iterate ledger transactions", err)
	}

	return transactions, nil
}

// RecordRound stores the history row of a settled round.
func (r *JournalRepository) RecordRound(ctx context.Context, round *model.Round) error {
	const query = `
		INSERT INTO rounds (round_id, chat_id, mode, bet_amount, outcome, winners, total_paid, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (round_id) DO NOTHING
	`

	winners := round.Winners
	if winners == nil {
		winners = []int64{}
	}
	_, err := r.pool.Exec(ctx, query,
		round.RoundID, round.ChatID, round.Mode, round.BetAmount, round.Outcome, winners, round.TotalPaid, round.SettledAt,
	)
	if err != nil {
		return storeError("record round", err)
	}
	return nil
}

// ChatStats aggregates the chat's round history.
func (r *JournalRepository) ChatStats(ctx context.Context, chatID int64) (*model.ChatStats, error) {
	const query = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE bet_amount > 0),
			COALESCE(SUM(total_paid), 0)
		FROM rounds
		WHERE chat_id = $1
	`

	var stats model.ChatStats
	if err := r.pool.QueryRow(ctx, query, chatID).Scan(&stats.Rounds, &stats.PaidRounds, &stats.TotalPaid); err != nil {
		return nil, storeError("get chat stats", err)
	}
	return &stats, nil
}
