package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvv-blip/baccarat-bot/internal/model"
)

// WalletRepository stores custodial wallets. A wallet is written once and
// never updated.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Create stores a wallet. Returns ErrWalletExists if the user already has one.
func (r *WalletRepository) Create(ctx context.Context, userID int64, address, secret string) (*model.Wallet, error) {
	const query = `
		INSERT INTO wallets (user_id, address, secret, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING user_id, address, secret, created_at
	`

	var w model.Wallet
	err := r.pool.QueryRow(ctx, query, userID, address, secret).Scan(
		&w.UserID,
		&w.Address,
		&w.Secret,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletExists
		}
		return nil, storeError("create wallet", err)
	}

	return &w, nil
}

// GetByUserID returns the user's wallet or ErrWalletNotFound.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	const query = `
		SELECT user_id, address, secret, created_at
		FROM wallets
		WHERE user_id = $1
	`

	var w model.Wallet
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&w.UserID,
		&w.Address,
		&w.Secret,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, storeError("get wallet", err)
	}

	return &w, nil
}

// Exists checks if the user has a wallet.
func (r *WalletRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, storeError("check wallet existence", err)
	}

	return exists, nil
}
