package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config keys.
const (
	ConfigSupportUsername = "support_username"
)

// ConfigRepository is a small key-value store for runtime bot settings.
type ConfigRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository creates a new ConfigRepository instance.
func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

// Get returns the value stored under key or ErrConfigNotFound.
func (r *ConfigRepository) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM bot_config WHERE key = $1`

	var value string
	if err := r.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrConfigNotFound
		}
		return "", storeError("get config", err)
	}
	return value, nil
}

// Set stores value under key.
func (r *ConfigRepository) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO bot_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, key, value); err != nil {
		return storeError("set config", err)
	}
	return nil
}
