package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order; every statement is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{"users table", `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"wallets table", `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id BIGINT PRIMARY KEY,
			address VARCHAR(64) NOT NULL UNIQUE,
			secret TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"games table", `
		CREATE TABLE IF NOT EXISTS games (
			chat_id BIGINT PRIMARY KEY,
			round_id VARCHAR(64) NOT NULL,
			creator_id BIGINT NOT NULL DEFAULT 0,
			message_id INTEGER NOT NULL DEFAULT 0,
			mode VARCHAR(16) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			bet_amount NUMERIC(38, 18) NOT NULL DEFAULT 0,
			bet_set BOOLEAN NOT NULL DEFAULT FALSE,
			test_mode BOOLEAN NOT NULL DEFAULT FALSE,
			players JSONB NOT NULL DEFAULT '[]',
			bets JSONB NOT NULL DEFAULT '{}',
			card_choices JSONB NOT NULL DEFAULT '{}',
			target_number SMALLINT NOT NULL DEFAULT 0,
			hand JSONB,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"pending_deposits table", `
		CREATE TABLE IF NOT EXISTS pending_deposits (
			id BIGSERIAL PRIMARY KEY,
			round_id VARCHAR(64) NOT NULL,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			amount NUMERIC(38, 18) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"pending_deposits round key", `
		ALTER TABLE pending_deposits ADD COLUMN IF NOT EXISTS round_id VARCHAR(64) NOT NULL DEFAULT '';
		ALTER TABLE pending_deposits DROP CONSTRAINT IF EXISTS pending_deposits_chat_id_user_id_key;
		DELETE FROM pending_deposits WHERE round_id = '';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_deposits_round_user ON pending_deposits(round_id, user_id);
	`},
	{"bot_config table", `
		CREATE TABLE IF NOT EXISTS bot_config (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"rounds table", `
		CREATE TABLE IF NOT EXISTS rounds (
			round_id VARCHAR(64) PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			mode VARCHAR(16) NOT NULL,
			bet_amount NUMERIC(38, 18) NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			winners JSONB NOT NULL DEFAULT '[]',
			total_paid NUMERIC(38, 18) NOT NULL DEFAULT 0,
			settled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_rounds_chat_time ON rounds(chat_id, settled_at DESC);
	`},
	{"ledger_transactions table", `
		CREATE TABLE IF NOT EXISTS ledger_transactions (
			id BIGSERIAL PRIMARY KEY,
			round_id VARCHAR(64) NOT NULL,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			kind VARCHAR(16) NOT NULL,
			amount NUMERIC(38, 18) NOT NULL,
			tx_hash VARCHAR(80) NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_tx_user_time ON ledger_transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_tx_round ON ledger_transactions(round_id);
	`},
}

// Migrate creates every table the bot uses.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Msgf("Migration %d: %s created", i+1, m.name)
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
