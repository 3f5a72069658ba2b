package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// schema is applied in order; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		first_name VARCHAR(128) NOT NULL DEFAULT '',
		last_name VARCHAR(128) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(20) PRIMARY KEY,
		owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		balance NUMERIC(19, 2) NOT NULL DEFAULT 0 CONSTRAINT accounts_balance_check CHECK (balance >= 0),
		currency VARCHAR(3) NOT NULL CHECK (currency IN ('USD', 'EUR', 'GBP', 'TRY', 'RUB')),
		party VARCHAR(3) NOT NULL DEFAULT 'PER' CHECK (party IN ('PER', 'ENT'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_owner_id ON accounts(owner_id)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id BIGINT PRIMARY KEY,
		account_id VARCHAR(20) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		expiration_date DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cards_account_id ON cards(account_id)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		sender_id VARCHAR(20) NOT NULL REFERENCES accounts(id),
		recipient_id VARCHAR(20) NOT NULL REFERENCES accounts(id),
		amount NUMERIC(19, 2) NOT NULL CONSTRAINT transactions_amount_check CHECK (amount > 0),
		media_ref VARCHAR(255),
		seen BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_sender_id ON transactions(sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_recipient_id ON transactions(recipient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
}

// Migrate creates the tables the payment services use
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	log.Printf("Database schema is up to date (%d statements)", len(schema))
	return nil
}
