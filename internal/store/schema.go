package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(50) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		balance NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id),
		kind VARCHAR(8) NOT NULL CHECK (kind IN ('lend', 'in', 'out')),
		amount NUMERIC NOT NULL CHECK (amount > 0),
		notes VARCHAR(200) NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS obligations (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		amount NUMERIC NOT NULL CHECK (amount > 0),
		periods TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date DESC)",
	"CREATE INDEX IF NOT EXISTS idx_transactions_user_kind ON transactions(user_id, kind)",
	"CREATE INDEX IF NOT EXISTS idx_obligations_email ON obligations(email)",
}

// Migrate creates the ledger tables if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range tables {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table failed: %w", err)
		}
	}
	// Indexes only affect performance.
	for _, idx := range indexes {
		if _, err := db.Exec(ctx, idx); err != nil {
			log.Printf("Warning: failed to create index: %v", err)
		}
	}
	return nil
}
