// Package reports is the read side of the ledger: balances, listings,
// period summaries and installment schedules. It never writes and runs on
// its own connection pool so heavy summaries do not compete with the
// write path for connections.
package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/shopspring/decimal"
)

// Reports answers read-only queries against the ledger tables.
type Reports struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL through lib/pq.
func Open(dsn string, maxConns int) (*Reports, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 5)
	}
	return &Reports{db: db}, nil
}

func (r *Reports) Close() error {
	return r.db.Close()
}

// GetUserByEmail looks a user up by normalized email.
func (r *Reports) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, email, name, password_hash, email_verified, balance, created_at, updated_at
		 FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListTransactions returns a user's movements newest first. An empty kind
// lists every kind.
func (r *Reports) ListTransactions(ctx context.Context, userID string, kind domain.Kind) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, kind, amount, notes, date, created_at, updated_at
		FROM transactions WHERE user_id = $1`
	args := []interface{}{userID}

	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, string(kind))
	}
	query += ` ORDER BY date DESC, created_at DESC`

	txns := []domain.Transaction{}
	if err := r.db.SelectContext(ctx, &txns, query, args...); err != nil {
		return nil, err
	}
	return txns, nil
}

type kindTotal struct {
	Kind  string          `db:"kind"`
	Total decimal.Decimal `db:"total"`
}

// Summarize sums amounts per kind over the movements dated inside w.
func (r *Reports) Summarize(ctx context.Context, userID string, w domain.Window) (domain.Summary, error) {
	var rows []kindTotal
	err := r.db.SelectContext(ctx, &rows,
		`SELECT kind, COALESCE(SUM(amount), 0) AS total
		 FROM transactions
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 GROUP BY kind`,
		userID, w.Start, w.End)
	if err != nil {
		return domain.Summary{}, err
	}

	sum := domain.NewSummary()
	for _, row := range rows {
		sum.Add(domain.Kind(row.Kind), row.Total)
	}
	return sum, nil
}

// ListObligations returns the installment schedules owned by email.
func (r *Reports) ListObligations(ctx context.Context, email string) ([]domain.Obligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, name, amount, periods, created_at, updated_at
		 FROM obligations WHERE email = $1 ORDER BY created_at`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Obligation{}
	for rows.Next() {
		var o domain.Obligation
		if err := rows.Scan(&o.ID, &o.Email, &o.Name, &o.Amount, pq.Array(&o.Periods), &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if o.Periods == nil {
			o.Periods = []string{}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
