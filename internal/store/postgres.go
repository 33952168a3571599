package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Connect opens and pings a pgx pool.
func Connect(ctx context.Context, connString string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// LedgerStore is the PostgreSQL write side of the ledger.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

// InTx runs fn inside one database transaction. Row locks are taken with
// SELECT ... FOR UPDATE under READ COMMITTED, so a waiter re-reads the
// committed row instead of failing with a serialization error.
func (s *LedgerStore) InTx(ctx context.Context, fn TxFunc) (err error) {
	timer := prometheus.NewTimer(txLatency)
	defer timer.ObserveDuration()
	defer func() { observeOutcome(err) }()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err = fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

// CreateUser inserts a user. A duplicate email yields domain.ErrUserExists.
func (s *LedgerStore) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, email_verified, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.EmailVerified, toNumeric(u.Balance), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUserExists
		}
		return fmt.Errorf("user insert failed: %w", err)
	}
	return nil
}

// SeedUsers bulk loads users with CopyFrom and returns the row count.
func (s *LedgerStore) SeedUsers(ctx context.Context, users []domain.User) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		rows = append(rows, []any{u.ID, u.Email, u.Name, u.PasswordHash, u.EmailVerified, toNumeric(u.Balance), now, now})
	}
	return s.db.CopyFrom(ctx,
		pgx.Identifier{"users"},
		[]string{"id", "email", "name", "password_hash", "email_verified", "balance", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
}

// CreateObligation inserts an installment schedule.
func (s *LedgerStore) CreateObligation(ctx context.Context, o *domain.Obligation) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now

	_, err := s.db.Exec(ctx,
		`INSERT INTO obligations (id, email, name, amount, periods, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.Email, o.Name, toNumeric(o.Amount), o.Periods, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("obligation insert failed: %w", err)
	}
	return nil
}

// DeleteTransactionsInRange removes a user's movements of the given kinds
// whose date falls in w. Balances are not touched.
func (s *LedgerStore) DeleteTransactionsInRange(ctx context.Context, userID string, w domain.Window, kinds []domain.Kind) (int64, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM transactions
		 WHERE user_id = $1 AND kind = ANY($2) AND date >= $3 AND date < $4`,
		userID, names, w.Start, w.End,
	)
	if err != nil {
		return 0, fmt.Errorf("range delete failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgTx struct {
	tx pgx.Tx
}

const userColumns = `id, email, name, password_hash, email_verified, balance, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u       domain.User
		balance pgtype.Numeric
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified, &balance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user lock failed: %w", err)
	}
	u.Balance = fromNumeric(balance)
	return &u, nil
}

func (t *pgTx) LockUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(t.tx.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1 FOR UPDATE", email))
}

func (t *pgTx) LockUser(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(t.tx.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1 FOR UPDATE", id))
}

func (t *pgTx) LockTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var (
		txn    domain.Transaction
		kind   string
		amount pgtype.Numeric
	)
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, kind, amount, notes, date, created_at, updated_at
		 FROM transactions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&txn.ID, &txn.UserID, &kind, &amount, &txn.Notes, &txn.Date, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction lock failed: %w", err)
	}
	txn.Kind = domain.Kind(kind)
	txn.Amount = fromNumeric(amount)
	return &txn, nil
}

func (t *pgTx) LockObligation(ctx context.Context, id string) (*domain.Obligation, error) {
	var (
		o      domain.Obligation
		amount pgtype.Numeric
	)
	err := t.tx.QueryRow(ctx,
		`SELECT id, email, name, amount, periods, created_at, updated_at
		 FROM obligations WHERE id = $1 FOR UPDATE`, id,
	).Scan(&o.ID, &o.Email, &o.Name, &amount, &o.Periods, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrObligationNotFound
		}
		return nil, fmt.Errorf("obligation lock failed: %w", err)
	}
	o.Amount = fromNumeric(amount)
	if o.Periods == nil {
		o.Periods = []string{}
	}
	return &o, nil
}

func (t *pgTx) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance pgtype.Numeric
	err := t.tx.QueryRow(ctx,
		"UPDATE users SET balance = balance + $1, updated_at = $2 WHERE id = $3 RETURNING balance",
		toNumeric(delta), time.Now().UTC(), userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, domain.ErrUserNotFound
		}
		return decimal.Decimal{}, fmt.Errorf("balance update failed: %w", err)
	}
	return fromNumeric(balance), nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.CreatedAt, txn.UpdatedAt = now, now

	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, kind, amount, notes, date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.UserID, string(txn.Kind), toNumeric(txn.Amount), txn.Notes, txn.Date, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("transaction delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (t *pgTx) UpdateTransactionAmount(ctx context.Context, id string, amount decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE transactions SET amount = $1, updated_at = $2 WHERE id = $3",
		toNumeric(amount), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("transaction update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (t *pgTx) SetObligationPeriods(ctx context.Context, id string, periods []string) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE obligations SET periods = $1, updated_at = $2 WHERE id = $3",
		periods, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("obligation update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrObligationNotFound
	}
	return nil
}

// pgtype.Numeric carries the same coefficient/exponent pair as decimal,
// so conversion is exact in both directions.
func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
