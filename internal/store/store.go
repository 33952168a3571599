package store

import (
	"context"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/shopspring/decimal"
)

// Tx is one atomic unit of ledger mutations. Lock* methods take a write
// lock on the row that is held until the unit commits or rolls back, so a
// balance read through LockUser cannot go stale before AdjustBalance.
type Tx interface {
	LockUserByEmail(ctx context.Context, email string) (*domain.User, error)
	LockUser(ctx context.Context, id string) (*domain.User, error)
	LockTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	LockObligation(ctx context.Context, id string) (*domain.Obligation, error)

	AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error)
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	UpdateTransactionAmount(ctx context.Context, id string, amount decimal.Decimal) error
	SetObligationPeriods(ctx context.Context, id string, periods []string) error
}

// TxFunc runs inside a unit. Returning an error rolls the unit back.
type TxFunc func(tx Tx) error
