package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/ledger"
	"github.com/punchamoorthee/ledgerbook/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// RepayPolicy controls paying a period that is no longer pending.
type RepayPolicy string

const (
	RepayAllow  RepayPolicy = "allow"
	RepayReject RepayPolicy = "reject"
)

// PartialPolicy controls how partial settlement amounts are validated.
type PartialPolicy string

const (
	// PartialTrust accepts the caller's clear and remaining amounts as given.
	PartialTrust PartialPolicy = "trust"
	// PartialVerify derives remaining from the outstanding amount.
	PartialVerify PartialPolicy = "verify"
)

// Policy groups the configurable business rules.
type Policy struct {
	Repay   RepayPolicy
	Partial PartialPolicy
}

// DefaultPolicy keeps the permissive behavior.
var DefaultPolicy = Policy{Repay: RepayAllow, Partial: PartialTrust}

// Store is the write side the ledger needs.
type Store interface {
	InTx(ctx context.Context, fn store.TxFunc) error
	CreateUser(ctx context.Context, u *domain.User) error
	CreateObligation(ctx context.Context, o *domain.Obligation) error
	DeleteTransactionsInRange(ctx context.Context, userID string, w domain.Window, kinds []domain.Kind) (int64, error)
}

// Reader is the read side the ledger needs.
type Reader interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListTransactions(ctx context.Context, userID string, kind domain.Kind) ([]domain.Transaction, error)
	Summarize(ctx context.Context, userID string, w domain.Window) (domain.Summary, error)
	ListObligations(ctx context.Context, email string) ([]domain.Obligation, error)
}

// Ledger applies balance-affecting operations. Every mutation of a
// balance happens in the same store unit as the records it pairs with,
// after the user row has been locked.
type Ledger struct {
	store  Store
	reader Reader
	policy Policy
	now    func() time.Time
}

func NewLedger(s Store, r Reader, p Policy) *Ledger {
	if p.Repay == "" {
		p.Repay = RepayAllow
	}
	if p.Partial == "" {
		p.Partial = PartialTrust
	}
	return &Ledger{store: s, reader: r, policy: p, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates a user with a zero balance and a bcrypt password hash.
func (l *Ledger) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = ledger.NormalizeEmail(req.Email)
	if err := check(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	u := &domain.User{Email: req.Email, Name: req.Name, PasswordHash: string(hash)}
	if err := l.store.CreateUser(ctx, u); err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// User returns the user behind email.
func (l *Ledger) User(ctx context.Context, email string) (*domain.User, error) {
	email = ledger.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email", domain.ErrMissingField)
	}
	u, err := l.reader.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// Record creates one movement and applies its balance delta atomically.
func (l *Ledger) Record(ctx context.Context, req domain.RecordRequest) (*domain.Transaction, error) {
	email := ledger.NormalizeEmail(req.Email)
	req.Email = email
	if err := check(req); err != nil {
		return nil, err
	}
	kind, err := domain.ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	amount, err := ledger.Amount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	notes, err := ledger.Notes(req.Notes)
	if err != nil {
		return nil, err
	}
	date := l.now()
	if strings.TrimSpace(req.Date) != "" {
		if date, err = ledger.ParseDate(req.Date); err != nil {
			return nil, err
		}
	}

	txn := &domain.Transaction{Kind: kind, Amount: amount, Notes: notes, Date: date}
	err = l.store.InTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if err := ledger.CheckBalance(u.Balance, kind, amount, req.Previous); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, u.ID, ledger.Delta(kind, amount)); err != nil {
			return err
		}
		txn.UserID = u.ID
		return tx.InsertTransaction(ctx, txn)
	})
	if err != nil {
		return nil, classify(err)
	}
	return txn, nil
}

// Transactions lists a user's movements newest first. An empty kind lists
// every kind.
func (l *Ledger) Transactions(ctx context.Context, email, kind string) ([]domain.Transaction, error) {
	var k domain.Kind
	if kind != "" {
		var err error
		if k, err = domain.ParseKind(kind); err != nil {
			return nil, err
		}
	}
	u, err := l.User(ctx, email)
	if err != nil {
		return nil, err
	}
	txns, err := l.reader.ListTransactions(ctx, u.ID, k)
	if err != nil {
		return nil, classify(err)
	}
	return txns, nil
}

// DeleteRange removes in and out movements dated between the two bounds,
// both inclusive. A date-only bound covers its whole day.
// Lend records are never removed this way.
func (l *Ledger) DeleteRange(ctx context.Context, req domain.DeleteRangeRequest) (int64, error) {
	req.Email = ledger.NormalizeEmail(req.Email)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	if err := check(req); err != nil {
		return 0, err
	}
	w, err := ledger.InstantRange(req.StartDate, req.EndDate)
	if err != nil {
		return 0, err
	}
	u, err := l.User(ctx, req.Email)
	if err != nil {
		return 0, err
	}
	n, err := l.store.DeleteTransactionsInRange(ctx, u.ID, w, []domain.Kind{domain.KindIn, domain.KindOut})
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Balance returns the current balance behind email.
func (l *Ledger) Balance(ctx context.Context, email string) (decimal.Decimal, error) {
	u, err := l.User(ctx, email)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return u.Balance, nil
}

// classify passes domain errors through and marks everything else as a
// storage failure.
func classify(err error) error {
	if err == nil || domain.Known(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
