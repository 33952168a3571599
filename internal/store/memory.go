package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/shopspring/decimal"
)

// Memory is an in-process ledger store. Units of work are serialized by
// one mutex and applied to a copy of the state that replaces the live
// state only on success, so a failed unit leaves nothing behind.
type Memory struct {
	mu    sync.RWMutex
	state memState
}

type memState struct {
	users       map[string]domain.User
	emails      map[string]string
	txns        map[string]domain.Transaction
	obligations map[string]domain.Obligation
}

func NewMemory() *Memory {
	return &Memory{state: memState{
		users:       map[string]domain.User{},
		emails:      map[string]string{},
		txns:        map[string]domain.Transaction{},
		obligations: map[string]domain.Obligation{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		users:       make(map[string]domain.User, len(s.users)),
		emails:      make(map[string]string, len(s.emails)),
		txns:        make(map[string]domain.Transaction, len(s.txns)),
		obligations: make(map[string]domain.Obligation, len(s.obligations)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	for k, v := range s.obligations {
		v.Periods = slices.Clone(v.Periods)
		c.obligations[k] = v
	}
	return c
}

func (m *Memory) InTx(ctx context.Context, fn TxFunc) (err error) {
	timer := prometheus.NewTimer(txLatency)
	defer timer.ObserveDuration()
	defer func() { observeOutcome(err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err = fn(&memTx{st: &work}); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.emails[u.Email]; ok {
		return domain.ErrUserExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.state.users[u.ID] = *u
	m.state.emails[u.Email] = u.ID
	return nil
}

func (m *Memory) CreateObligation(ctx context.Context, o *domain.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Periods = slices.Clone(o.Periods)
	m.state.obligations[o.ID] = stored
	return nil
}

func (m *Memory) DeleteTransactionsInRange(ctx context.Context, userID string, w domain.Window, kinds []domain.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, txn := range m.state.txns {
		if txn.UserID == userID && slices.Contains(kinds, txn.Kind) && w.Contains(txn.Date) {
			delete(m.state.txns, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.state.emails[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := m.state.users[id]
	return &u, nil
}

func (m *Memory) ListTransactions(ctx context.Context, userID string, kind domain.Kind) ([]domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.Transaction{}
	for _, txn := range m.state.txns {
		if txn.UserID == userID && (kind == "" || txn.Kind == kind) {
			out = append(out, txn)
		}
	}
	slices.SortFunc(out, func(a, b domain.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) Summarize(ctx context.Context, userID string, w domain.Window) (domain.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := domain.NewSummary()
	for _, txn := range m.state.txns {
		if txn.UserID == userID && w.Contains(txn.Date) {
			sum.Add(txn.Kind, txn.Amount)
		}
	}
	return sum, nil
}

func (m *Memory) ListObligations(ctx context.Context, email string) ([]domain.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.Obligation{}
	for _, o := range m.state.obligations {
		if o.Email == email {
			o.Periods = slices.Clone(o.Periods)
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b domain.Obligation) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

type memTx struct {
	st *memState
}

func (t *memTx) LockUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := t.st.emails[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return t.LockUser(ctx, id)
}

func (t *memTx) LockUser(ctx context.Context, id string) (*domain.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (t *memTx) LockTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, ok := t.st.txns[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return &txn, nil
}

func (t *memTx) LockObligation(ctx context.Context, id string) (*domain.Obligation, error) {
	o, ok := t.st.obligations[id]
	if !ok {
		return nil, domain.ErrObligationNotFound
	}
	o.Periods = slices.Clone(o.Periods)
	return &o, nil
}

func (t *memTx) AdjustBalance(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return decimal.Decimal{}, domain.ErrUserNotFound
	}
	u.Balance = u.Balance.Add(delta)
	u.UpdatedAt = time.Now().UTC()
	t.st.users[userID] = u
	return u.Balance, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.CreatedAt, txn.UpdatedAt = now, now
	t.st.txns[txn.ID] = *txn
	return nil
}

func (t *memTx) DeleteTransaction(ctx context.Context, id string) error {
	if _, ok := t.st.txns[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(t.st.txns, id)
	return nil
}

func (t *memTx) UpdateTransactionAmount(ctx context.Context, id string, amount decimal.Decimal) error {
	txn, ok := t.st.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	txn.Amount = amount
	txn.UpdatedAt = time.Now().UTC()
	t.st.txns[id] = txn
	return nil
}

func (t *memTx) SetObligationPeriods(ctx context.Context, id string, periods []string) error {
	o, ok := t.st.obligations[id]
	if !ok {
		return domain.ErrObligationNotFound
	}
	o.Periods = slices.Clone(periods)
	o.UpdatedAt = time.Now().UTC()
	t.st.obligations[id] = o
	return nil
}
