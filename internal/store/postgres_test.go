package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to LEDGER_TEST_DB_SOURCE and starts from empty tables.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DB_SOURCE")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DB_SOURCE not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn, 30)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE TABLE transactions, obligations, users")
	require.NoError(t, err)
	return pool
}

func TestLedgerStoreCreateUser(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()

	u := &domain.User{Email: "sam@example.com", Name: "Sam", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	err := s.CreateUser(ctx, &domain.User{Email: "sam@example.com", Name: "Sam", PasswordHash: "x"})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLedgerStoreDecimalRoundTrip(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()
	u := &domain.User{Email: "sam@example.com", Name: "Sam", PasswordHash: "x", Balance: decimal.RequireFromString("0.10")}
	require.NoError(t, s.CreateUser(ctx, u))

	var got decimal.Decimal
	err := s.InTx(ctx, func(tx Tx) error {
		var err error
		got, err = tx.AdjustBalance(ctx, u.ID, decimal.RequireFromString("0.20"))
		return err
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.30").Equal(got), got.String())
}

func TestLedgerStoreRollback(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()
	u := &domain.User{Email: "sam@example.com", Name: "Sam", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, u))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx Tx) error {
		if _, err := tx.AdjustBalance(ctx, u.ID, decimal.NewFromInt(10)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockUser(ctx, u.ID)
		if err != nil {
			return err
		}
		assert.True(t, locked.Balance.IsZero())
		return nil
	})
	require.NoError(t, err)
}

// Concurrent debits against one row serialize on the row lock, so the
// funds check always sees the latest committed balance.
func TestLedgerStoreConcurrentDebits(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()
	u := &domain.User{Email: "sam@example.com", Name: "Sam", PasswordHash: "x", Balance: decimal.NewFromInt(100)}
	require.NoError(t, s.CreateUser(ctx, u))

	insufficient := errors.New("insufficient")
	debit := decimal.NewFromInt(10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(tx Tx) error {
				locked, err := tx.LockUser(ctx, u.ID)
				if err != nil {
					return err
				}
				if locked.Balance.LessThan(debit) {
					return insufficient
				}
				if _, err := tx.AdjustBalance(ctx, u.ID, debit.Neg()); err != nil {
					return err
				}
				return tx.InsertTransaction(ctx, &domain.Transaction{
					UserID: u.ID, Kind: domain.KindOut, Amount: debit, Date: time.Now().UTC(),
				})
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, insufficient) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	err := s.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockUser(ctx, u.ID)
		if err != nil {
			return err
		}
		assert.True(t, locked.Balance.IsZero(), locked.Balance.String())
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStoreSettlementPrimitives(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()
	u := &domain.User{Email: "sam@example.com", Name: "Sam", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, u))

	lend := &domain.Transaction{UserID: u.ID, Kind: domain.KindLend, Amount: decimal.NewFromInt(80), Notes: "Trip", Date: time.Now().UTC()}
	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.InsertTransaction(ctx, lend) }))

	err := s.InTx(ctx, func(tx Tx) error {
		got, err := tx.LockTransaction(ctx, lend.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, domain.KindLend, got.Kind)
		assert.Equal(t, "Trip", got.Notes)
		return tx.UpdateTransactionAmount(ctx, lend.ID, decimal.NewFromInt(50))
	})
	require.NoError(t, err)

	require.NoError(t, s.InTx(ctx, func(tx Tx) error { return tx.DeleteTransaction(ctx, lend.ID) }))
	err = s.InTx(ctx, func(tx Tx) error {
		_, err := tx.LockTransaction(ctx, lend.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestLedgerStoreObligations(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()

	o := &domain.Obligation{Email: "sam@example.com", Name: "Phone", Amount: decimal.NewFromInt(25), Periods: []string{"2025-08", "2025-09"}}
	require.NoError(t, s.CreateObligation(ctx, o))

	err := s.InTx(ctx, func(tx Tx) error {
		got, err := tx.LockObligation(ctx, o.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"2025-08", "2025-09"}, got.Periods)
		return tx.SetObligationPeriods(ctx, o.ID, got.WithoutPeriod("2025-08"))
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx Tx) error {
		got, err := tx.LockObligation(ctx, o.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"2025-09"}, got.Periods)
		return nil
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx Tx) error {
		_, err := tx.LockObligation(ctx, "missing")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrObligationNotFound)
}

func TestLedgerStoreSeedAndDeleteRange(t *testing.T) {
	s := NewLedgerStore(testPool(t))
	ctx := context.Background()

	n, err := s.SeedUsers(ctx, []domain.User{
		{ID: "u-1", Email: "a@example.com", Name: "A", PasswordHash: "x", Balance: decimal.NewFromInt(100)},
		{ID: "u-2", Email: "b@example.com", Name: "B", PasswordHash: "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	day := func(d int) time.Time { return time.Date(2025, 8, d, 12, 0, 0, 0, time.UTC) }
	err = s.InTx(ctx, func(tx Tx) error {
		for _, txn := range []domain.Transaction{
			{UserID: "u-1", Kind: domain.KindIn, Amount: decimal.NewFromInt(1), Date: day(1)},
			{UserID: "u-1", Kind: domain.KindLend, Amount: decimal.NewFromInt(1), Date: day(1)},
			{UserID: "u-1", Kind: domain.KindOut, Amount: decimal.NewFromInt(1), Date: day(20)},
			{UserID: "u-2", Kind: domain.KindIn, Amount: decimal.NewFromInt(1), Date: day(1)},
		} {
			if err := tx.InsertTransaction(ctx, &txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	w := domain.Window{Start: day(1).Add(-12 * time.Hour), End: day(2).Add(-12 * time.Hour)}
	deleted, err := s.DeleteTransactionsInRange(ctx, "u-1", w, []domain.Kind{domain.KindIn, domain.KindOut})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
