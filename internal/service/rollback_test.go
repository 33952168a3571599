package service

import (
	"context"
	"errors"
	"testing"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// flakyStore fails every InsertTransaction while broken is set, after the
// earlier steps of the unit have already run.
type flakyStore struct {
	*store.Memory
	broken bool
}

func (s *flakyStore) InTx(ctx context.Context, fn store.TxFunc) error {
	return s.Memory.InTx(ctx, func(tx store.Tx) error {
		if s.broken {
			tx = flakyTx{Tx: tx}
		}
		return fn(tx)
	})
}

type flakyTx struct {
	store.Tx
}

func (flakyTx) InsertTransaction(context.Context, *domain.Transaction) error {
	return errDiskFull
}

func newFlakyLedger(t *testing.T) (*Ledger, *flakyStore) {
	t.Helper()
	fs := &flakyStore{Memory: store.NewMemory()}
	l := NewLedger(fs, fs, DefaultPolicy)
	_, err := l.Register(context.Background(), domain.RegisterRequest{
		Name: "Sam", Email: testEmail, Password: "password123",
	})
	require.NoError(t, err)
	return l, fs
}

func TestSettleFullRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	l, fs := newFlakyLedger(t)
	record(t, l, domain.KindIn, "100", "", "")
	lend := record(t, l, domain.KindLend, "30", "", "")

	fs.broken = true
	_, err := l.SettleFull(ctx, domain.SettleFullRequest{TransactionID: lend.ID, Amount: amt("30"), Date: "2025-08-20"})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, errDiskFull)
	fs.broken = false

	lends, err := l.Transactions(ctx, testEmail, "lend")
	require.NoError(t, err)
	require.Len(t, lends, 1)
	assert.Equal(t, lend.ID, lends[0].ID)
	assertDecimal(t, "70", balance(t, l))
}

func TestSettlePartialRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	l, fs := newFlakyLedger(t)
	record(t, l, domain.KindIn, "100", "", "")
	lend := record(t, l, domain.KindLend, "80", "", "")

	fs.broken = true
	_, err := l.SettlePartial(ctx, domain.SettlePartialRequest{
		TransactionID: lend.ID, ClearAmount: amt("30"), RemainingAmount: amt("50"), Date: "2025-08-20",
	})
	assert.ErrorIs(t, err, domain.ErrStorage)
	fs.broken = false

	lends, err := l.Transactions(ctx, testEmail, "lend")
	require.NoError(t, err)
	require.Len(t, lends, 1)
	assertDecimal(t, "80", lends[0].Amount)
	assertDecimal(t, "20", balance(t, l))

	ins, err := l.Transactions(ctx, testEmail, "in")
	require.NoError(t, err)
	assert.Len(t, ins, 1)
}

func TestPayInstallmentRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	l, fs := newFlakyLedger(t)
	record(t, l, domain.KindIn, "100", "", "")
	o, err := l.CreateObligation(ctx, domain.CreateObligationRequest{
		Email: testEmail, Name: "Phone", Amount: amt("25"), Periods: []string{"2025-08", "2025-09"},
	})
	require.NoError(t, err)

	fs.broken = true
	_, err = l.PayInstallment(ctx, domain.PayInstallmentRequest{
		Email: testEmail, ObligationID: o.ID, Period: "2025-08", Amount: amt("25"),
	})
	assert.ErrorIs(t, err, domain.ErrStorage)
	fs.broken = false

	list, err := l.Obligations(ctx, testEmail)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"2025-08", "2025-09"}, list[0].Periods)
	assertDecimal(t, "100", balance(t, l))

	outs, err := l.Transactions(ctx, testEmail, "out")
	require.NoError(t, err)
	assert.Empty(t, outs)
}
