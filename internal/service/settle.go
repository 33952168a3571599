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
)

// SettleFull closes a lend: the lend record is deleted, an "in" record for
// amount is created carrying the merged provenance note, and the owner's
// balance grows by amount.
func (l *Ledger) SettleFull(ctx context.Context, req domain.SettleFullRequest) (*domain.Settlement, error) {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.Date = strings.TrimSpace(req.Date)
	if err := check(req); err != nil {
		return nil, err
	}
	id := req.TransactionID
	date, note, err := settlementInput(req.Date, req.Note)
	if err != nil {
		return nil, err
	}
	amount, err := ledger.Amount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}

	in := &domain.Transaction{Kind: domain.KindIn, Amount: amount, Date: date}
	err = l.store.InTx(ctx, func(tx store.Tx) error {
		lend, err := lockLend(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.LockUser(ctx, lend.UserID); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, lend.ID); err != nil {
			return err
		}

		in.UserID = lend.UserID
		in.Notes = ledger.MergeNotes(ledger.FullClearMarker, lend.Notes, note)
		if err := tx.InsertTransaction(ctx, in); err != nil {
			return err
		}
		_, err = tx.AdjustBalance(ctx, lend.UserID, amount)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return &domain.Settlement{Success: true, Transaction: *in}, nil
}

// SettlePartial reduces a lend to its remaining amount, keeps it open and
// records the cleared part as an "in" movement.
func (l *Ledger) SettlePartial(ctx context.Context, req domain.SettlePartialRequest) (*domain.Settlement, error) {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.Date = strings.TrimSpace(req.Date)
	if err := check(req); err != nil {
		return nil, err
	}
	id := req.TransactionID
	date, note, err := settlementInput(req.Date, req.Note)
	if err != nil {
		return nil, err
	}
	cleared, err := ledger.Amount(req.ClearAmount, "clearAmount")
	if err != nil {
		return nil, err
	}
	var remaining decimal.Decimal
	if l.policy.Partial == PartialTrust || req.RemainingAmount.Valid {
		if remaining, err = ledger.Amount(req.RemainingAmount, "remainingAmount"); err != nil {
			return nil, err
		}
	}

	var result domain.Settlement
	err = l.store.InTx(ctx, func(tx store.Tx) error {
		lend, err := lockLend(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.policy.Partial == PartialVerify {
			if remaining, err = verifyRemaining(lend.Amount, cleared, req.RemainingAmount); err != nil {
				return err
			}
		}
		if _, err := tx.LockUser(ctx, lend.UserID); err != nil {
			return err
		}
		if err := tx.UpdateTransactionAmount(ctx, lend.ID, remaining); err != nil {
			return err
		}
		lend.Amount = remaining

		in := domain.Transaction{
			UserID: lend.UserID,
			Kind:   domain.KindIn,
			Amount: cleared,
			Notes:  ledger.MergeNotes(ledger.PartialClearMarker, lend.Notes, note),
			Date:   date,
		}
		if err := tx.InsertTransaction(ctx, &in); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, lend.UserID, cleared); err != nil {
			return err
		}
		result = domain.Settlement{Success: true, Transaction: in, Lend: lend}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return &result, nil
}

func settlementInput(rawDate, rawNote string) (date time.Time, note string, err error) {
	if date, err = ledger.ParseDate(rawDate); err != nil {
		return time.Time{}, "", err
	}
	if note, err = ledger.Notes(rawNote); err != nil {
		return time.Time{}, "", err
	}
	return date, note, nil
}

// lockLend resolves id to an open lend. Other kinds do not resolve.
func lockLend(ctx context.Context, tx store.Tx, id string) (*domain.Transaction, error) {
	txn, err := tx.LockTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Kind != domain.KindLend {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

// verifyRemaining derives the remainder from the outstanding amount and
// rejects a supplied remainder that disagrees with it.
func verifyRemaining(outstanding, cleared decimal.Decimal, supplied decimal.NullDecimal) (decimal.Decimal, error) {
	if !cleared.LessThan(outstanding) {
		return decimal.Decimal{}, fmt.Errorf("%w: clearAmount must be below the outstanding %s", domain.ErrInvalidAmount, outstanding)
	}
	remaining := outstanding.Sub(cleared)
	if supplied.Valid && !supplied.Decimal.Equal(remaining) {
		return decimal.Decimal{}, fmt.Errorf("%w: remainingAmount must be %s", domain.ErrInvalidAmount, remaining)
	}
	return remaining, nil
}
