package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/ledger"
	"github.com/punchamoorthee/ledgerbook/internal/store"
)

// CreateObligation stores an installment schedule with its full set of
// pending periods.
func (l *Ledger) CreateObligation(ctx context.Context, req domain.CreateObligationRequest) (*domain.Obligation, error) {
	req.Email = ledger.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Periods = ledger.NormalizePeriods(req.Periods)
	if err := check(req); err != nil {
		return nil, err
	}
	amount, err := ledger.Amount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	u, err := l.User(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	o := &domain.Obligation{Email: u.Email, Name: req.Name, Amount: amount, Periods: req.Periods}
	if err := l.store.CreateObligation(ctx, o); err != nil {
		return nil, classify(err)
	}
	return o, nil
}

// Obligations lists the schedules owned by email.
func (l *Ledger) Obligations(ctx context.Context, email string) ([]domain.Obligation, error) {
	email = ledger.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email", domain.ErrMissingField)
	}
	list, err := l.reader.ListObligations(ctx, email)
	if err != nil {
		return nil, classify(err)
	}
	return list, nil
}

// PayInstallment removes period from the obligation's pending set, debits
// amount from the owner's balance and records an "out" movement, all in
// one unit. Paying a period that is no longer pending follows the repay
// policy.
func (l *Ledger) PayInstallment(ctx context.Context, req domain.PayInstallmentRequest) (*domain.Payment, error) {
	req.Email = ledger.NormalizeEmail(req.Email)
	req.ObligationID = strings.TrimSpace(req.ObligationID)
	req.Period = strings.TrimSpace(req.Period)
	if err := check(req); err != nil {
		return nil, err
	}
	email, id, period := req.Email, req.ObligationID, req.Period
	amount, err := ledger.Amount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	note, err := ledger.Notes(req.Note)
	if err != nil {
		return nil, err
	}

	var payment domain.Payment
	err = l.store.InTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if err := ledger.CheckBalance(u.Balance, domain.KindOut, amount, false); err != nil {
			return err
		}
		o, err := tx.LockObligation(ctx, id)
		if err != nil {
			return err
		}
		if o.Email != email {
			return domain.ErrObligationNotFound
		}
		if !o.HasPeriod(period) && l.policy.Repay == RepayReject {
			return fmt.Errorf("%w: %s", domain.ErrPeriodNotPending, period)
		}

		o.Periods = o.WithoutPeriod(period)
		if err := tx.SetObligationPeriods(ctx, o.ID, o.Periods); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, u.ID, ledger.Delta(domain.KindOut, amount)); err != nil {
			return err
		}
		txn := domain.Transaction{UserID: u.ID, Kind: domain.KindOut, Amount: amount, Notes: note, Date: l.now()}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return err
		}
		payment = domain.Payment{Obligation: *o, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return &payment, nil
}

// ClearPeriod removes period from the pending set without moving money.
func (l *Ledger) ClearPeriod(ctx context.Context, obligationID, period string) (*domain.Obligation, error) {
	obligationID = strings.TrimSpace(obligationID)
	period = strings.TrimSpace(period)
	if obligationID == "" || period == "" {
		return nil, fmt.Errorf("%w: emiId and month", domain.ErrMissingField)
	}

	var out *domain.Obligation
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockObligation(ctx, obligationID)
		if err != nil {
			return err
		}
		o.Periods = o.WithoutPeriod(period)
		if err := tx.SetObligationPeriods(ctx, o.ID, o.Periods); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
