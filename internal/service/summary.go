package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/punchamoorthee/ledgerbook/internal/ledger"
)

// MonthlySummary totals a user's movements per kind for one calendar month.
func (l *Ledger) MonthlySummary(ctx context.Context, email string, year, month int) (domain.Summary, error) {
	w, err := ledger.MonthWindow(year, month)
	if err != nil {
		return domain.Summary{}, err
	}
	return l.summarize(ctx, email, w)
}

// RangeSummary totals a user's movements per kind from start-of-day on
// start through end-of-day on end.
func (l *Ledger) RangeSummary(ctx context.Context, email, start, end string) (domain.Summary, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return domain.Summary{}, fmt.Errorf("%w: start and end", domain.ErrMissingField)
	}
	w, err := ledger.DayRange(start, end)
	if err != nil {
		return domain.Summary{}, err
	}
	return l.summarize(ctx, email, w)
}

func (l *Ledger) summarize(ctx context.Context, email string, w domain.Window) (domain.Summary, error) {
	u, err := l.User(ctx, email)
	if err != nil {
		return domain.Summary{}, err
	}
	sum, err := l.reader.Summarize(ctx, u.ID, w)
	if err != nil {
		return domain.Summary{}, classify(err)
	}
	return sum, nil
}
