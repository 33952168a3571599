// Package ledger holds the pure rules of the ledger: the balance
// invariant, balance deltas, input normalization and note merging.
// Nothing here touches storage.
package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/punchamoorthee/ledgerbook/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxNotesLength bounds the notes of a transaction, in characters.
const MaxNotesLength = 200

// Settlement note markers.
const (
	FullClearMarker    = "Cleared from lent"
	PartialClearMarker = "Partial clear from lent"
	NoteSeparator      = " • "
)

// CheckBalance decides whether a movement may proceed against balance.
// Outgoing movements (lend, out) need balance >= amount, except a lend
// flagged as a backfill. Incoming movements are always allowed.
func CheckBalance(balance decimal.Decimal, kind domain.Kind, amount decimal.Decimal, backfill bool) error {
	switch kind {
	case domain.KindIn:
		return nil
	case domain.KindLend:
		if backfill {
			return nil
		}
	case domain.KindOut:
	default:
		return domain.ErrInvalidKind
	}
	if balance.LessThan(amount) {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// Delta is the signed balance change a movement of kind applies.
func Delta(kind domain.Kind, amount decimal.Decimal) decimal.Decimal {
	if kind == domain.KindIn {
		return amount
	}
	return amount.Neg()
}

// Amount validates a required positive amount. field names the input in
// the returned error.
func Amount(v decimal.NullDecimal, field string) (decimal.Decimal, error) {
	if !v.Valid {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", domain.ErrMissingField, field)
	}
	if !v.Decimal.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s must be positive", domain.ErrInvalidAmount, field)
	}
	return v.Decimal, nil
}

// Notes trims caller-supplied notes and enforces the length bound.
func Notes(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxNotesLength {
		return "", fmt.Errorf("%w: at most %d characters", domain.ErrNotesTooLong, MaxNotesLength)
	}
	return s, nil
}

// MergeNotes joins the trimmed, non-empty fragments in order with
// NoteSeparator. The result is cut to MaxNotesLength characters.
func MergeNotes(fragments ...string) string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			kept = append(kept, f)
		}
	}
	merged := strings.Join(kept, NoteSeparator)
	if utf8.RuneCountInString(merged) <= MaxNotesLength {
		return merged
	}
	return strings.TrimSpace(string([]rune(merged)[:MaxNotesLength]))
}

// NormalizeEmail lower-cases and trims an identity so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePeriods trims period tokens, drops empties and duplicates and
// keeps first-seen order.
func NormalizePeriods(periods []string) []string {
	seen := make(map[string]struct{}, len(periods))
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
