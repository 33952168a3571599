package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a monetary movement.
type Kind string

const (
	KindLend Kind = "lend"
	KindIn   Kind = "in"
	KindOut  Kind = "out"
)

// Kinds lists every movement kind in display order.
var Kinds = []Kind{KindLend, KindIn, KindOut}

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	if k := Kind(s); slices.Contains(Kinds, k) {
		return k, nil
	}
	return "", ErrInvalidKind
}

// User holds the single scalar balance the ledger mutates.
type User struct {
	ID            string          `db:"id" json:"id"`
	Email         string          `db:"email" json:"email"`
	Name          string          `db:"name" json:"name"`
	PasswordHash  string          `db:"password_hash" json:"-"`
	EmailVerified bool            `db:"email_verified" json:"emailVerified"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// Transaction is an immutable movement record. The only mutation allowed
// after creation is the amount reduction of a partially settled lend.
type Transaction struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"userId"`
	Kind      Kind            `db:"kind" json:"type"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Notes     string          `db:"notes" json:"notes"`
	Date      time.Time       `db:"date" json:"date"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Obligation is an installment schedule. Periods holds the pending period
// tokens (e.g. "2025-08"); it only ever shrinks.
type Obligation struct {
	ID        string          `db:"id" json:"id"`
	Email     string          `db:"email" json:"email"`
	Name      string          `db:"name" json:"name"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Periods   []string        `db:"periods" json:"months"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// HasPeriod reports whether period is still pending.
func (o *Obligation) HasPeriod(period string) bool {
	for _, p := range o.Periods {
		if p == period {
			return true
		}
	}
	return false
}

// WithoutPeriod returns the pending set minus period. Removing an absent
// period returns an equal set.
func (o *Obligation) WithoutPeriod(period string) []string {
	out := make([]string, 0, len(o.Periods))
	for _, p := range o.Periods {
		if p != period {
			out = append(out, p)
		}
	}
	return out
}

// Summary totals amounts per kind. All three kinds are always present.
type Summary struct {
	Lend decimal.Decimal `json:"lend"`
	In   decimal.Decimal `json:"in"`
	Out  decimal.Decimal `json:"out"`
}

// NewSummary returns a summary with every kind at zero.
func NewSummary() Summary {
	return Summary{Lend: decimal.Zero, In: decimal.Zero, Out: decimal.Zero}
}

// Add accumulates amount under kind.
func (s *Summary) Add(kind Kind, amount decimal.Decimal) {
	switch kind {
	case KindLend:
		s.Lend = s.Lend.Add(amount)
	case KindIn:
		s.In = s.In.Add(amount)
	case KindOut:
		s.Out = s.Out.Add(amount)
	}
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Payment is the result of paying one installment period.
type Payment struct {
	Obligation  Obligation  `json:"emi"`
	Transaction Transaction `json:"transaction"`
}
