package domain

import "github.com/shopspring/decimal"

// RegisterRequest creates a user with a zero balance.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RecordRequest is the payload for recording a movement.
// Previous marks a backfilled lend that skips the funds check.
type RecordRequest struct {
	Email    string              `json:"email" validate:"required"`
	Kind     Kind                `json:"type" validate:"required"`
	Amount   decimal.NullDecimal `json:"amount"`
	Notes    string              `json:"notes"`
	Date     string              `json:"date"`
	Previous bool                `json:"isPrevious"`
}

// DeleteRangeRequest removes in/out movements between two days inclusive.
type DeleteRangeRequest struct {
	Email     string `json:"email" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// SettleFullRequest closes a lend.
type SettleFullRequest struct {
	TransactionID string              `json:"transactionId" validate:"required"`
	Amount        decimal.NullDecimal `json:"amount"`
	Date          string              `json:"date" validate:"required"`
	Note          string              `json:"note"`
}

// SettlePartialRequest reduces a lend to RemainingAmount.
type SettlePartialRequest struct {
	TransactionID   string              `json:"transactionId" validate:"required"`
	ClearAmount     decimal.NullDecimal `json:"clearAmount"`
	RemainingAmount decimal.NullDecimal `json:"remainingAmount"`
	Date            string              `json:"date" validate:"required"`
	Note            string              `json:"note"`
}

// CreateObligationRequest creates an installment schedule.
type CreateObligationRequest struct {
	Email   string              `json:"email" validate:"required"`
	Name    string              `json:"name" validate:"required"`
	Amount  decimal.NullDecimal `json:"amount"`
	Periods []string            `json:"months" validate:"min=1"`
}

// PayInstallmentRequest pays one period of an obligation.
type PayInstallmentRequest struct {
	Email        string              `json:"email" validate:"required"`
	ObligationID string              `json:"emiId" validate:"required"`
	Period       string              `json:"month" validate:"required"`
	Amount       decimal.NullDecimal `json:"amount"`
	Note         string              `json:"note"`
}

// Settlement reports the compensating "in" record of a settlement and,
// for a partial settlement, the reduced lend that stays open.
type Settlement struct {
	Success     bool         `json:"success"`
	Transaction Transaction  `json:"transaction"`
	Lend        *Transaction `json:"lend,omitempty"`
}
