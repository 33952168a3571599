package domain

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrObligationNotFound  = errors.New("obligation not found")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid transaction type")
	ErrNotesTooLong  = errors.New("notes too long")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidName   = errors.New("invalid name")
	ErrWeakPassword  = errors.New("password too short")

	ErrUserExists          = errors.New("email already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPeriodNotPending    = errors.New("period is not pending")

	// ErrStorage means the atomic unit could not be committed. Nothing was applied.
	ErrStorage = errors.New("storage failure")
)

// IsNotFound reports whether err is one of the lookup failures.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrObligationNotFound)
}

// IsInvalidInput reports whether err is a malformed-input rejection.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrMissingField, ErrInvalidDate, ErrInvalidKind,
		ErrNotesTooLong, ErrInvalidEmail, ErrInvalidName, ErrWeakPassword,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err is a state conflict rather than bad input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUserExists) || errors.Is(err, ErrPeriodNotPending)
}

// Known reports whether err belongs to the domain taxonomy.
func Known(err error) bool {
	return IsNotFound(err) || IsInvalidInput(err) || IsConflict(err) ||
		errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrStorage)
}
