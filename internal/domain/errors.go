package domain

import "errors"

var (
	// ErrInvalidAmount occurs when an amount is zero, negative, or malformed.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound covers both missing resources and resources the caller may
	// not see; the two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds occurs when a debit would drive a balance negative,
	// checked at the moment of mutation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict covers state conflicts such as deleting a funded account, or
	// storage contention that exhausted its retry budget.
	ErrConflict = errors.New("conflict")

	// ErrForbidden guards operations that reveal restricted-but-existing
	// resources, such as the admin-wide transaction listing.
	ErrForbidden = errors.New("forbidden")
)
