package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Typed errors reported to the API layer. All are recoverable; the core
// never retries a financial mutation on its own.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrPropertyNotFound = errors.New("property not found")
	ErrDealNotFound     = errors.New("deal not found")
	ErrTreasuryNotFound = errors.New("treasury account not found")
	ErrUserNotFound     = errors.New("user not found")

	// ErrInvalidState: the deal is not in the lifecycle state the requested
	// transition expects.
	ErrInvalidState = errors.New("deal not in expected state")

	// ErrAlreadyCommitted: the property is already sold.
	ErrAlreadyCommitted = errors.New("property already committed to a sale")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUserBlocked       = errors.New("user is blocked")

	// ErrConflict: an optimistic-lock update lost the race; the caller may
	// retry the whole operation.
	ErrConflict = errors.New("concurrent update conflict")
)

func insufficientFunds(party string, required, available int64) error {
	return fmt.Errorf("%w: %s requires %d, has %d", ErrInsufficientFunds, party, required, available)
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrPropertyNotFound),
		errors.Is(err, ErrDealNotFound),
		errors.Is(err, ErrTreasuryNotFound),
		errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrAlreadyCommitted),
		errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserBlocked):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// isPreconditionFailure reports whether a finalization error is a business
// precondition (deal goes to FAILED) rather than an infrastructure fault
// (deal stays PENDING for retry).
func isPreconditionFailure(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAlreadyCommitted) ||
		errors.Is(err, ErrInvalidAmount)
}
