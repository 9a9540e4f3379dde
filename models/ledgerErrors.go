package models

import (
	"errors"
	"fmt"
)

// Error taxonomy for the fuel ledger. Handlers map these to HTTP statuses:
// ErrValidation -> 400, ErrNotFound -> 404, ErrLedgerConflict -> 409,
// anything else -> 500/503. Nothing is ever auto-corrected: a negative ROB or
// an over-allocation always surfaces as a hard failure.
var (
	ErrValidation = errors.New("validation failed")

	ErrNotFound = errors.New("record not found")

	// ErrLedgerConflict is returned when a concurrent write to the same ledger
	// key is detected at commit time and the single retry also collided.
	ErrLedgerConflict = errors.New("concurrent ledger update detected, please resubmit")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
