package domain

import (
	"errors"
	"fmt"
)

// Business-rule rejections. These are terminal: retrying with the same input
// cannot succeed, so callers must never retry them.
var (
	ErrUnknownTicker        = errors.New("unknown ticker")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrPriceUnavailable     = errors.New("no positive market price")
)

// ErrStoreUnavailable marks persistence-layer failures. Unlike validation
// errors these are transient and a caller may retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// StoreError wraps a database error so it is distinguishable from a
// business-rule rejection via errors.Is(err, ErrStoreUnavailable).
func StoreError(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// IsValidationError reports whether err is a business-rule rejection
// rather than an infrastructure fault.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnknownTicker) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientHoldings) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrPriceUnavailable)
}
