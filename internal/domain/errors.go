package domain

import "errors"

// Standard domain errors.
// Callers distinguish failure classes with errors.Is; adapters wrap
// infrastructure failures with these sentinels where applicable.
var (
	// ErrValidation marks caller mistakes caught at construction or update time
	ErrValidation = errors.New("validation failed")

	// ErrCurrencyMismatch marks arithmetic between two different currencies
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrTransactionCancelled marks an update or cancel attempt on a transaction
	// that has already been cancelled
	ErrTransactionCancelled = errors.New("transaction is cancelled")

	// ErrNotFound marks a lookup for a transaction that does not exist
	ErrNotFound = errors.New("transaction not found")

	// ErrMixedPortfolios marks a position computation over transactions that
	// belong to more than one portfolio; this is a programmer error upstream
	ErrMixedPortfolios = errors.New("transactions span more than one portfolio")
)
