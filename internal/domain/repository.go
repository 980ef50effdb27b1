package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionFilter narrows a ledger listing.
// Nil fields mean "no constraint". From and To bound the transaction date
// inclusively.
type TransactionFilter struct {
	Status *TransactionStatus
	From   *time.Time
	To     *time.Time
}

// ActiveOnly is a filter for the transactions that count toward positions
func ActiveOnly() TransactionFilter {
	status := TransactionStatusActive
	return TransactionFilter{Status: &status}
}

// TransactionStore defines the interface for ledger persistence.
// The ledger is append-only: Append adds new entries, Save persists
// amendments and cancellations made through the domain operations, and
// nothing is ever physically deleted. Listings return transactions in
// ledger insertion order.
type TransactionStore interface {
	// Append adds a newly recorded transaction to the ledger
	Append(ctx context.Context, tx *Transaction) error

	// Save persists the current state of an existing transaction
	Save(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a single transaction
	// Returns ErrNotFound if no transaction has the given id
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByPortfolio retrieves a portfolio's transactions matching the filter
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, filter TransactionFilter) ([]*Transaction, error)

	// ListByPortfolioAndSymbol retrieves a portfolio's transactions for one
	// ticker matching the filter
	ListByPortfolioAndSymbol(ctx context.Context, portfolioID uuid.UUID, ticker string, filter TransactionFilter) ([]*Transaction, error)
}
