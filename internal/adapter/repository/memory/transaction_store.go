package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// TransactionStore implements domain.TransactionStore in memory.
// It preserves ledger insertion order per portfolio and hands out copies
// so callers cannot mutate stored state behind the store's back. Used by
// tests and the dev-mode server.
type TransactionStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.Transaction
	ledgers map[uuid.UUID][]*domain.Transaction // portfolioID -> insertion order
}

// NewTransactionStore creates an empty in-memory store
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byID:    make(map[uuid.UUID]*domain.Transaction),
		ledgers: make(map[uuid.UUID][]*domain.Transaction),
	}
}

// Append adds a newly recorded transaction to the ledger
func (s *TransactionStore) Append(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyTransaction(tx)
	s.byID[stored.ID] = stored
	s.ledgers[stored.PortfolioID] = append(s.ledgers[stored.PortfolioID], stored)
	return nil
}

// Save persists the current state of an existing transaction
func (s *TransactionStore) Save(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[tx.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*stored = *copyTransaction(tx)
	return nil
}

// GetByID retrieves a single transaction
func (s *TransactionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTransaction(stored), nil
}

// ListByPortfolio retrieves a portfolio's transactions matching the filter,
// in ledger insertion order
func (s *TransactionStore) ListByPortfolio(_ context.Context, portfolioID uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(portfolioID, "", filter), nil
}

// ListByPortfolioAndSymbol retrieves a portfolio's transactions for one
// ticker matching the filter, in ledger insertion order
func (s *TransactionStore) ListByPortfolioAndSymbol(_ context.Context, portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.list(portfolioID, ticker, filter), nil
}

func (s *TransactionStore) list(portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) []*domain.Transaction {
	out := make([]*domain.Transaction, 0)
	for _, tx := range s.ledgers[portfolioID] {
		if ticker != "" && tx.Symbol.Ticker != ticker {
			continue
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		out = append(out, copyTransaction(tx))
	}
	return out
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	dup := *tx
	if tx.MaturityDate != nil {
		m := *tx.MaturityDate
		dup.MaturityDate = &m
	}
	return &dup
}
