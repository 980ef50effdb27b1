package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// RecordBuyInput represents the input for recording a purchase
type RecordBuyInput struct {
	PortfolioID  uuid.UUID
	Symbol       domain.Symbol
	Quantity     decimal.Decimal
	PricePerUnit domain.Money
	Fee          *domain.Money // Optional
	Date         time.Time
	MaturityDate *time.Time // Optional: bonds only
	Notes        string
}

// RecordSellInput represents the input for recording a sale
type RecordSellInput struct {
	PortfolioID  uuid.UUID
	Symbol       domain.Symbol
	Quantity     decimal.Decimal
	PricePerUnit domain.Money
	Fee          *domain.Money // Optional
	Date         time.Time
	Notes        string
}

// RecordIncomeInput represents the input for recording dividend or
// interest income
type RecordIncomeInput struct {
	PortfolioID uuid.UUID
	Symbol      domain.Symbol
	GrossAmount domain.Money
	TaxRate     *decimal.Decimal // Optional: percentage, defaults to the configured withholding rate
	Date        time.Time
	Notes       string
}

// Service handles ledger write operations: recording, amending and
// cancelling transactions. Every successful mutation is persisted first
// and then published to the event channel for downstream projections.
type Service struct {
	Store          domain.TransactionStore
	Publisher      domain.EventPublisher
	Logger         domain.Logger
	DefaultTaxRate *decimal.Decimal
}

// NewService creates a new ledger Service instance
// defaultTaxRate is the withholding percentage applied when income inputs
// omit an explicit rate; nil falls back to the domain default. An explicit
// zero is a valid configured rate and withholds nothing.
func NewService(store domain.TransactionStore, publisher domain.EventPublisher, logger domain.Logger, defaultTaxRate *decimal.Decimal) *Service {
	return &Service{
		Store:          store,
		Publisher:      publisher,
		Logger:         logger,
		DefaultTaxRate: defaultTaxRate,
	}
}

// RecordBuy appends a BUY transaction to the ledger
func (s *Service) RecordBuy(ctx context.Context, input RecordBuyInput) (*domain.Transaction, error) {
	tx, err := domain.RecordBuy(input.PortfolioID, input.Symbol, input.Quantity, input.PricePerUnit, input.Fee, input.Date, input.MaturityDate, input.Notes)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, tx)
}

// RecordSell appends a SELL transaction to the ledger
func (s *Service) RecordSell(ctx context.Context, input RecordSellInput) (*domain.Transaction, error) {
	tx, err := domain.RecordSell(input.PortfolioID, input.Symbol, input.Quantity, input.PricePerUnit, input.Fee, input.Date, input.Notes)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, tx)
}

// RecordDividend appends a DIVIDEND transaction to the ledger
func (s *Service) RecordDividend(ctx context.Context, input RecordIncomeInput) (*domain.Transaction, error) {
	tx, err := domain.RecordDividend(input.PortfolioID, input.Symbol, input.GrossAmount, s.taxRate(input.TaxRate), input.Date, input.Notes)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, tx)
}

// RecordInterest appends an INTEREST transaction to the ledger
func (s *Service) RecordInterest(ctx context.Context, input RecordIncomeInput) (*domain.Transaction, error) {
	tx, err := domain.RecordInterest(input.PortfolioID, input.Symbol, input.GrossAmount, s.taxRate(input.TaxRate), input.Date, input.Notes)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, tx)
}

// Update amends an active transaction
// Only fields relevant to the transaction's type are applied; state and
// validation errors from the domain operation propagate unchanged
func (s *Service) Update(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	tx, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Update(update); err != nil {
		return nil, err
	}

	if err := s.Store.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.Publisher.Publish(ctx, domain.TransactionUpdated{Transaction: *tx, OccurredAt: time.Now().UTC()})
	s.Logger.Info(ctx, "transaction updated", map[string]interface{}{"id": tx.ID.String()})
	return tx, nil
}

// Cancel transitions an active transaction to CANCELLED, excluding it
// from all future position calculations
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	tx, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := tx.Cancel(); err != nil {
		return err
	}

	if err := s.Store.Save(ctx, tx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	s.Publisher.Publish(ctx, domain.TransactionCancelled{
		TransactionID: tx.ID,
		PortfolioID:   tx.PortfolioID,
		OccurredAt:    time.Now().UTC(),
	})
	s.Logger.Info(ctx, "transaction cancelled", map[string]interface{}{"id": tx.ID.String()})
	return nil
}

func (s *Service) append(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if err := s.Store.Append(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	s.Publisher.Publish(ctx, domain.TransactionRecorded{Transaction: *tx, OccurredAt: time.Now().UTC()})
	s.Logger.Info(ctx, "transaction recorded", map[string]interface{}{
		"id":        tx.ID.String(),
		"portfolio": tx.PortfolioID.String(),
		"type":      string(tx.Type),
		"ticker":    tx.Symbol.Ticker,
	})
	return tx, nil
}

// taxRate substitutes the service-wide default when the caller gave none
func (s *Service) taxRate(explicit *decimal.Decimal) *decimal.Decimal {
	if explicit != nil {
		return explicit
	}
	if s.DefaultTaxRate == nil {
		return nil // fall through to the domain default
	}
	rate := *s.DefaultTaxRate
	return &rate
}
