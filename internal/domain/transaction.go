package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of ledger entry
type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "BUY"
	TransactionTypeSell     TransactionType = "SELL"
	TransactionTypeDividend TransactionType = "DIVIDEND"
	TransactionTypeInterest TransactionType = "INTEREST"
)

// TransactionStatus represents the lifecycle state of a ledger entry
type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "ACTIVE"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// DefaultTaxRate is the withholding percentage applied to dividend and
// interest income when no explicit rate is given.
var DefaultTaxRate = decimal.NewFromInt(19)

// Transaction represents one entry in the append-only portfolio ledger.
// Entries are never deleted; amendments go through Update and removals
// through Cancel. Which fields are meaningful depends on Type:
// BUY/SELL carry quantity, price and fee, DIVIDEND/INTEREST carry the
// gross amount and the withholding breakdown derived from it.
type Transaction struct {
	ID          uuid.UUID
	PortfolioID uuid.UUID
	Type        TransactionType
	Symbol      Symbol
	Date        time.Time
	Status      TransactionStatus
	Notes       string

	// Trade fields (BUY, SELL)
	Quantity     decimal.Decimal
	PricePerUnit Money
	Fee          Money
	MaturityDate *time.Time // bonds only, BUY only

	// Income fields (DIVIDEND, INTEREST)
	GrossAmount Money
	TaxRate     decimal.Decimal // percentage
	TaxWithheld Money
	NetAmount   Money
}

// TransactionUpdate carries the amendable fields of a transaction.
// Nil fields are left untouched. Fields that do not apply to the
// transaction's type are ignored.
type TransactionUpdate struct {
	Date         *time.Time
	Notes        *string
	Quantity     *decimal.Decimal
	PricePerUnit *Money
	Fee          *Money
	MaturityDate *time.Time
	GrossAmount  *Money
	TaxRate      *decimal.Decimal
}

// RecordBuy creates a BUY transaction
// fee may be nil and defaults to zero in the price currency; maturityDate
// is only meaningful for bonds
func RecordBuy(portfolioID uuid.UUID, symbol Symbol, quantity decimal.Decimal, pricePerUnit Money, fee *Money, date time.Time, maturityDate *time.Time, notes string) (*Transaction, error) {
	tx, err := newTrade(TransactionTypeBuy, portfolioID, symbol, quantity, pricePerUnit, fee, date, notes)
	if err != nil {
		return nil, err
	}
	if maturityDate != nil {
		utc := maturityDate.UTC()
		tx.MaturityDate = &utc
	}
	return tx, nil
}

// RecordSell creates a SELL transaction
func RecordSell(portfolioID uuid.UUID, symbol Symbol, quantity decimal.Decimal, pricePerUnit Money, fee *Money, date time.Time, notes string) (*Transaction, error) {
	return newTrade(TransactionTypeSell, portfolioID, symbol, quantity, pricePerUnit, fee, date, notes)
}

// RecordDividend creates a DIVIDEND transaction
// taxRate is a percentage; nil applies DefaultTaxRate
func RecordDividend(portfolioID uuid.UUID, symbol Symbol, grossAmount Money, taxRate *decimal.Decimal, date time.Time, notes string) (*Transaction, error) {
	return newIncome(TransactionTypeDividend, portfolioID, symbol, grossAmount, taxRate, date, notes)
}

// RecordInterest creates an INTEREST transaction
// taxRate is a percentage; nil applies DefaultTaxRate
func RecordInterest(portfolioID uuid.UUID, symbol Symbol, grossAmount Money, taxRate *decimal.Decimal, date time.Time, notes string) (*Transaction, error) {
	return newIncome(TransactionTypeInterest, portfolioID, symbol, grossAmount, taxRate, date, notes)
}

func newTrade(txType TransactionType, portfolioID uuid.UUID, symbol Symbol, quantity decimal.Decimal, pricePerUnit Money, fee *Money, date time.Time, notes string) (*Transaction, error) {
	if portfolioID == uuid.Nil {
		return nil, fmt.Errorf("%w: portfolio ID is required", ErrValidation)
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	actualFee := ZeroMoney(pricePerUnit.Currency)
	if fee != nil {
		if fee.Currency != pricePerUnit.Currency {
			return nil, fmt.Errorf("%w: fee currency %s does not match price currency %s", ErrCurrencyMismatch, fee.Currency, pricePerUnit.Currency)
		}
		if fee.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: fee cannot be negative", ErrValidation)
		}
		actualFee = *fee
	}

	return &Transaction{
		ID:           uuid.New(),
		PortfolioID:  portfolioID,
		Type:         txType,
		Symbol:       symbol,
		Date:         date.UTC(),
		Status:       TransactionStatusActive,
		Notes:        notes,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Fee:          actualFee,
	}, nil
}

func newIncome(txType TransactionType, portfolioID uuid.UUID, symbol Symbol, grossAmount Money, taxRate *decimal.Decimal, date time.Time, notes string) (*Transaction, error) {
	if portfolioID == uuid.Nil {
		return nil, fmt.Errorf("%w: portfolio ID is required", ErrValidation)
	}
	if grossAmount.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: gross amount cannot be negative", ErrValidation)
	}
	rate := DefaultTaxRate
	if taxRate != nil {
		rate = *taxRate
	}
	if err := validateTaxRate(rate); err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		Type:        txType,
		Symbol:      symbol,
		Date:        date.UTC(),
		Status:      TransactionStatusActive,
		Notes:       notes,
		GrossAmount: grossAmount,
		TaxRate:     rate,
	}
	tx.recomputeWithholding()
	return tx, nil
}

// Update amends the transaction in place.
// Only fields relevant to the transaction's type are applied; tax
// withholding and net amount are recomputed whenever gross amount or tax
// rate change. Fails if the transaction has been cancelled.
func (t *Transaction) Update(update TransactionUpdate) error {
	if t.Status == TransactionStatusCancelled {
		return fmt.Errorf("cannot update: %w", ErrTransactionCancelled)
	}

	if update.Date != nil {
		t.Date = update.Date.UTC()
	}
	if update.Notes != nil {
		t.Notes = *update.Notes
	}

	switch t.Type {
	case TransactionTypeBuy, TransactionTypeSell:
		if update.Quantity != nil {
			if update.Quantity.LessThanOrEqual(decimal.Zero) {
				return fmt.Errorf("%w: quantity must be positive", ErrValidation)
			}
			t.Quantity = *update.Quantity
		}
		// The fee must stay in the price currency whichever of the two
		// fields changes; a zero fee follows a price currency change
		price := t.PricePerUnit
		if update.PricePerUnit != nil {
			price = *update.PricePerUnit
		}
		fee := t.Fee
		if update.Fee != nil {
			fee = *update.Fee
		}
		if fee.Currency != price.Currency {
			if !fee.Amount.IsZero() {
				return fmt.Errorf("%w: fee currency %s does not match price currency %s", ErrCurrencyMismatch, fee.Currency, price.Currency)
			}
			fee = ZeroMoney(price.Currency)
		}
		t.PricePerUnit = price
		t.Fee = fee
		if update.MaturityDate != nil && t.Type == TransactionTypeBuy {
			utc := update.MaturityDate.UTC()
			t.MaturityDate = &utc
		}
	case TransactionTypeDividend, TransactionTypeInterest:
		if update.GrossAmount != nil {
			if update.GrossAmount.Amount.IsNegative() {
				return fmt.Errorf("%w: gross amount cannot be negative", ErrValidation)
			}
			t.GrossAmount = *update.GrossAmount
		}
		if update.TaxRate != nil {
			if err := validateTaxRate(*update.TaxRate); err != nil {
				return err
			}
			t.TaxRate = *update.TaxRate
		}
		t.recomputeWithholding()
	}

	return nil
}

// Cancel transitions the transaction to CANCELLED.
// The transition is one-way; cancelling an already cancelled transaction
// fails and leaves the transaction unchanged.
func (t *Transaction) Cancel() error {
	if t.Status == TransactionStatusCancelled {
		return fmt.Errorf("cannot cancel: %w", ErrTransactionCancelled)
	}
	t.Status = TransactionStatusCancelled
	return nil
}

// IsActive reports whether the transaction counts toward positions
func (t *Transaction) IsActive() bool {
	return t.Status == TransactionStatusActive
}

// recomputeWithholding derives TaxWithheld and NetAmount from the current
// gross amount and tax rate
func (t *Transaction) recomputeWithholding() {
	oneHundred := decimal.NewFromInt(100)
	t.TaxWithheld = t.GrossAmount.Mul(t.TaxRate.Div(oneHundred))
	t.NetAmount = Money{
		Amount:   t.GrossAmount.Amount.Sub(t.TaxWithheld.Amount),
		Currency: t.GrossAmount.Currency,
	}
}

func validateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: tax rate must be between 0 and 100", ErrValidation)
	}
	return nil
}
