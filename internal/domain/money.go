package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code supported by the ledger
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
	CurrencyPLN Currency = "PLN"
	CurrencyJPY Currency = "JPY"
)

// IsValid reports whether the currency is one of the supported codes
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF, CurrencyPLN, CurrencyJPY:
		return true
	}
	return false
}

// Money is an immutable amount paired with its currency.
// Construction rejects negative amounts; arithmetic results (gains, losses)
// may go negative. All operations return a new value and never mutate the
// operands.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney creates a Money value
// Returns an error for negative amounts or unknown currencies
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: money amount cannot be negative", ErrValidation)
	}
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("%w: unsupported currency %q", ErrValidation, currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// ZeroMoney returns a zero amount in the given currency
func ZeroMoney(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Add returns m + other
// Fails if the currencies differ
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: cannot add %s to %s", ErrCurrencyMismatch, other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other
// Fails if the currencies differ; the result may be negative
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrCurrencyMismatch, other.Currency, m.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Mul returns m scaled by the given factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Equal reports whether amount and currency match exactly
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.String() + " " + string(m.Currency)
}
