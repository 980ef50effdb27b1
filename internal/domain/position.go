package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is the computed holding for one symbol in a portfolio.
// It is derived fresh from the active transaction history on every query
// and is never persisted. CurrentPrice is a proxy taken from the most
// recent trade, not a live quote.
type Position struct {
	Symbol                    Symbol
	TotalQuantity             decimal.Decimal
	AverageCost               Money
	TotalCost                 Money
	CurrentPrice              Money
	CurrentValue              Money
	UnrealizedGainLoss        Money
	UnrealizedGainLossPercent decimal.Decimal
	RealizedGainLoss          Money
	TotalDividends            Money
	TotalInterest             Money
	TotalIncome               Money
	MaturityDate              *time.Time
}

// PortfolioSummary aggregates totals across all positions of a portfolio
type PortfolioSummary struct {
	PortfolioID        uuid.UUID
	Currency           Currency
	CurrentValue       Money
	TotalCost          Money
	UnrealizedGainLoss Money
	RealizedGainLoss   Money
	TotalDividends     Money
	TotalInterest      Money
}
