package httpserver

import (
	"time"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// Decimal values cross the wire as strings so that clients never round
// them through floats; dates are RFC 3339.

type recordTransactionRequest struct {
	Kind         string  `json:"kind"` // BUY, SELL, DIVIDEND, INTEREST
	Ticker       string  `json:"ticker"`
	Exchange     string  `json:"exchange"`
	AssetType    string  `json:"assetType"`
	Currency     string  `json:"currency"`
	Date         string  `json:"date"`
	Notes        string  `json:"notes"`
	Quantity     string  `json:"quantity,omitempty"`
	PricePerUnit string  `json:"pricePerUnit,omitempty"`
	Fee          *string `json:"fee,omitempty"`
	MaturityDate *string `json:"maturityDate,omitempty"`
	GrossAmount  string  `json:"grossAmount,omitempty"`
	TaxRate      *string `json:"taxRate,omitempty"`
}

type updateTransactionRequest struct {
	Date         *string `json:"date,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Quantity     *string `json:"quantity,omitempty"`
	PricePerUnit *string `json:"pricePerUnit,omitempty"`
	Fee          *string `json:"fee,omitempty"`
	MaturityDate *string `json:"maturityDate,omitempty"`
	GrossAmount  *string `json:"grossAmount,omitempty"`
	TaxRate      *string `json:"taxRate,omitempty"`
}

type transactionDTO struct {
	ID           string  `json:"id"`
	PortfolioID  string  `json:"portfolioId"`
	Kind         string  `json:"kind"`
	Ticker       string  `json:"ticker"`
	Exchange     string  `json:"exchange"`
	AssetType    string  `json:"assetType"`
	Currency     string  `json:"currency"`
	Date         string  `json:"date"`
	Status       string  `json:"status"`
	Notes        string  `json:"notes,omitempty"`
	Quantity     string  `json:"quantity,omitempty"`
	PricePerUnit string  `json:"pricePerUnit,omitempty"`
	Fee          string  `json:"fee,omitempty"`
	MaturityDate *string `json:"maturityDate,omitempty"`
	GrossAmount  string  `json:"grossAmount,omitempty"`
	TaxRate      string  `json:"taxRate,omitempty"`
	TaxWithheld  string  `json:"taxWithheld,omitempty"`
	NetAmount    string  `json:"netAmount,omitempty"`
}

type positionDTO struct {
	Ticker                    string  `json:"ticker"`
	Exchange                  string  `json:"exchange"`
	AssetType                 string  `json:"assetType"`
	Currency                  string  `json:"currency"`
	TotalQuantity             string  `json:"totalQuantity"`
	AverageCost               string  `json:"averageCost"`
	TotalCost                 string  `json:"totalCost"`
	CurrentPrice              string  `json:"currentPrice"`
	CurrentValue              string  `json:"currentValue"`
	UnrealizedGainLoss        string  `json:"unrealizedGainLoss"`
	UnrealizedGainLossPercent string  `json:"unrealizedGainLossPercent"`
	RealizedGainLoss          string  `json:"realizedGainLoss"`
	TotalDividends            string  `json:"totalDividends"`
	TotalInterest             string  `json:"totalInterest"`
	TotalIncome               string  `json:"totalIncome"`
	MaturityDate              *string `json:"maturityDate,omitempty"`
}

type summaryDTO struct {
	PortfolioID        string `json:"portfolioId"`
	Currency           string `json:"currency"`
	CurrentValue       string `json:"currentValue"`
	TotalCost          string `json:"totalCost"`
	UnrealizedGainLoss string `json:"unrealizedGainLoss"`
	RealizedGainLoss   string `json:"realizedGainLoss"`
	TotalDividends     string `json:"totalDividends"`
	TotalInterest      string `json:"totalInterest"`
}

type portfolioPositionsDTO struct {
	Positions []positionDTO `json:"positions"`
	Summary   summaryDTO    `json:"summary"`
}

func toTransactionDTO(tx *domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:          tx.ID.String(),
		PortfolioID: tx.PortfolioID.String(),
		Kind:        string(tx.Type),
		Ticker:      tx.Symbol.Ticker,
		Exchange:    tx.Symbol.Exchange,
		AssetType:   string(tx.Symbol.AssetType),
		Date:        tx.Date.Format(time.RFC3339),
		Status:      string(tx.Status),
		Notes:       tx.Notes,
	}

	switch tx.Type {
	case domain.TransactionTypeBuy, domain.TransactionTypeSell:
		dto.Currency = string(tx.PricePerUnit.Currency)
		dto.Quantity = tx.Quantity.String()
		dto.PricePerUnit = tx.PricePerUnit.Amount.String()
		dto.Fee = tx.Fee.Amount.String()
		if tx.MaturityDate != nil {
			m := tx.MaturityDate.Format(time.RFC3339)
			dto.MaturityDate = &m
		}
	case domain.TransactionTypeDividend, domain.TransactionTypeInterest:
		dto.Currency = string(tx.GrossAmount.Currency)
		dto.GrossAmount = tx.GrossAmount.Amount.String()
		dto.TaxRate = tx.TaxRate.String()
		dto.TaxWithheld = tx.TaxWithheld.Amount.String()
		dto.NetAmount = tx.NetAmount.Amount.String()
	}
	return dto
}

func toPositionDTO(p domain.Position) positionDTO {
	dto := positionDTO{
		Ticker:                    p.Symbol.Ticker,
		Exchange:                  p.Symbol.Exchange,
		AssetType:                 string(p.Symbol.AssetType),
		Currency:                  string(p.TotalCost.Currency),
		TotalQuantity:             p.TotalQuantity.String(),
		AverageCost:               p.AverageCost.Amount.String(),
		TotalCost:                 p.TotalCost.Amount.String(),
		CurrentPrice:              p.CurrentPrice.Amount.String(),
		CurrentValue:              p.CurrentValue.Amount.String(),
		UnrealizedGainLoss:        p.UnrealizedGainLoss.Amount.String(),
		UnrealizedGainLossPercent: p.UnrealizedGainLossPercent.String(),
		RealizedGainLoss:          p.RealizedGainLoss.Amount.String(),
		TotalDividends:            p.TotalDividends.Amount.String(),
		TotalInterest:             p.TotalInterest.Amount.String(),
		TotalIncome:               p.TotalIncome.Amount.String(),
	}
	if p.MaturityDate != nil {
		m := p.MaturityDate.Format(time.RFC3339)
		dto.MaturityDate = &m
	}
	return dto
}

func toSummaryDTO(s *domain.PortfolioSummary) summaryDTO {
	return summaryDTO{
		PortfolioID:        s.PortfolioID.String(),
		Currency:           string(s.Currency),
		CurrentValue:       s.CurrentValue.Amount.String(),
		TotalCost:          s.TotalCost.Amount.String(),
		UnrealizedGainLoss: s.UnrealizedGainLoss.Amount.String(),
		RealizedGainLoss:   s.RealizedGainLoss.Amount.String(),
		TotalDividends:     s.TotalDividends.Amount.String(),
		TotalInterest:      s.TotalInterest.Amount.String(),
	}
}
