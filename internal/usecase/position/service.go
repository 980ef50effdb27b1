package position

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// Service computes positions and portfolio summaries from the transaction
// ledger. It is stateless: every call loads a fresh snapshot of active
// transactions and folds it, so concurrent callers never interfere and
// repeated calls over the same ledger state yield identical output.
type Service struct {
	Store        domain.TransactionStore
	Logger       domain.Logger
	BaseCurrency domain.Currency
}

// NewService creates a new position Service instance
// baseCurrency is used for the summary of a portfolio with no positions
func NewService(store domain.TransactionStore, logger domain.Logger, baseCurrency domain.Currency) *Service {
	return &Service{
		Store:        store,
		Logger:       logger,
		BaseCurrency: baseCurrency,
	}
}

// PortfolioPositions computes one Position per held symbol plus the
// portfolio summary. A symbol is included while it still has units or has
// earned dividend/interest income.
func (s *Service) PortfolioPositions(ctx context.Context, portfolioID uuid.UUID) ([]domain.Position, *domain.PortfolioSummary, error) {
	transactions, err := s.Store.ListByPortfolio(ctx, portfolioID, domain.ActiveOnly())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	positions, err := s.computePositions(ctx, portfolioID, transactions)
	if err != nil {
		return nil, nil, err
	}

	summary, err := s.summarize(portfolioID, positions)
	if err != nil {
		return nil, nil, err
	}
	return positions, summary, nil
}

// SymbolPosition computes the Position for a single ticker.
// Returns nil if the portfolio holds nothing and earned nothing for it.
func (s *Service) SymbolPosition(ctx context.Context, portfolioID uuid.UUID, ticker string) (*domain.Position, error) {
	transactions, err := s.Store.ListByPortfolioAndSymbol(ctx, portfolioID, ticker, domain.ActiveOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	positions, err := s.computePositions(ctx, portfolioID, transactions)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, nil
	}
	return &positions[0], nil
}

// computePositions partitions the snapshot by ticker and derives one
// Position per partition. The snapshot must belong to a single portfolio.
func (s *Service) computePositions(ctx context.Context, portfolioID uuid.UUID, transactions []*domain.Transaction) ([]domain.Position, error) {
	active := make([]*domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.PortfolioID != portfolioID {
			return nil, fmt.Errorf("%w: got transaction %s for portfolio %s", domain.ErrMixedPortfolios, tx.ID, tx.PortfolioID)
		}
		if tx.IsActive() {
			active = append(active, tx)
		}
	}

	// Date order with ledger insertion order as the tie-break; the store
	// contract returns insertion order, SliceStable preserves it.
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Date.Before(active[j].Date)
	})

	groups := make(map[string][]*domain.Transaction)
	var tickers []string
	for _, tx := range active {
		ticker := tx.Symbol.Ticker
		if _, seen := groups[ticker]; !seen {
			tickers = append(tickers, ticker)
		}
		groups[ticker] = append(groups[ticker], tx)
	}

	positions := make([]domain.Position, 0, len(tickers))
	for _, ticker := range tickers {
		pos, include, err := s.computeSymbolPosition(ctx, groups[ticker])
		if err != nil {
			return nil, fmt.Errorf("failed to compute position for %s: %w", ticker, err)
		}
		if include {
			positions = append(positions, pos)
		}
	}
	return positions, nil
}

func (s *Service) computeSymbolPosition(ctx context.Context, transactions []*domain.Transaction) (domain.Position, bool, error) {
	var (
		buys, sells []trade
		dividends   []*domain.Transaction
		interests   []*domain.Transaction
		currency    domain.Currency
		maturity    *time.Time
	)

	for _, tx := range transactions {
		switch tx.Type {
		case domain.TransactionTypeBuy:
			buys = append(buys, trade{quantity: tx.Quantity, price: tx.PricePerUnit.Amount, fee: tx.Fee.Amount})
			if currency == "" {
				currency = tx.PricePerUnit.Currency
			}
			if maturity == nil && tx.MaturityDate != nil {
				m := *tx.MaturityDate
				maturity = &m
			}
		case domain.TransactionTypeSell:
			sells = append(sells, trade{quantity: tx.Quantity, price: tx.PricePerUnit.Amount, fee: tx.Fee.Amount})
			if currency == "" {
				currency = tx.PricePerUnit.Currency
			}
		case domain.TransactionTypeDividend:
			dividends = append(dividends, tx)
			if currency == "" {
				currency = tx.GrossAmount.Currency
			}
		case domain.TransactionTypeInterest:
			interests = append(interests, tx)
			if currency == "" {
				currency = tx.GrossAmount.Currency
			}
		}
	}
	if currency == "" {
		currency = s.BaseCurrency
	}

	result := matchFIFO(buys, sells)
	if result.oversoldQuantity.IsPositive() {
		s.Logger.Warn(ctx, "sell quantity exceeds available lots, excess absorbed", map[string]interface{}{
			"ticker":   transactions[0].Symbol.Ticker,
			"oversold": result.oversoldQuantity.String(),
		})
	}

	totalDividends, err := sumNetIncome(dividends, currency)
	if err != nil {
		return domain.Position{}, false, err
	}
	totalInterest, err := sumNetIncome(interests, currency)
	if err != nil {
		return domain.Position{}, false, err
	}
	totalIncome, err := totalDividends.Add(totalInterest)
	if err != nil {
		return domain.Position{}, false, err
	}

	if !result.remainingQuantity.IsPositive() && !totalIncome.Amount.IsPositive() {
		return domain.Position{}, false, nil
	}

	currentPrice := currentPriceProxy(transactions, currency)
	currentValue := currentPrice.Mul(result.remainingQuantity)
	totalCost := domain.Money{Amount: result.totalCost, Currency: currency}

	unrealized, err := currentValue.Sub(totalCost)
	if err != nil {
		return domain.Position{}, false, err
	}
	unrealizedPercent := decimal.Zero
	if !result.totalCost.IsZero() {
		unrealizedPercent = unrealized.Amount.Div(result.totalCost).Mul(decimal.NewFromInt(100))
	}

	pos := domain.Position{
		Symbol:                    transactions[0].Symbol,
		TotalQuantity:             result.remainingQuantity,
		AverageCost:               domain.Money{Amount: result.averageCost, Currency: currency},
		TotalCost:                 totalCost,
		CurrentPrice:              currentPrice,
		CurrentValue:              currentValue,
		UnrealizedGainLoss:        unrealized,
		UnrealizedGainLossPercent: unrealizedPercent,
		RealizedGainLoss:          domain.Money{Amount: result.realizedGains, Currency: currency},
		TotalDividends:            totalDividends,
		TotalInterest:             totalInterest,
		TotalIncome:               totalIncome,
	}
	pos.MaturityDate = maturity
	return pos, true, nil
}

// currentPriceProxy approximates the market price from the ledger: the
// price of the most recent BUY, else the most recent SELL, else zero.
// The input is already in date order.
func currentPriceProxy(transactions []*domain.Transaction, currency domain.Currency) domain.Money {
	for i := len(transactions) - 1; i >= 0; i-- {
		if transactions[i].Type == domain.TransactionTypeBuy {
			return transactions[i].PricePerUnit
		}
	}
	for i := len(transactions) - 1; i >= 0; i-- {
		if transactions[i].Type == domain.TransactionTypeSell {
			return transactions[i].PricePerUnit
		}
	}
	return domain.ZeroMoney(currency)
}

func sumNetIncome(transactions []*domain.Transaction, currency domain.Currency) (domain.Money, error) {
	total := domain.ZeroMoney(currency)
	for _, tx := range transactions {
		var err error
		total, err = total.Add(tx.NetAmount)
		if err != nil {
			return domain.Money{}, err
		}
	}
	return total, nil
}

func (s *Service) summarize(portfolioID uuid.UUID, positions []domain.Position) (*domain.PortfolioSummary, error) {
	currency := s.BaseCurrency
	if len(positions) > 0 {
		currency = positions[0].TotalCost.Currency
	}

	summary := &domain.PortfolioSummary{
		PortfolioID:        portfolioID,
		Currency:           currency,
		CurrentValue:       domain.ZeroMoney(currency),
		TotalCost:          domain.ZeroMoney(currency),
		UnrealizedGainLoss: domain.ZeroMoney(currency),
		RealizedGainLoss:   domain.ZeroMoney(currency),
		TotalDividends:     domain.ZeroMoney(currency),
		TotalInterest:      domain.ZeroMoney(currency),
	}

	var err error
	for _, p := range positions {
		if summary.CurrentValue, err = summary.CurrentValue.Add(p.CurrentValue); err != nil {
			return nil, err
		}
		if summary.TotalCost, err = summary.TotalCost.Add(p.TotalCost); err != nil {
			return nil, err
		}
		if summary.UnrealizedGainLoss, err = summary.UnrealizedGainLoss.Add(p.UnrealizedGainLoss); err != nil {
			return nil, err
		}
		if summary.RealizedGainLoss, err = summary.RealizedGainLoss.Add(p.RealizedGainLoss); err != nil {
			return nil, err
		}
		if summary.TotalDividends, err = summary.TotalDividends.Add(p.TotalDividends); err != nil {
			return nil, err
		}
		if summary.TotalInterest, err = summary.TotalInterest.Add(p.TotalInterest); err != nil {
			return nil, err
		}
	}
	return summary, nil
}
