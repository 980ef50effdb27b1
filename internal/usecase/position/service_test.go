package position

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// MockTransactionStore is a mock implementation of TransactionStore for testing
type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Append(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) Save(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionStore) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	args := m.Called(ctx, portfolioID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionStore) ListByPortfolioAndSymbol(ctx context.Context, portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	args := m.Called(ctx, portfolioID, ticker, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (nopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func mustSymbol(t *testing.T, ticker string, assetType domain.AssetType) domain.Symbol {
	t.Helper()
	symbol, err := domain.NewSymbol(ticker, "XETRA", assetType)
	require.NoError(t, err)
	return symbol
}

func eurMoney(t *testing.T, value string) domain.Money {
	t.Helper()
	m, err := domain.NewMoney(d(value), domain.CurrencyEUR)
	require.NoError(t, err)
	return m
}

func buy(t *testing.T, portfolioID uuid.UUID, symbol domain.Symbol, quantity, price string, date time.Time) *domain.Transaction {
	t.Helper()
	tx, err := domain.RecordBuy(portfolioID, symbol, d(quantity), eurMoney(t, price), nil, date, nil, "")
	require.NoError(t, err)
	return tx
}

func buyWithFee(t *testing.T, portfolioID uuid.UUID, symbol domain.Symbol, quantity, price, fee string, date time.Time) *domain.Transaction {
	t.Helper()
	f := eurMoney(t, fee)
	tx, err := domain.RecordBuy(portfolioID, symbol, d(quantity), eurMoney(t, price), &f, date, nil, "")
	require.NoError(t, err)
	return tx
}

func sell(t *testing.T, portfolioID uuid.UUID, symbol domain.Symbol, quantity, price string, date time.Time) *domain.Transaction {
	t.Helper()
	tx, err := domain.RecordSell(portfolioID, symbol, d(quantity), eurMoney(t, price), nil, date, "")
	require.NoError(t, err)
	return tx
}

func sellWithFee(t *testing.T, portfolioID uuid.UUID, symbol domain.Symbol, quantity, price, fee string, date time.Time) *domain.Transaction {
	t.Helper()
	f := eurMoney(t, fee)
	tx, err := domain.RecordSell(portfolioID, symbol, d(quantity), eurMoney(t, price), &f, date, "")
	require.NoError(t, err)
	return tx
}

func newTestService(store domain.TransactionStore) *Service {
	return NewService(store, nopLogger{}, domain.CurrencyEUR)
}

func TestPortfolioPositions_FIFOOrder(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "VWCE", domain.AssetTypeETF)

	transactions := []*domain.Transaction{
		buy(t, portfolioID, symbol, "100", "10", day(1)),
		buy(t, portfolioID, symbol, "50", "12", day(2)),
		sell(t, portfolioID, symbol, "120", "15", day(3)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, summary, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "30", pos.TotalQuantity.String())
	assert.Equal(t, "12", pos.AverageCost.Amount.String())
	assert.Equal(t, "360", pos.TotalCost.Amount.String())
	assert.Equal(t, "560", pos.RealizedGainLoss.Amount.String())
	// price proxy is the most recent buy
	assert.Equal(t, "12", pos.CurrentPrice.Amount.String())
	assert.Equal(t, "360", pos.CurrentValue.Amount.String())
	assert.Equal(t, "0", pos.UnrealizedGainLoss.Amount.String())

	assert.Equal(t, "560", summary.RealizedGainLoss.Amount.String())
	assert.Equal(t, "360", summary.TotalCost.Amount.String())
	mockStore.AssertExpectations(t)
}

func TestPortfolioPositions_SameDateTieBreaksByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "VWCE", domain.AssetTypeETF)

	// Two buys on the same date at different prices; the stable sort must
	// keep ledger insertion order, so the 10-priced lot is consumed first.
	transactions := []*domain.Transaction{
		buy(t, portfolioID, symbol, "10", "10", day(1)),
		buy(t, portfolioID, symbol, "10", "20", day(1)),
		sell(t, portfolioID, symbol, "5", "30", day(2)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, _, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	// 5 * (30 - 10); a swapped order would give 5 * (30 - 20) = 50
	assert.Equal(t, "100", pos.RealizedGainLoss.Amount.String())
	assert.Equal(t, "15", pos.TotalQuantity.String())
	// remaining basis: 5 @ 10 + 10 @ 20
	assert.Equal(t, "250", pos.TotalCost.Amount.String())
	mockStore.AssertExpectations(t)
}

func TestPortfolioPositions_FeeAmortization(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "AAPL", domain.AssetTypeStock)

	transactions := []*domain.Transaction{
		buyWithFee(t, portfolioID, symbol, "100", "20", "10", day(1)),
		sellWithFee(t, portfolioID, symbol, "50", "25", "5", day(2)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, _, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.Equal(t, "20.1", positions[0].AverageCost.Amount.String())
	assert.Equal(t, "240", positions[0].RealizedGainLoss.Amount.String())
}

func TestPortfolioPositions_IncomeOnlyInclusion(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	bond := mustSymbol(t, "DE0001102580", domain.AssetTypeBond)

	maturity := time.Date(2034, 8, 15, 0, 0, 0, 0, time.UTC)
	bondBuy, err := domain.RecordBuy(portfolioID, bond, d("10"), eurMoney(t, "100"), nil, day(1), &maturity, "")
	require.NoError(t, err)
	interest, err := domain.RecordInterest(portfolioID, bond, eurMoney(t, "200"), nil, day(2), "")
	require.NoError(t, err)

	transactions := []*domain.Transaction{
		bondBuy,
		interest,
		sell(t, portfolioID, bond, "10", "101", day(3)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, summary, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "0", pos.TotalQuantity.String())
	// 200 gross at the 19% default -> 162 net
	assert.Equal(t, "162", pos.TotalInterest.Amount.String())
	assert.Equal(t, "162", pos.TotalIncome.Amount.String())
	assert.Equal(t, "0", pos.TotalDividends.Amount.String())
	require.NotNil(t, pos.MaturityDate)
	assert.True(t, pos.MaturityDate.Equal(maturity))

	assert.Equal(t, "162", summary.TotalInterest.Amount.String())
}

func TestPortfolioPositions_FullySoldNoIncomeExcluded(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "TSLA", domain.AssetTypeStock)

	transactions := []*domain.Transaction{
		buy(t, portfolioID, symbol, "10", "200", day(1)),
		sell(t, portfolioID, symbol, "10", "250", day(2)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, summary, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, positions)
	// realized gain of an excluded position does not leak into the summary
	assert.Equal(t, "0", summary.RealizedGainLoss.Amount.String())
}

func TestPortfolioPositions_CancelledExcluded(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "AAPL", domain.AssetTypeStock)

	kept := buy(t, portfolioID, symbol, "10", "100", day(1))
	cancelled := buy(t, portfolioID, symbol, "90", "100", day(2))
	require.NoError(t, cancelled.Cancel())

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).
		Return([]*domain.Transaction{kept, cancelled}, nil)

	positions, _, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "10", positions[0].TotalQuantity.String())
}

func TestPortfolioPositions_Idempotent(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "VWCE", domain.AssetTypeETF)

	transactions := []*domain.Transaction{
		buyWithFee(t, portfolioID, symbol, "100", "10", "4", day(1)),
		sell(t, portfolioID, symbol, "30", "12", day(2)),
		buy(t, portfolioID, symbol, "20", "11", day(3)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	service := newTestService(mockStore)
	first, firstSummary, err := service.PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	second, secondSummary, err := service.PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSummary, secondSummary)
}

func TestPortfolioPositions_MixedPortfoliosRejected(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	otherPortfolio := uuid.New()
	symbol := mustSymbol(t, "AAPL", domain.AssetTypeStock)

	transactions := []*domain.Transaction{
		buy(t, portfolioID, symbol, "10", "100", day(1)),
		buy(t, otherPortfolio, symbol, "10", "100", day(2)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	_, _, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	assert.ErrorIs(t, err, domain.ErrMixedPortfolios)
}

func TestPortfolioPositions_PriceProxyFallsBackToSell(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "AAPL", domain.AssetTypeStock)

	// Income keeps the symbol in the result even with no buys
	dividend, err := domain.RecordDividend(portfolioID, symbol, eurMoney(t, "100"), nil, day(2), "")
	require.NoError(t, err)

	transactions := []*domain.Transaction{
		sell(t, portfolioID, symbol, "5", "42", day(1)),
		dividend,
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, _, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "42", pos.CurrentPrice.Amount.String())
	assert.Equal(t, "0", pos.TotalQuantity.String())
	// zero cost basis keeps the percentage at zero instead of dividing
	assert.Equal(t, "0", pos.UnrealizedGainLossPercent.String())
	assert.Equal(t, "81", pos.TotalDividends.Amount.String())
}

func TestPortfolioPositions_SummaryAcrossSymbols(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	stock := mustSymbol(t, "AAPL", domain.AssetTypeStock)
	etf := mustSymbol(t, "VWCE", domain.AssetTypeETF)

	transactions := []*domain.Transaction{
		buy(t, portfolioID, stock, "10", "100", day(1)),
		buy(t, portfolioID, etf, "20", "50", day(2)),
	}

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).Return(transactions, nil)

	positions, summary, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "2000", summary.TotalCost.Amount.String())
	assert.Equal(t, "2000", summary.CurrentValue.Amount.String())
	assert.Equal(t, domain.CurrencyEUR, summary.Currency)
	assert.Equal(t, portfolioID, summary.PortfolioID)
}

func TestSymbolPosition(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()
	symbol := mustSymbol(t, "AAPL", domain.AssetTypeStock)

	t.Run("Existing position is returned", func(t *testing.T) {
		transactions := []*domain.Transaction{
			buy(t, portfolioID, symbol, "10", "100", day(1)),
		}
		mockStore := new(MockTransactionStore)
		mockStore.On("ListByPortfolioAndSymbol", ctx, portfolioID, "AAPL", domain.ActiveOnly()).
			Return(transactions, nil)

		pos, err := newTestService(mockStore).SymbolPosition(ctx, portfolioID, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, pos)
		assert.Equal(t, "10", pos.TotalQuantity.String())
	})

	t.Run("No holdings and no income yields nil", func(t *testing.T) {
		mockStore := new(MockTransactionStore)
		mockStore.On("ListByPortfolioAndSymbol", ctx, portfolioID, "AAPL", domain.ActiveOnly()).
			Return([]*domain.Transaction{}, nil)

		pos, err := newTestService(mockStore).SymbolPosition(ctx, portfolioID, "AAPL")
		require.NoError(t, err)
		assert.Nil(t, pos)
	})
}

func TestPortfolioPositions_EmptyPortfolio(t *testing.T) {
	ctx := context.Background()
	portfolioID := uuid.New()

	mockStore := new(MockTransactionStore)
	mockStore.On("ListByPortfolio", ctx, portfolioID, domain.ActiveOnly()).
		Return([]*domain.Transaction{}, nil)

	positions, summary, err := newTestService(mockStore).PortfolioPositions(ctx, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.Equal(t, domain.CurrencyEUR, summary.Currency)
	assert.Equal(t, "0", summary.TotalCost.Amount.String())
}
