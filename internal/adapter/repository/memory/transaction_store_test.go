package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

func newBuy(t *testing.T, portfolioID uuid.UUID, ticker string, date time.Time) *domain.Transaction {
	t.Helper()
	symbol, err := domain.NewSymbol(ticker, "NASDAQ", domain.AssetTypeStock)
	require.NoError(t, err)
	price, err := domain.NewMoney(decimal.NewFromInt(100), domain.CurrencyEUR)
	require.NoError(t, err)
	tx, err := domain.RecordBuy(portfolioID, symbol, decimal.NewFromInt(1), price, nil, date, nil, "")
	require.NoError(t, err)
	return tx
}

func TestTransactionStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	portfolioID := uuid.New()

	tx := newBuy(t, portfolioID, "AAPL", time.Now())
	require.NoError(t, store.Append(ctx, tx))

	loaded, err := store.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, loaded.ID)
	assert.Equal(t, "AAPL", loaded.Symbol.Ticker)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	portfolioID := uuid.New()

	tx := newBuy(t, portfolioID, "AAPL", time.Now())
	require.NoError(t, store.Append(ctx, tx))

	loaded, err := store.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	loaded.Notes = "mutated by caller"

	reloaded, err := store.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Notes)
}

func TestTransactionStore_ListPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	portfolioID := uuid.New()

	// Insert out of date order; the store must keep insertion order
	later := newBuy(t, portfolioID, "AAPL", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	earlier := newBuy(t, portfolioID, "AAPL", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Append(ctx, later))
	require.NoError(t, store.Append(ctx, earlier))

	list, err := store.ListByPortfolio(ctx, portfolioID, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, later.ID, list[0].ID)
	assert.Equal(t, earlier.ID, list[1].ID)
}

func TestTransactionStore_Filters(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	portfolioID := uuid.New()

	active := newBuy(t, portfolioID, "AAPL", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	cancelled := newBuy(t, portfolioID, "AAPL", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	other := newBuy(t, portfolioID, "MSFT", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Append(ctx, active))
	require.NoError(t, store.Append(ctx, cancelled))
	require.NoError(t, store.Append(ctx, other))

	require.NoError(t, cancelled.Cancel())
	require.NoError(t, store.Save(ctx, cancelled))

	t.Run("Status filter", func(t *testing.T) {
		list, err := store.ListByPortfolio(ctx, portfolioID, domain.ActiveOnly())
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, active.ID, list[0].ID)
		assert.Equal(t, other.ID, list[1].ID)
	})

	t.Run("Ticker filter", func(t *testing.T) {
		list, err := store.ListByPortfolioAndSymbol(ctx, portfolioID, "MSFT", domain.ActiveOnly())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, other.ID, list[0].ID)
	})

	t.Run("Date range filter", func(t *testing.T) {
		from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		list, err := store.ListByPortfolio(ctx, portfolioID, domain.TransactionFilter{From: &from})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, other.ID, list[0].ID)
	})

	t.Run("Unknown portfolio yields empty list", func(t *testing.T) {
		list, err := store.ListByPortfolio(ctx, uuid.New(), domain.TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestTransactionStore_SaveUnknownFails(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	tx := newBuy(t, uuid.New(), "AAPL", time.Now())
	assert.ErrorIs(t, store.Save(ctx, tx), domain.ErrNotFound)
}
