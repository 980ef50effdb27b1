package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
)

// transactionStore implements domain.TransactionStore on PostgreSQL.
// The transactions table carries a serial seq column so that listings can
// reproduce ledger insertion order (see migrations/0001_create_transactions.sql).
type transactionStore struct {
	db *DB
}

// NewTransactionStore creates a new PostgreSQL-backed transaction store
func NewTransactionStore(db *DB) domain.TransactionStore {
	return &transactionStore{db: db}
}

const transactionColumns = `
	id, portfolio_id, type, ticker, exchange, asset_type, date, status, notes,
	currency, quantity, price_per_unit, fee, maturity_date,
	gross_amount, tax_rate, tax_withheld, net_amount
`

// Append adds a newly recorded transaction to the ledger
func (r *transactionStore) Append(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.PortfolioID,
		string(tx.Type),
		tx.Symbol.Ticker,
		tx.Symbol.Exchange,
		string(tx.Symbol.AssetType),
		tx.Date,
		string(tx.Status),
		tx.Notes,
		string(rowCurrency(tx)),
		tradeDecimal(tx, tx.Quantity),
		tradeDecimal(tx, tx.PricePerUnit.Amount),
		tradeDecimal(tx, tx.Fee.Amount),
		tx.MaturityDate,
		incomeDecimal(tx, tx.GrossAmount.Amount),
		incomeDecimal(tx, tx.TaxRate),
		incomeDecimal(tx, tx.TaxWithheld.Amount),
		incomeDecimal(tx, tx.NetAmount.Amount),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Save persists the current state of an existing transaction
func (r *transactionStore) Save(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET date = $2, status = $3, notes = $4, currency = $5,
			quantity = $6, price_per_unit = $7, fee = $8, maturity_date = $9,
			gross_amount = $10, tax_rate = $11, tax_withheld = $12, net_amount = $13
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.Date,
		string(tx.Status),
		tx.Notes,
		string(rowCurrency(tx)),
		tradeDecimal(tx, tx.Quantity),
		tradeDecimal(tx, tx.PricePerUnit.Amount),
		tradeDecimal(tx, tx.Fee.Amount),
		tx.MaturityDate,
		incomeDecimal(tx, tx.GrossAmount.Amount),
		incomeDecimal(tx, tx.TaxRate),
		incomeDecimal(tx, tx.TaxWithheld.Amount),
		incomeDecimal(tx, tx.NetAmount.Amount),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single transaction
func (r *transactionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return tx, nil
}

// ListByPortfolio retrieves a portfolio's transactions matching the filter,
// in ledger insertion order
func (r *transactionStore) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return r.listTransactions(ctx, portfolioID, "", filter)
}

// ListByPortfolioAndSymbol retrieves a portfolio's transactions for one
// ticker matching the filter, in ledger insertion order
func (r *transactionStore) ListByPortfolioAndSymbol(ctx context.Context, portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return r.listTransactions(ctx, portfolioID, ticker, filter)
}

func (r *transactionStore) listTransactions(ctx context.Context, portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE portfolio_id = $1`
	args := []interface{}{portfolioID}

	if ticker != "" {
		args = append(args, ticker)
		query += fmt.Sprintf(" AND ticker = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY seq"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx           domain.Transaction
		txType       string
		assetType    string
		status       string
		currency     string
		quantity     decimal.NullDecimal
		pricePerUnit decimal.NullDecimal
		fee          decimal.NullDecimal
		maturityDate sql.NullTime
		grossAmount  decimal.NullDecimal
		taxRate      decimal.NullDecimal
		taxWithheld  decimal.NullDecimal
		netAmount    decimal.NullDecimal
	)

	err := row.Scan(
		&tx.ID,
		&tx.PortfolioID,
		&txType,
		&tx.Symbol.Ticker,
		&tx.Symbol.Exchange,
		&assetType,
		&tx.Date,
		&status,
		&tx.Notes,
		&currency,
		&quantity,
		&pricePerUnit,
		&fee,
		&maturityDate,
		&grossAmount,
		&taxRate,
		&taxWithheld,
		&netAmount,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.Symbol.AssetType = domain.AssetType(assetType)
	tx.Status = domain.TransactionStatus(status)
	tx.Date = tx.Date.UTC()

	cur := domain.Currency(currency)
	switch tx.Type {
	case domain.TransactionTypeBuy, domain.TransactionTypeSell:
		tx.Quantity = quantity.Decimal
		tx.PricePerUnit = domain.Money{Amount: pricePerUnit.Decimal, Currency: cur}
		tx.Fee = domain.Money{Amount: fee.Decimal, Currency: cur}
		if maturityDate.Valid {
			m := maturityDate.Time.UTC()
			tx.MaturityDate = &m
		}
	case domain.TransactionTypeDividend, domain.TransactionTypeInterest:
		tx.GrossAmount = domain.Money{Amount: grossAmount.Decimal, Currency: cur}
		tx.TaxRate = taxRate.Decimal
		tx.TaxWithheld = domain.Money{Amount: taxWithheld.Decimal, Currency: cur}
		tx.NetAmount = domain.Money{Amount: netAmount.Decimal, Currency: cur}
	}
	return &tx, nil
}

// rowCurrency picks the single currency a transaction row is stored in
func rowCurrency(tx *domain.Transaction) domain.Currency {
	switch tx.Type {
	case domain.TransactionTypeBuy, domain.TransactionTypeSell:
		return tx.PricePerUnit.Currency
	default:
		return tx.GrossAmount.Currency
	}
}

// tradeDecimal returns the value for trade rows and NULL otherwise
func tradeDecimal(tx *domain.Transaction, value decimal.Decimal) decimal.NullDecimal {
	if tx.Type == domain.TransactionTypeBuy || tx.Type == domain.TransactionTypeSell {
		return decimal.NullDecimal{Decimal: value, Valid: true}
	}
	return decimal.NullDecimal{}
}

// incomeDecimal returns the value for income rows and NULL otherwise
func incomeDecimal(tx *domain.Transaction, value decimal.Decimal) decimal.NullDecimal {
	if tx.Type == domain.TransactionTypeDividend || tx.Type == domain.TransactionTypeInterest {
		return decimal.NullDecimal{Decimal: value, Valid: true}
	}
	return decimal.NullDecimal{}
}
