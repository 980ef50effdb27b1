package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreduarte/trackfolio-backend/internal/domain"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// TransactionStore implements domain.TransactionStore using SQLite.
// Intended for single-node deployments and local development; the schema
// is created on open.
type TransactionStore struct {
	db     *sql.DB
	logger domain.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	DBPath string
	Logger domain.Logger
}

// NewTransactionStore creates a new SQLite store instance.
func NewTransactionStore(cfg Config) (*TransactionStore, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite store")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trackfolio.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", filepath.Dir(dbPath), err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at %q: %w", dbPath, err)
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &TransactionStore{db: db, logger: cfg.Logger}
	if err := store.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	cfg.Logger.Info(context.Background(), "SQLite ledger store ready", map[string]interface{}{"path": dbPath})
	return store, nil
}

// Close closes the underlying database connection
func (s *TransactionStore) Close() error {
	return s.db.Close()
}

func (s *TransactionStore) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS transactions (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		id             TEXT NOT NULL UNIQUE,
		portfolio_id   TEXT NOT NULL,
		type           TEXT NOT NULL,
		ticker         TEXT NOT NULL,
		exchange       TEXT NOT NULL DEFAULT '',
		asset_type     TEXT NOT NULL,
		date           TIMESTAMP NOT NULL,
		status         TEXT NOT NULL,
		notes          TEXT NOT NULL DEFAULT '',
		currency       TEXT NOT NULL,
		quantity       TEXT,
		price_per_unit TEXT,
		fee            TEXT,
		maturity_date  TIMESTAMP,
		gross_amount   TEXT,
		tax_rate       TEXT,
		tax_withheld   TEXT,
		net_amount     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio
		ON transactions (portfolio_id, status);
	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_ticker
		ON transactions (portfolio_id, ticker, status);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

const transactionColumns = `
	id, portfolio_id, type, ticker, exchange, asset_type, date, status, notes,
	currency, quantity, price_per_unit, fee, maturity_date,
	gross_amount, tax_rate, tax_withheld, net_amount
`

// Append adds a newly recorded transaction to the ledger
func (s *TransactionStore) Append(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.ID.String(),
		tx.PortfolioID.String(),
		string(tx.Type),
		tx.Symbol.Ticker,
		tx.Symbol.Exchange,
		string(tx.Symbol.AssetType),
		tx.Date,
		string(tx.Status),
		tx.Notes,
		string(rowCurrency(tx)),
		tradeText(tx, tx.Quantity),
		tradeText(tx, tx.PricePerUnit.Amount),
		tradeText(tx, tx.Fee.Amount),
		tx.MaturityDate,
		incomeText(tx, tx.GrossAmount.Amount),
		incomeText(tx, tx.TaxRate),
		incomeText(tx, tx.TaxWithheld.Amount),
		incomeText(tx, tx.NetAmount.Amount),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Save persists the current state of an existing transaction
func (s *TransactionStore) Save(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET date = ?, status = ?, notes = ?, currency = ?,
			quantity = ?, price_per_unit = ?, fee = ?, maturity_date = ?,
			gross_amount = ?, tax_rate = ?, tax_withheld = ?, net_amount = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		tx.Date,
		string(tx.Status),
		tx.Notes,
		string(rowCurrency(tx)),
		tradeText(tx, tx.Quantity),
		tradeText(tx, tx.PricePerUnit.Amount),
		tradeText(tx, tx.Fee.Amount),
		tx.MaturityDate,
		incomeText(tx, tx.GrossAmount.Amount),
		incomeText(tx, tx.TaxRate),
		incomeText(tx, tx.TaxWithheld.Amount),
		incomeText(tx, tx.NetAmount.Amount),
		tx.ID.String(),
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
func (s *TransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id.String()))
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
func (s *TransactionStore) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return s.listTransactions(ctx, portfolioID, "", filter)
}

// ListByPortfolioAndSymbol retrieves a portfolio's transactions for one
// ticker matching the filter, in ledger insertion order
func (s *TransactionStore) ListByPortfolioAndSymbol(ctx context.Context, portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	return s.listTransactions(ctx, portfolioID, ticker, filter)
}

func (s *TransactionStore) listTransactions(ctx context.Context, portfolioID uuid.UUID, ticker string, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE portfolio_id = ?`
	args := []interface{}{portfolioID.String()}

	if ticker != "" {
		query += " AND ticker = ?"
		args = append(args, ticker)
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.From != nil {
		query += " AND date >= ?"
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += " AND date <= ?"
		args = append(args, *filter.To)
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
		id           string
		portfolioID  string
		txType       string
		assetType    string
		status       string
		currency     string
		quantity     sql.NullString
		pricePerUnit sql.NullString
		fee          sql.NullString
		maturityDate sql.NullTime
		grossAmount  sql.NullString
		taxRate      sql.NullString
		taxWithheld  sql.NullString
		netAmount    sql.NullString
	)

	err := row.Scan(
		&id,
		&portfolioID,
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

	if tx.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", id, err)
	}
	if tx.PortfolioID, err = uuid.Parse(portfolioID); err != nil {
		return nil, fmt.Errorf("invalid portfolio id %q: %w", portfolioID, err)
	}

	tx.Type = domain.TransactionType(txType)
	tx.Symbol.AssetType = domain.AssetType(assetType)
	tx.Status = domain.TransactionStatus(status)
	tx.Date = tx.Date.UTC()

	cur := domain.Currency(currency)
	switch tx.Type {
	case domain.TransactionTypeBuy, domain.TransactionTypeSell:
		if tx.Quantity, err = parseDecimal(quantity); err != nil {
			return nil, err
		}
		var amount decimal.Decimal
		if amount, err = parseDecimal(pricePerUnit); err != nil {
			return nil, err
		}
		tx.PricePerUnit = domain.Money{Amount: amount, Currency: cur}
		if amount, err = parseDecimal(fee); err != nil {
			return nil, err
		}
		tx.Fee = domain.Money{Amount: amount, Currency: cur}
		if maturityDate.Valid {
			m := maturityDate.Time.UTC()
			tx.MaturityDate = &m
		}
	case domain.TransactionTypeDividend, domain.TransactionTypeInterest:
		var amount decimal.Decimal
		if amount, err = parseDecimal(grossAmount); err != nil {
			return nil, err
		}
		tx.GrossAmount = domain.Money{Amount: amount, Currency: cur}
		if tx.TaxRate, err = parseDecimal(taxRate); err != nil {
			return nil, err
		}
		if amount, err = parseDecimal(taxWithheld); err != nil {
			return nil, err
		}
		tx.TaxWithheld = domain.Money{Amount: amount, Currency: cur}
		if amount, err = parseDecimal(netAmount); err != nil {
			return nil, err
		}
		tx.NetAmount = domain.Money{Amount: amount, Currency: cur}
	}
	return &tx, nil
}

func parseDecimal(value sql.NullString) (decimal.Decimal, error) {
	if !value.Valid || value.String == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", value.String, err)
	}
	return d, nil
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

// tradeText returns the decimal as text for trade rows and NULL otherwise
func tradeText(tx *domain.Transaction, value decimal.Decimal) sql.NullString {
	if tx.Type == domain.TransactionTypeBuy || tx.Type == domain.TransactionTypeSell {
		return sql.NullString{String: value.String(), Valid: true}
	}
	return sql.NullString{}
}

// incomeText returns the decimal as text for income rows and NULL otherwise
func incomeText(tx *domain.Transaction, value decimal.Decimal) sql.NullString {
	if tx.Type == domain.TransactionTypeDividend || tx.Type == domain.TransactionTypeInterest {
		return sql.NullString{String: value.String(), Valid: true}
	}
	return sql.NullString{}
}
