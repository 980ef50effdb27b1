package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreduarte/trackfolio-backend/internal/domain"
	"github.com/andreduarte/trackfolio-backend/internal/usecase/ledger"
	"github.com/andreduarte/trackfolio-backend/internal/usecase/position"
)

// Server is the JSON API adapter over the ledger and position services.
// Handlers only decode, delegate and encode; all accounting lives in the
// use-case layer.
type Server struct {
	LedgerService   *ledger.Service
	PositionService *position.Service
	APIToken        string
	Logger          domain.Logger
	mux             *http.ServeMux
}

// NewServer creates a new HTTP server adapter
func NewServer(ledgerService *ledger.Service, positionService *position.Service, apiToken string, logger domain.Logger) *Server {
	s := &Server{
		LedgerService:   ledgerService,
		PositionService: positionService,
		APIToken:        apiToken,
		Logger:          logger,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/portfolios/", s.requireAuth(s.handlePortfoliosSub))
	s.mux.HandleFunc("/transactions/", s.requireAuth(s.handleTransactionsSub))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.mux.ServeHTTP(w, r)
}

// requireAuth validates the bearer token before calling the handler
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httpError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token != s.APIToken {
			httpError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

/* ======= /portfolios/{id}/... ======= */

func (s *Server) handlePortfoliosSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/portfolios/"), "/"), "/")
	if len(parts) < 2 {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	portfolioID, err := uuid.Parse(parts[0])
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "transactions":
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.recordTransaction(w, r, portfolioID)
	case len(parts) == 2 && parts[1] == "positions":
		if r.Method != http.MethodGet {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.portfolioPositions(w, r, portfolioID)
	case len(parts) == 3 && parts[1] == "positions":
		if r.Method != http.MethodGet {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.symbolPosition(w, r, portfolioID, parts[2])
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}

// POST /portfolios/{id}/transactions
func (s *Server) recordTransaction(w http.ResponseWriter, r *http.Request, portfolioID uuid.UUID) {
	defer r.Body.Close()
	var req recordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	symbol, err := domain.NewSymbol(req.Ticker, req.Exchange, domain.AssetType(strings.ToUpper(req.AssetType)))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}

	currency := domain.Currency(strings.ToUpper(req.Currency))

	var tx *domain.Transaction
	switch strings.ToUpper(req.Kind) {
	case string(domain.TransactionTypeBuy), string(domain.TransactionTypeSell):
		quantity, err := parseDecimal("quantity", req.Quantity)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		priceAmount, err := parseDecimal("pricePerUnit", req.PricePerUnit)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		price, err := domain.NewMoney(priceAmount, currency)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		fee, err := parseOptionalMoney("fee", req.Fee, currency)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}

		if strings.ToUpper(req.Kind) == string(domain.TransactionTypeBuy) {
			maturityDate, err := parseOptionalDate("maturityDate", req.MaturityDate)
			if err != nil {
				httpError(w, http.StatusBadRequest, err.Error())
				return
			}
			tx, err = s.LedgerService.RecordBuy(r.Context(), ledger.RecordBuyInput{
				PortfolioID:  portfolioID,
				Symbol:       symbol,
				Quantity:     quantity,
				PricePerUnit: price,
				Fee:          fee,
				Date:         date,
				MaturityDate: maturityDate,
				Notes:        req.Notes,
			})
			if err != nil {
				s.writeDomainError(w, err)
				return
			}
		} else {
			tx, err = s.LedgerService.RecordSell(r.Context(), ledger.RecordSellInput{
				PortfolioID:  portfolioID,
				Symbol:       symbol,
				Quantity:     quantity,
				PricePerUnit: price,
				Fee:          fee,
				Date:         date,
				Notes:        req.Notes,
			})
			if err != nil {
				s.writeDomainError(w, err)
				return
			}
		}
	case string(domain.TransactionTypeDividend), string(domain.TransactionTypeInterest):
		grossAmount, err := parseDecimal("grossAmount", req.GrossAmount)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		gross, err := domain.NewMoney(grossAmount, currency)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		taxRate, err := parseOptionalDecimal("taxRate", req.TaxRate)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}

		input := ledger.RecordIncomeInput{
			PortfolioID: portfolioID,
			Symbol:      symbol,
			GrossAmount: gross,
			TaxRate:     taxRate,
			Date:        date,
			Notes:       req.Notes,
		}
		if strings.ToUpper(req.Kind) == string(domain.TransactionTypeDividend) {
			tx, err = s.LedgerService.RecordDividend(r.Context(), input)
		} else {
			tx, err = s.LedgerService.RecordInterest(r.Context(), input)
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	default:
		httpError(w, http.StatusBadRequest, "unknown transaction kind: "+req.Kind)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GET /portfolios/{id}/positions
func (s *Server) portfolioPositions(w http.ResponseWriter, r *http.Request, portfolioID uuid.UUID) {
	positions, summary, err := s.PositionService.PortfolioPositions(r.Context(), portfolioID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := portfolioPositionsDTO{
		Positions: make([]positionDTO, 0, len(positions)),
		Summary:   toSummaryDTO(summary),
	}
	for _, p := range positions {
		out.Positions = append(out.Positions, toPositionDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /portfolios/{id}/positions/{ticker}
func (s *Server) symbolPosition(w http.ResponseWriter, r *http.Request, portfolioID uuid.UUID, ticker string) {
	pos, err := s.PositionService.SymbolPosition(r.Context(), portfolioID, strings.ToUpper(ticker))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if pos == nil {
		httpError(w, http.StatusNotFound, "no position for ticker "+strings.ToUpper(ticker))
		return
	}
	writeJSON(w, http.StatusOK, toPositionDTO(*pos))
}

/* ======= /transactions/{id} ======= */

func (s *Server) handleTransactionsSub(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/transactions/"), "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		s.updateTransaction(w, r, id)
	case http.MethodDelete:
		s.cancelTransaction(w, r, id)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PATCH /transactions/{id}
func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	defer r.Body.Close()
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	// Currency fields keep the currency of the stored transaction
	existing, err := s.LedgerService.Store.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	update := domain.TransactionUpdate{Notes: req.Notes}
	if req.Date != nil {
		date, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid date: "+err.Error())
			return
		}
		update.Date = &date
	}
	if update.Quantity, err = parseOptionalDecimal("quantity", req.Quantity); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.TaxRate, err = parseOptionalDecimal("taxRate", req.TaxRate); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.MaturityDate, err = parseOptionalDate("maturityDate", req.MaturityDate); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	currency := rowCurrency(existing)
	if update.PricePerUnit, err = parseOptionalMoney("pricePerUnit", req.PricePerUnit, currency); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.Fee, err = parseOptionalMoney("fee", req.Fee, currency); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.GrossAmount, err = parseOptionalMoney("grossAmount", req.GrossAmount, currency); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.LedgerService.Update(r.Context(), id, update)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DELETE /transactions/{id} cancels; ledger entries are never deleted
func (s *Server) cancelTransaction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := s.LedgerService.Cancel(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

/* ======= helpers ======= */

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTransactionCancelled):
		httpError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrCurrencyMismatch):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		s.Logger.Error(context.Background(), err, "request failed")
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %v", field, err)
	}
	return d, nil
}

func parseOptionalDecimal(field string, value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	d, err := parseDecimal(field, *value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalMoney(field string, value *string, currency domain.Currency) (*domain.Money, error) {
	amount, err := parseOptionalDecimal(field, value)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, nil
	}
	m, err := domain.NewMoney(*amount, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", field, err)
	}
	return &m, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", field, err)
	}
	return &t, nil
}

// rowCurrency picks the currency the transaction's money fields are in
func rowCurrency(tx *domain.Transaction) domain.Currency {
	switch tx.Type {
	case domain.TransactionTypeBuy, domain.TransactionTypeSell:
		return tx.PricePerUnit.Currency
	default:
		return tx.GrossAmount.Currency
	}
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
