package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreduarte/trackfolio-backend/internal/adapter/event"
	"github.com/andreduarte/trackfolio-backend/internal/adapter/httpserver"
	applog "github.com/andreduarte/trackfolio-backend/internal/adapter/logger"
	"github.com/andreduarte/trackfolio-backend/internal/adapter/repository/memory"
	"github.com/andreduarte/trackfolio-backend/internal/adapter/repository/postgres"
	"github.com/andreduarte/trackfolio-backend/internal/adapter/repository/sqlite"
	"github.com/andreduarte/trackfolio-backend/internal/config"
	"github.com/andreduarte/trackfolio-backend/internal/domain"
	"github.com/andreduarte/trackfolio-backend/internal/usecase/ledger"
	"github.com/andreduarte/trackfolio-backend/internal/usecase/position"
)

func main() {
	ctx := context.Background()

	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := applog.NewStdLogger(applog.ParseLevel(cfg.LogLevel))

	// 2. Ledger store
	store, closeStore, err := newStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize ledger store: %v", err)
	}
	defer closeStore()

	// 3. Event dispatcher with handlers registered at startup
	dispatcher := event.NewDispatcher(logger)
	registerEventHandlers(dispatcher, logger)

	// 4. Services (use cases)
	ledgerService := ledger.NewService(store, dispatcher, logger, &cfg.DefaultTaxRate)
	positionService := position.NewService(store, logger, cfg.BaseCurrency)

	// 5. HTTP server
	handler := httpserver.NewServer(ledgerService, positionService, cfg.APIToken, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", map[string]interface{}{"port": cfg.ServerPort, "store": string(cfg.StoreDriver)})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	waitForShutdown(ctx, srv, logger)
}

// newStore builds the TransactionStore selected by configuration and
// returns it with a cleanup function
func newStore(cfg *config.Config, logger domain.Logger) (domain.TransactionStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.NewDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewTransactionStore(db), func() { db.Close() }, nil
	case config.StoreSQLite:
		store, err := sqlite.NewTransactionStore(sqlite.Config{DBPath: cfg.SQLitePath, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return memory.NewTransactionStore(), func() {}, nil
	}
}

// registerEventHandlers wires the downstream consumers of ledger events.
// Currently an audit log; read-model projections plug in here.
func registerEventHandlers(dispatcher *event.Dispatcher, logger domain.Logger) {
	audit := func(ctx context.Context, e domain.Event) {
		logger.Debug(ctx, "ledger event", map[string]interface{}{"event": e.EventName()})
	}
	dispatcher.Register(domain.TransactionRecorded{}.EventName(), audit)
	dispatcher.Register(domain.TransactionUpdated{}.EventName(), audit)
	dispatcher.Register(domain.TransactionCancelled{}.EventName(), audit)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(ctx context.Context, srv *http.Server, logger domain.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info(ctx, "received signal, shutting down", map[string]interface{}{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, err, "graceful shutdown failed")
	}
	logger.Info(ctx, "HTTP server stopped")
}
