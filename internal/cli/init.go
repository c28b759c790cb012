// Package cli holds the bootstrap steps shared by cmd/fina, cmd/fina-worker
// and cmd/finactl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fina/internal/backend"
	"fina/internal/cache"
	"fina/internal/config"
	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/log"
	"fina/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and makes it the
// slog default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store and publisher or exits.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return result
}

// OpenWorkerStore opens the SQLite database the API writes to, so the export
// worker can resolve wallet and category names. Other backends are not
// shared across processes: the store is nil, rows carry ids and backfill is
// unavailable.
func OpenWorkerStore(logger *log.Logger, cfg *config.Config) (ledger.Store, func(), error) {
	if cfg.DataBackend != config.BackendSQLite {
		logger.Warn("Export worker cannot read the API store, rows will carry ids instead of names",
			"backend", cfg.DataBackend)
		return nil, func() {}, nil
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

// NewLedgerService wires the service with the balance cache and publisher.
// The returned manager expires cache entries until Stop is called.
func NewLedgerService(cfg *config.Config, res *backend.Result, logger *log.Logger) (*ledger.Service, *cache.Manager) {
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithBcryptCost(cfg.BcryptCost),
		ledger.WithDefaultCurrency(cfg.DefaultCurrency),
	}
	if res.Publisher != nil {
		opts = append(opts, ledger.WithPublisher(res.Publisher))
	}

	manager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	if cfg.BalanceCacheSize > 0 {
		sums := cache.NewLRUCache[int64, core.Money](cfg.BalanceCacheSize, cfg.BalanceCacheTTL)
		manager.Register(sums)
		opts = append(opts, ledger.WithBalanceCache(sums))
	}
	if cfg.CacheCleanupInterval > 0 {
		manager.StartCleanup(cfg.CacheCleanupInterval)
	}

	return ledger.NewService(res.Store, opts...), manager
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
