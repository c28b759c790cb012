package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"fina/internal/cli"
	apphttp "fina/internal/http"
	"fina/internal/log"
	"fina/internal/middleware/ratelimit"
)

// pinger is implemented by stores that hold a live connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.InitBackend(context.Background(), logger, cfg)
	svc, cacheManager := cli.NewLedgerService(cfg, res, logger)

	opts := []apphttp.Option{
		apphttp.WithRequestTimeout(cfg.RequestTimeout),
		apphttp.WithRateLimit(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
	}
	if p, ok := res.Store.(pinger); ok {
		opts = append(opts, apphttp.WithReadyCheck("store", p.Ping))
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, opts...)

	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting fina server", "port", cfg.Port, "backend", cfg.DataBackend,
		"events", cfg.EventsEnabled(), log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
