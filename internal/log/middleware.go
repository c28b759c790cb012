package log

import (
	"context"
	"log/slog"
	"net/http"

	"fina/internal/core"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to the slog default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger provides canned log records for recurring events.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx responses.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, tx core.Transaction) {
	fields := NewFields().
		WithUser(tx.UserID).
		WithTransaction(tx.ID, tx.WalletID, tx.Type.String(), tx.Amount.Cents, tx.Date.String()).
		WithOperation(OpCreate)
	if tx.PairID != "" {
		fields.WithPair(tx.PairID)
	}

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTransactionUpdated(ctx context.Context, tx core.Transaction) {
	fields := NewFields().
		WithUser(tx.UserID).
		WithTransaction(tx.ID, tx.WalletID, tx.Type.String(), tx.Amount.Cents, tx.Date.String()).
		WithOperation(OpUpdate)
	if tx.PairID != "" {
		fields.WithPair(tx.PairID)
	}

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction updated", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTransactionDeleted(ctx context.Context, tx core.Transaction) {
	fields := NewFields().
		WithUser(tx.UserID).
		WithTransaction(tx.ID, tx.WalletID, tx.Type.String(), tx.Amount.Cents, tx.Date.String()).
		WithOperation(OpDelete)
	if tx.PairID != "" {
		fields.WithPair(tx.PairID)
	}

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction deleted", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
