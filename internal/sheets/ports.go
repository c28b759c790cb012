// Package sheets defines the outbound export port for ledger rows.
package sheets

import (
	"context"

	"fina/internal/core"
)

// ExportRow is one transaction as it appears in an export sheet. Names are
// resolved by the caller; empty names fall back to ids.
type ExportRow struct {
	TransactionID int64
	UserID        int64
	Date          core.Date
	Type          core.TransactionType
	Wallet        string
	Category      string
	Description   string
	Amount        core.Money
	Currency      string
	PairID        string
}

type (
	// LedgerExporter mirrors ledger changes into an external sheet. All
	// operations are idempotent so redelivered events are harmless.
	// UpdateTransaction rewrites the row in place and appends it when the
	// transaction was never exported.
	LedgerExporter interface {
		AppendTransaction(ctx context.Context, row ExportRow) (rowRef string, err error)
		UpdateTransaction(ctx context.Context, row ExportRow) (rowRef string, err error)
		RemoveTransaction(ctx context.Context, transactionID int64) error
	}
)
