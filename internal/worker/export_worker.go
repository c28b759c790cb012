// Package worker mirrors ledger events into an export sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"fina/internal/amqp"
	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/log"
	"fina/internal/sheets"
)

const DefaultBatchSize = 4

// ExportWorker turns ledger events into sheet rows. The store is only read,
// to resolve wallet and category names and the user's currency.
type ExportWorker struct {
	store     ledger.Store
	exporter  sheets.LedgerExporter
	logger    *log.Logger
	batchSize int
}

func NewExportWorker(store ledger.Store, exporter sheets.LedgerExporter, batchSize int, logger *log.Logger) *ExportWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
	}
}

// HandleEvent applies one event. Returning an error requeues it.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	tx := event.Transaction
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventKind, event.Kind,
		log.FieldUserID, event.UserID,
		log.FieldTransactionID, tx.ID)

	switch event.Kind {
	case amqp.KindTransactionCreated:
		row := w.resolve(ctx, tx)
		ref, err := w.exporter.AppendTransaction(ctx, row)
		if err != nil {
			return fmt.Errorf("export transaction %d: %w", tx.ID, err)
		}
		w.logger.InfoContext(ctx, "Exported transaction",
			log.FieldTransactionID, tx.ID,
			log.FieldSheetsRef, ref)
	case amqp.KindTransactionUpdated:
		row := w.resolve(ctx, tx)
		ref, err := w.exporter.UpdateTransaction(ctx, row)
		if err != nil {
			return fmt.Errorf("update exported transaction %d: %w", tx.ID, err)
		}
		w.logger.InfoContext(ctx, "Updated exported transaction",
			log.FieldTransactionID, tx.ID,
			log.FieldSheetsRef, ref)
	case amqp.KindTransactionDeleted:
		if err := w.exporter.RemoveTransaction(ctx, tx.ID); err != nil {
			return fmt.Errorf("remove transaction %d: %w", tx.ID, err)
		}
		w.logger.InfoContext(ctx, "Removed exported transaction", log.FieldTransactionID, tx.ID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event kind", log.FieldEventKind, event.Kind)
	}
	return nil
}

// resolve fills names from the store. Lookups that fail (the wallet may be
// gone by the time the event arrives) fall back to ids.
func (w *ExportWorker) resolve(ctx context.Context, tx core.Transaction) sheets.ExportRow {
	row := sheets.ExportRow{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Date:          tx.Date,
		Type:          tx.Type,
		Wallet:        fmt.Sprintf("#%d", tx.WalletID),
		Description:   tx.Description,
		Amount:        tx.Amount,
		Currency:      core.DefaultCurrency,
		PairID:        tx.PairID,
	}
	if w.store == nil {
		return row
	}
	if u, err := w.store.GetUser(ctx, tx.UserID); err == nil {
		row.Currency = u.Currency
	}
	if wallet, err := w.store.GetWallet(ctx, tx.WalletID); err == nil {
		row.Wallet = wallet.Name
	}
	if tx.CategoryID != nil {
		if c, err := w.store.GetCategory(ctx, *tx.CategoryID); err == nil {
			row.Category = c.Name
		}
	}
	return row
}

// Backfill exports every stored transaction. Users are read concurrently,
// batchSize at a time; rows already on the sheet are left alone.
func (w *ExportWorker) Backfill(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, errors.New("backfill needs a store")
	}
	users, err := w.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	var exported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.batchSize)
	for _, u := range users {
		g.Go(func() error {
			txs, err := w.store.ListTransactions(gctx, u.ID, ledger.TransactionFilter{})
			if err != nil {
				return fmt.Errorf("list transactions for user %d: %w", u.ID, err)
			}
			// Oldest first so sheet order follows the ledger.
			for i := len(txs) - 1; i >= 0; i-- {
				if _, err := w.exporter.AppendTransaction(gctx, w.resolve(gctx, txs[i])); err != nil {
					return fmt.Errorf("export transaction %d: %w", txs[i].ID, err)
				}
				exported.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	w.logger.InfoContext(ctx, "Backfill finished",
		log.FieldOperation, log.OpExport,
		"users", len(users),
		"exported", exported.Load())
	return int(exported.Load()), err
}
