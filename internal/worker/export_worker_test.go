package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fina/internal/amqp"
	"fina/internal/core"
	"fina/internal/sheets"
	sheetsmem "fina/internal/sheets/memory"
	"fina/internal/storage/memory"
)

type ledgerFixture struct {
	store  *memory.Store
	user   core.User
	wallet core.Wallet
	food   core.Category
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	u, err := store.CreateUser(ctx, core.User{Username: "alice", Email: "alice@example.com", Currency: "EUR", Active: true})
	require.NoError(t, err)
	w, err := store.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash"})
	require.NoError(t, err)
	c, err := store.CreateCategory(ctx, core.Category{UserID: u.ID, Type: core.Expense, Name: "Food"})
	require.NoError(t, err)
	return ledgerFixture{store: store, user: u, wallet: w, food: c}
}

func (f ledgerFixture) expense(t *testing.T, day int, cents int64) core.Transaction {
	t.Helper()
	tx, err := f.store.CreateTransaction(context.Background(), core.Transaction{
		UserID:     f.user.ID,
		WalletID:   f.wallet.ID,
		CategoryID: core.CategoryRef(f.food.ID),
		Type:       core.Expense,
		Amount:     core.Cents(cents),
		Date:       core.NewDate(2024, 2, day),
	})
	require.NoError(t, err)
	return tx
}

func TestHandleEvent(t *testing.T) {
	f := newLedgerFixture(t)
	exporter := sheetsmem.New()
	w := NewExportWorker(f.store, exporter, 0, nil)
	ctx := context.Background()

	tx := f.expense(t, 3, -1500)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.KindTransactionCreated, tx)))

	rows := exporter.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, sheets.ExportRow{
		TransactionID: tx.ID,
		UserID:        f.user.ID,
		Date:          tx.Date,
		Type:          core.Expense,
		Wallet:        "Cash",
		Category:      "Food",
		Amount:        core.Cents(-1500),
		Currency:      "EUR",
	}, rows[0])

	tx.Amount = core.Cents(-900)
	tx.Description = "lunch"
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.KindTransactionUpdated, tx)))
	rows = exporter.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, core.Cents(-900), rows[0].Amount)
	assert.Equal(t, "lunch", rows[0].Description)
	assert.Equal(t, "Food", rows[0].Category)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.KindTransactionDeleted, tx)))
	assert.Empty(t, exporter.Rows())
}

func TestHandleEvent_UnresolvedNames(t *testing.T) {
	exporter := sheetsmem.New()
	w := NewExportWorker(nil, exporter, 0, nil)

	tx := core.Transaction{ID: 9, UserID: 1, WalletID: 77, Type: core.Transfer, Amount: core.Cents(100), PairID: "p"}
	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.KindTransactionCreated, tx)))

	rows := exporter.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "#77", rows[0].Wallet)
	assert.Equal(t, core.DefaultCurrency, rows[0].Currency)
}

type failingExporter struct{ err error }

func (e failingExporter) AppendTransaction(context.Context, sheets.ExportRow) (string, error) {
	return "", e.err
}

func (e failingExporter) UpdateTransaction(context.Context, sheets.ExportRow) (string, error) {
	return "", e.err
}

func (e failingExporter) RemoveTransaction(context.Context, int64) error { return e.err }

func TestHandleEvent_ExporterError(t *testing.T) {
	boom := errors.New("sheet unavailable")
	w := NewExportWorker(nil, failingExporter{err: boom}, 0, nil)
	tx := core.Transaction{ID: 1, UserID: 1, WalletID: 1, Type: core.Income, Amount: core.Cents(5)}

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.KindTransactionCreated, tx))
	assert.ErrorIs(t, err, boom)
	err = w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.KindTransactionUpdated, tx))
	assert.ErrorIs(t, err, boom)
	err = w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.KindTransactionDeleted, tx))
	assert.ErrorIs(t, err, boom)
}

func TestBackfill(t *testing.T) {
	f := newLedgerFixture(t)
	first := f.expense(t, 1, -100)
	second := f.expense(t, 9, -200)
	exporter := sheetsmem.New()
	w := NewExportWorker(f.store, exporter, 2, nil)

	n, err := w.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := exporter.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].TransactionID)
	assert.Equal(t, second.ID, rows[1].TransactionID)

	// Running again does not duplicate rows.
	_, err = w.Backfill(context.Background())
	require.NoError(t, err)
	assert.Len(t, exporter.Rows(), 2)
}
