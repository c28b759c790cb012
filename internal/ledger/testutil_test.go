package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/storage/memory"
)

var errBoom = errors.New("boom")

type fixture struct {
	ctx   context.Context
	store *memory.Store
	svc   *ledger.Service
	user  core.User
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	u, err := store.CreateUser(ctx, core.User{Username: "ana", Email: "ana@example.com", Currency: "USD", Active: true})
	require.NoError(t, err)
	opts = append([]ledger.Option{ledger.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return &fixture{ctx: ctx, store: store, svc: ledger.NewService(store, opts...), user: u}
}

func (f *fixture) wallet(t *testing.T, name string, initial int64, liability bool) core.Wallet {
	t.Helper()
	w, err := f.svc.CreateWallet(f.ctx, f.user.ID, ledger.WalletInput{Name: name, InitialBalance: core.Cents(initial), Liability: liability})
	require.NoError(t, err)
	return w
}

func (f *fixture) category(t *testing.T, typ core.TransactionType, name string) core.Category {
	t.Helper()
	c, err := f.svc.CreateCategory(f.ctx, f.user.ID, ledger.CategoryInput{Type: typ, Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) record(t *testing.T, w core.Wallet, c core.Category, cents int64, date core.Date) core.Transaction {
	t.Helper()
	tx, err := f.svc.ValidateAndCreateTransaction(f.ctx, f.user.ID, ledger.TransactionInput{
		WalletID:   w.ID,
		CategoryID: core.CategoryRef(c.ID),
		Type:       c.Type,
		Amount:     core.Cents(cents),
		Date:       date,
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) transactions(t *testing.T) []core.Transaction {
	t.Helper()
	txs, err := f.store.ListTransactions(f.ctx, f.user.ID, ledger.TransactionFilter{})
	require.NoError(t, err)
	return txs
}

// failingStore fails every CreateTransaction after the first failAfter calls.
type failingStore struct {
	ledger.Store
	failAfter int
	calls     *int
	// noTx disables rollback so compensation by the caller is observable.
	noTx bool
}

func newFailingStore(inner ledger.Store, failAfter int, noTx bool) failingStore {
	return failingStore{Store: inner, failAfter: failAfter, calls: new(int), noTx: noTx}
}

func (f failingStore) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	*f.calls++
	if *f.calls > f.failAfter {
		return core.Transaction{}, errBoom
	}
	return f.Store.CreateTransaction(ctx, tx)
}

func (f failingStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	if f.noTx {
		return fn(f)
	}
	return f.Store.WithTx(ctx, func(inner ledger.Store) error {
		return fn(failingStore{Store: inner, failAfter: f.failAfter, calls: f.calls})
	})
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []core.Transaction
	updated []core.Transaction
	deleted []core.Transaction
	err     error
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, tx)
	return p.err
}

func (p *recordingPublisher) PublishTransactionUpdated(_ context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, tx)
	return p.err
}

func (p *recordingPublisher) PublishTransactionDeleted(_ context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, tx)
	return p.err
}
