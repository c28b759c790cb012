package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fina/internal/core"
	"fina/internal/ledger"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fina.db")
	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func seedUser(t *testing.T, repo *SQLiteRepository, username string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Username: username,
		Email:    username + "@example.com",
		Currency: "USD",
		Active:   true,
	})
	require.NoError(t, err)
	return u
}

func TestMigrationVersion(t *testing.T) {
	_, path := newTestRepo(t)

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestUserUniqueness(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice")
	assert.NotZero(t, u.ID)
	assert.False(t, u.RegisteredAt.IsZero())

	_, err := repo.CreateUser(ctx, core.User{Username: "ALICE", Email: "other@example.com", Currency: "USD", Active: true})
	var dup *core.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "username", dup.Field)

	_, err = repo.CreateUser(ctx, core.User{Username: "bob", Email: "Alice@Example.com", Currency: "USD", Active: true})
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	// A deactivated account frees its username.
	u.Active = false
	_, err = repo.UpdateUser(ctx, u)
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, core.User{Username: "alice", Email: "alice@example.com", Currency: "USD", Active: true})
	require.NoError(t, err)

	_, err = repo.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWalletsByKind(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice")

	cash, err := repo.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash", InitialBalance: core.Cents(1000)})
	require.NoError(t, err)
	_, err = repo.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Bob", Liability: true})
	require.NoError(t, err)

	_, err = repo.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "cash"})
	assert.ErrorIs(t, err, core.ErrDuplicate)

	_, err = repo.CreateWallet(ctx, core.Wallet{UserID: 999, Name: "Ghost"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := repo.ListWallets(ctx, u.ID, core.AllWallets)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assets, err := repo.ListWallets(ctx, u.ID, core.AssetWallets)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, cash.ID, assets[0].ID)
	assert.Equal(t, int64(1000), assets[0].InitialBalance.Cents)

	debts, err := repo.ListWallets(ctx, u.ID, core.DebtWallets)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.True(t, debts[0].Liability)

	byName, err := repo.GetWalletByName(ctx, u.ID, "BOB")
	require.NoError(t, err)
	assert.Equal(t, "Bob", byName.Name)
}

func TestCategoryRejectsPairedType(t *testing.T) {
	repo, _ := newTestRepo(t)
	u := seedUser(t, repo, "alice")

	_, err := repo.CreateCategory(context.Background(), core.Category{UserID: u.ID, Type: core.Transfer, Name: "Moves"})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
}

func TestTransactionsOrderingAndFilter(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice")
	w, err := repo.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash"})
	require.NoError(t, err)
	food, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Type: core.Expense, Name: "Food"})
	require.NoError(t, err)

	mk := func(day int, cents int64) core.Transaction {
		tx, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:     u.ID,
			WalletID:   w.ID,
			CategoryID: core.CategoryRef(food.ID),
			Type:       core.Expense,
			Amount:     core.Cents(cents),
			Date:       core.NewDate(2024, 3, day),
		})
		require.NoError(t, err)
		return tx
	}
	a := mk(1, -100)
	b := mk(5, -200)
	c := mk(5, -300)

	got, err := repo.ListTransactions(ctx, u.ID, ledger.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	require.NotNil(t, got[0].CategoryID)
	assert.Equal(t, food.ID, *got[0].CategoryID)
	assert.True(t, got[0].Date.Equal(core.NewDate(2024, 3, 5)))

	got, err = repo.ListTransactions(ctx, u.ID, ledger.TransactionFilter{
		From: core.NewDate(2024, 3, 2),
		To:   core.NewDate(2024, 3, 31),
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, WalletID: 999, Type: core.Transfer, Amount: core.Cents(5), Date: core.NewDate(2024, 3, 1),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCascadeDeletes(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice")
	w, err := repo.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash"})
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, WalletID: w.ID, Type: core.Transfer, Amount: core.Cents(500),
		Date: core.NewDate(2024, 1, 1), PairID: "p-1",
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteWallet(ctx, w.ID))
	got, err := repo.ListTransactions(ctx, u.ID, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, repo.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, repo.DeleteUser(ctx, u.ID), core.ErrNotFound)
}

func TestWithTxRollback(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice")
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(s ledger.Store) error {
		if _, err := s.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	wallets, err := repo.ListWallets(ctx, u.ID, core.AllWallets)
	require.NoError(t, err)
	assert.Empty(t, wallets)

	err = repo.WithTx(ctx, func(s ledger.Store) error {
		_, err := s.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash"})
		return err
	})
	require.NoError(t, err)
	wallets, err = repo.ListWallets(ctx, u.ID, core.AllWallets)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}
