// Package ledger holds the transaction and balance rules: category
// validation, balance and period aggregation, paired transfer/debt legs and
// the service that applies them on top of a Store.
package ledger

import (
	"context"

	"fina/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values match everything;
// From and To are inclusive.
type TransactionFilter struct {
	WalletID   int64
	CategoryID int64
	Type       core.TransactionType
	PairID     string
	From       core.Date
	To         core.Date
}

// Matches reports whether tx passes the filter. Stores without query
// support use it directly.
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if f.WalletID != 0 && tx.WalletID != f.WalletID {
		return false
	}
	if f.CategoryID != 0 && (tx.CategoryID == nil || *tx.CategoryID != f.CategoryID) {
		return false
	}
	if f.Type != 0 && tx.Type != f.Type {
		return false
	}
	if f.PairID != "" && tx.PairID != f.PairID {
		return false
	}
	return tx.Date.InRange(f.From, f.To)
}

// Store is the persistence contract the ledger works against.
//
// Lookups by id are not scoped to a user; ownership is checked by the
// ledger. ListTransactions returns rows by transaction date descending,
// ties by ascending id. Uniqueness violations are reported as
// *core.DuplicateError and missing rows as *core.NotFoundError.
type Store interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) (core.User, error)
	// DeleteUser removes the user with all wallets, categories and transactions.
	DeleteUser(ctx context.Context, id int64) error

	ListWallets(ctx context.Context, userID int64, kind core.WalletKind) ([]core.Wallet, error)
	GetWallet(ctx context.Context, id int64) (core.Wallet, error)
	GetWalletByName(ctx context.Context, userID int64, name string) (core.Wallet, error)
	CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error)
	UpdateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error)
	DeleteWallet(ctx context.Context, id int64) error

	// ListCategories returns the user's categories; a zero type returns all.
	ListCategories(ctx context.Context, userID int64, typ core.TransactionType) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error

	// WithTx runs fn against a Store whose writes commit together when fn
	// returns nil and are discarded otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}
