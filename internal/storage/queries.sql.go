package storage

import (
	"context"
	"database/sql"
)

const userColumns = `id, username, full_name, email, password_hash, currency, active, registered_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &u.Currency, &u.Active, &u.RegisteredAt, &u.UpdatedAt)
	return u, err
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getActiveUserByUsername = `SELECT ` + userColumns + ` FROM users
WHERE username = ? COLLATE NOCASE AND active = 1`

func (q *Queries) GetActiveUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getActiveUserByUsername, username))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY id`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

type CreateUserParams struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Currency     string
	Active       bool
	Now          string
}

const createUser = `INSERT INTO users (username, full_name, email, password_hash, currency, active, registered_at, updated_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?7)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser,
		arg.Username, arg.FullName, arg.Email, arg.PasswordHash, arg.Currency, arg.Active, arg.Now))
}

type UpdateUserParams struct {
	ID           int64
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Currency     string
	Active       bool
	Now          string
}

const updateUser = `UPDATE users
SET username = ?2, full_name = ?3, email = ?4, password_hash = ?5, currency = ?6, active = ?7, updated_at = ?8
WHERE id = ?1
RETURNING ` + userColumns

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUser,
		arg.ID, arg.Username, arg.FullName, arg.Email, arg.PasswordHash, arg.Currency, arg.Active, arg.Now))
}

const deleteUser = `DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const walletColumns = `id, user_id, name, description, liability, initial_balance_cents`

func scanWallet(row interface{ Scan(...any) error }) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Description, &w.Liability, &w.InitialBalanceCents)
	return w, err
}

type ListWalletsParams struct {
	UserID int64
	// -1 for all wallets, otherwise 0 or 1
	Liability int64
}

const listWallets = `SELECT ` + walletColumns + ` FROM wallets
WHERE user_id = ?1 AND (?2 = -1 OR liability = ?2)
ORDER BY id`

func (q *Queries) ListWallets(ctx context.Context, arg ListWalletsParams) ([]Wallet, error) {
	rows, err := q.db.QueryContext(ctx, listWallets, arg.UserID, arg.Liability)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

const getWallet = `SELECT ` + walletColumns + ` FROM wallets WHERE id = ?`

func (q *Queries) GetWallet(ctx context.Context, id int64) (Wallet, error) {
	return scanWallet(q.db.QueryRowContext(ctx, getWallet, id))
}

const getWalletByName = `SELECT ` + walletColumns + ` FROM wallets
WHERE user_id = ? AND name = ? COLLATE NOCASE`

func (q *Queries) GetWalletByName(ctx context.Context, userID int64, name string) (Wallet, error) {
	return scanWallet(q.db.QueryRowContext(ctx, getWalletByName, userID, name))
}

type CreateWalletParams struct {
	UserID              int64
	Name                string
	Description         string
	Liability           bool
	InitialBalanceCents int64
}

const createWallet = `INSERT INTO wallets (user_id, name, description, liability, initial_balance_cents)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + walletColumns

func (q *Queries) CreateWallet(ctx context.Context, arg CreateWalletParams) (Wallet, error) {
	return scanWallet(q.db.QueryRowContext(ctx, createWallet,
		arg.UserID, arg.Name, arg.Description, arg.Liability, arg.InitialBalanceCents))
}

type UpdateWalletParams struct {
	ID                  int64
	Name                string
	Description         string
	Liability           bool
	InitialBalanceCents int64
}

const updateWallet = `UPDATE wallets
SET name = ?2, description = ?3, liability = ?4, initial_balance_cents = ?5
WHERE id = ?1
RETURNING ` + walletColumns

func (q *Queries) UpdateWallet(ctx context.Context, arg UpdateWalletParams) (Wallet, error) {
	return scanWallet(q.db.QueryRowContext(ctx, updateWallet,
		arg.ID, arg.Name, arg.Description, arg.Liability, arg.InitialBalanceCents))
}

const deleteWallet = `DELETE FROM wallets WHERE id = ?`

func (q *Queries) DeleteWallet(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteWallet, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const categoryColumns = `id, user_id, transaction_type_id, name, description, created_at`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.UserID, &c.TransactionTypeID, &c.Name, &c.Description, &c.CreatedAt)
	return c, err
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories
WHERE user_id = ?1 AND (?2 = 0 OR transaction_type_id = ?2)
ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context, userID, typeID int64) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

type CreateCategoryParams struct {
	UserID            int64
	TransactionTypeID int64
	Name              string
	Description       string
	Now               string
}

const createCategory = `INSERT INTO categories (user_id, transaction_type_id, name, description, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + categoryColumns

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, createCategory,
		arg.UserID, arg.TransactionTypeID, arg.Name, arg.Description, arg.Now))
}

type UpdateCategoryParams struct {
	ID                int64
	TransactionTypeID int64
	Name              string
	Description       string
}

const updateCategory = `UPDATE categories
SET transaction_type_id = ?2, name = ?3, description = ?4
WHERE id = ?1
RETURNING ` + categoryColumns

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, updateCategory,
		arg.ID, arg.TransactionTypeID, arg.Name, arg.Description))
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, user_id, wallet_id, category_id, transaction_type_id, amount_cents,
description, transaction_date, pair_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.WalletID, &t.CategoryID, &t.TransactionTypeID, &t.AmountCents,
		&t.Description, &t.TransactionDate, &t.PairID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Zero values in ListTransactionsParams disable the corresponding filter.
type ListTransactionsParams struct {
	UserID            int64
	WalletID          int64
	CategoryID        int64
	TransactionTypeID int64
	PairID            string
	DateFrom          string
	DateTo            string
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = ?1
  AND (?2 = 0 OR wallet_id = ?2)
  AND (?3 = 0 OR category_id = ?3)
  AND (?4 = 0 OR transaction_type_id = ?4)
  AND (?5 = '' OR pair_id = ?5)
  AND (?6 = '' OR transaction_date >= ?6)
  AND (?7 = '' OR transaction_date <= ?7)
ORDER BY transaction_date DESC, id ASC`

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.UserID, arg.WalletID, arg.CategoryID, arg.TransactionTypeID, arg.PairID, arg.DateFrom, arg.DateTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

type CreateTransactionParams struct {
	UserID            int64
	WalletID          int64
	CategoryID        sql.NullInt64
	TransactionTypeID int64
	AmountCents       int64
	Description       string
	TransactionDate   string
	PairID            string
	Now               string
}

const createTransaction = `INSERT INTO transactions (user_id, wallet_id, category_id, transaction_type_id, amount_cents,
    description, transaction_date, pair_id, created_at, updated_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?9)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.WalletID, arg.CategoryID, arg.TransactionTypeID, arg.AmountCents,
		arg.Description, arg.TransactionDate, arg.PairID, arg.Now))
}

type UpdateTransactionParams struct {
	ID                int64
	WalletID          int64
	CategoryID        sql.NullInt64
	TransactionTypeID int64
	AmountCents       int64
	Description       string
	TransactionDate   string
	Now               string
}

const updateTransaction = `UPDATE transactions
SET wallet_id = ?2, category_id = ?3, transaction_type_id = ?4, amount_cents = ?5,
    description = ?6, transaction_date = ?7, updated_at = ?8
WHERE id = ?1
RETURNING ` + transactionColumns

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, updateTransaction,
		arg.ID, arg.WalletID, arg.CategoryID, arg.TransactionTypeID, arg.AmountCents,
		arg.Description, arg.TransactionDate, arg.Now))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
