// Package storage is the SQLite ledger.Store: embedded migrations, generated
// style queries and the repository that maps rows to core types.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/log"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	// tx is set on the repository handed to WithTx callbacks.
	tx     *sql.Tx
	logger *log.Logger
	now    func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// DSN returns the connection string for dbPath with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite store ready", log.FieldOperation, log.OpStartup, "path", dbPath)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks the database connection. Used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil && r.tx == nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn inside a database transaction. Nested calls reuse the
// outer transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	view := &SQLiteRepository{db: r.db, queries: r.queries.WithTx(tx), tx: tx, logger: r.logger, now: r.now}
	if err := fn(view); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) stamp() string {
	return r.now().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func affected(n int64, err error, entity string, id any) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// Users

func toUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Currency:     u.Currency,
		Active:       u.Active,
		RegisteredAt: parseTimestamp(u.RegisteredAt),
		UpdatedAt:    parseTimestamp(u.UpdatedAt),
	}
}

func userConflict(err error, u core.User) error {
	if !isUniqueViolation(err) {
		return err
	}
	if strings.Contains(err.Error(), "email") {
		return &core.DuplicateError{Entity: "user", Field: "email", Value: u.Email}
	}
	return &core.DuplicateError{Entity: "user", Field: "username", Value: u.Username}
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "user", id)
	}
	return toUser(u), nil
}

// GetUserByUsername only considers active users.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetActiveUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, notFound(err, "user", username)
	}
	return toUser(u), nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]core.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, toUser(u))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Currency:     u.Currency,
		Active:       u.Active,
		Now:          r.stamp(),
	})
	if err != nil {
		return core.User{}, userConflict(err, u)
	}
	return toUser(row), nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	row, err := r.queries.UpdateUser(ctx, UpdateUserParams{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Currency:     u.Currency,
		Active:       u.Active,
		Now:          r.stamp(),
	})
	if err != nil {
		return core.User{}, notFound(userConflict(err, u), "user", u.ID)
	}
	return toUser(row), nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteUser(ctx, id)
	return affected(n, err, "user", id)
}

// Wallets

func toWallet(w Wallet) core.Wallet {
	return core.Wallet{
		ID:             w.ID,
		UserID:         w.UserID,
		Name:           w.Name,
		Description:    w.Description,
		Liability:      w.Liability,
		InitialBalance: core.Cents(w.InitialBalanceCents),
	}
}

func toWallets(rows []Wallet) []core.Wallet {
	out := make([]core.Wallet, 0, len(rows))
	for _, w := range rows {
		out = append(out, toWallet(w))
	}
	return out
}

func walletConflict(err error, w core.Wallet) error {
	switch {
	case isUniqueViolation(err):
		return &core.DuplicateError{Entity: "wallet", Field: "name", Value: w.Name}
	case isForeignKeyViolation(err):
		return &core.NotFoundError{Entity: "user", ID: w.UserID}
	}
	return err
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, userID int64, kind core.WalletKind) ([]core.Wallet, error) {
	liability := int64(-1)
	switch kind {
	case core.AssetWallets:
		liability = 0
	case core.DebtWallets:
		liability = 1
	}
	rows, err := r.queries.ListWallets(ctx, ListWalletsParams{UserID: userID, Liability: liability})
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return toWallets(rows), nil
}

func (r *SQLiteRepository) GetWallet(ctx context.Context, id int64) (core.Wallet, error) {
	w, err := r.queries.GetWallet(ctx, id)
	if err != nil {
		return core.Wallet{}, notFound(err, "wallet", id)
	}
	return toWallet(w), nil
}

func (r *SQLiteRepository) GetWalletByName(ctx context.Context, userID int64, name string) (core.Wallet, error) {
	w, err := r.queries.GetWalletByName(ctx, userID, name)
	if err != nil {
		return core.Wallet{}, notFound(err, "wallet", name)
	}
	return toWallet(w), nil
}

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	row, err := r.queries.CreateWallet(ctx, CreateWalletParams{
		UserID:              w.UserID,
		Name:                w.Name,
		Description:         w.Description,
		Liability:           w.Liability,
		InitialBalanceCents: w.InitialBalance.Cents,
	})
	if err != nil {
		return core.Wallet{}, walletConflict(err, w)
	}
	return toWallet(row), nil
}

func (r *SQLiteRepository) UpdateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	row, err := r.queries.UpdateWallet(ctx, UpdateWalletParams{
		ID:                  w.ID,
		Name:                w.Name,
		Description:         w.Description,
		Liability:           w.Liability,
		InitialBalanceCents: w.InitialBalance.Cents,
	})
	if err != nil {
		return core.Wallet{}, notFound(walletConflict(err, w), "wallet", w.ID)
	}
	return toWallet(row), nil
}

// DeleteWallet also drops the wallet's transactions through the cascade.
func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteWallet(ctx, id)
	return affected(n, err, "wallet", id)
}

// Categories

func toCategory(c Category) core.Category {
	return core.Category{
		ID:          c.ID,
		UserID:      c.UserID,
		Type:        core.TransactionType(c.TransactionTypeID),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   parseTimestamp(c.CreatedAt),
	}
}

func categoryConflict(err error, c core.Category) error {
	switch {
	case isUniqueViolation(err):
		return &core.DuplicateError{Entity: "category", Field: "name", Value: c.Name}
	case isForeignKeyViolation(err):
		return &core.NotFoundError{Entity: "user", ID: c.UserID}
	case err != nil && strings.Contains(err.Error(), "CHECK constraint failed"):
		return &core.InvalidCategoryError{CategoryID: c.ID, Type: c.Type, Reason: "categories apply to expense and income only"}
	}
	return err
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, typ core.TransactionType) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID, int64(typ))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCategory(c))
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound(err, "category", id)
	}
	return toCategory(c), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		UserID:            c.UserID,
		TransactionTypeID: int64(c.Type),
		Name:              c.Name,
		Description:       c.Description,
		Now:               r.stamp(),
	})
	if err != nil {
		return core.Category{}, categoryConflict(err, c)
	}
	return toCategory(row), nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.UpdateCategory(ctx, UpdateCategoryParams{
		ID:                c.ID,
		TransactionTypeID: int64(c.Type),
		Name:              c.Name,
		Description:       c.Description,
	})
	if err != nil {
		return core.Category{}, notFound(categoryConflict(err, c), "category", c.ID)
	}
	return toCategory(row), nil
}

// DeleteCategory also drops the category's transactions through the cascade.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	return affected(n, err, "category", id)
}

// Transactions

func toTransaction(t Transaction) core.Transaction {
	tx := core.Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		WalletID:    t.WalletID,
		Type:        core.TransactionType(t.TransactionTypeID),
		Amount:      core.Cents(t.AmountCents),
		Description: t.Description,
		PairID:      t.PairID,
		CreatedAt:   parseTimestamp(t.CreatedAt),
		UpdatedAt:   parseTimestamp(t.UpdatedAt),
	}
	if t.CategoryID.Valid {
		tx.CategoryID = core.CategoryRef(t.CategoryID.Int64)
	}
	if d, err := core.ParseDate(t.TransactionDate); err == nil {
		tx.Date = d
	}
	return tx
}

func categoryParam(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// checkRefs reports a missing wallet or category as not found instead of a
// bare foreign key failure.
func (r *SQLiteRepository) checkRefs(ctx context.Context, tx core.Transaction) error {
	if _, err := r.GetWallet(ctx, tx.WalletID); err != nil {
		return err
	}
	if tx.CategoryID != nil {
		if _, err := r.GetCategory(ctx, *tx.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f ledger.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		UserID:            userID,
		WalletID:          f.WalletID,
		CategoryID:        f.CategoryID,
		TransactionTypeID: int64(f.Type),
		PairID:            f.PairID,
		DateFrom:          f.From.String(),
		DateTo:            f.To.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTransaction(t))
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return toTransaction(t), nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := r.checkRefs(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:            tx.UserID,
		WalletID:          tx.WalletID,
		CategoryID:        categoryParam(tx.CategoryID),
		TransactionTypeID: int64(tx.Type),
		AmountCents:       tx.Amount.Cents,
		Description:       tx.Description,
		TransactionDate:   tx.Date.String(),
		PairID:            tx.PairID,
		Now:               r.stamp(),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Transaction{}, &core.NotFoundError{Entity: "user", ID: tx.UserID}
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction stored",
		log.FieldTransactionID, row.ID,
		log.FieldWalletID, row.WalletID,
		log.FieldAmountCents, row.AmountCents)
	return toTransaction(row), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if _, err := r.queries.GetTransaction(ctx, tx.ID); err != nil {
		return core.Transaction{}, notFound(err, "transaction", tx.ID)
	}
	if err := r.checkRefs(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:                tx.ID,
		WalletID:          tx.WalletID,
		CategoryID:        categoryParam(tx.CategoryID),
		TransactionTypeID: int64(tx.Type),
		AmountCents:       tx.Amount.Cents,
		Description:       tx.Description,
		TransactionDate:   tx.Date.String(),
		Now:               r.stamp(),
	})
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", tx.ID)
	}
	return toTransaction(row), nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	return affected(n, err, "transaction", id)
}
