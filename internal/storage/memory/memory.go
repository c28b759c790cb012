// Package memory is an in-process ledger.Store used by the memory backend
// and as the test double for the ledger.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"fina/internal/core"
	"fina/internal/ledger"
)

type state struct {
	users        map[int64]core.User
	wallets      map[int64]core.Wallet
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	nextID       int64
}

func (st *state) clone() state {
	return state{
		users:        maps.Clone(st.users),
		wallets:      maps.Clone(st.wallets),
		categories:   maps.Clone(st.categories),
		transactions: maps.Clone(st.transactions),
		nextID:       st.nextID,
	}
}

// Store keeps everything in maps guarded by one mutex. WithTx holds the
// mutex for the whole callback and restores a snapshot when it fails.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
	now  func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: &state{
			users:        make(map[int64]core.User),
			wallets:      make(map[int64]core.Wallet),
			categories:   make(map[int64]core.Category),
			transactions: make(map[int64]core.Transaction),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

func (s *Store) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	view := &Store{mu: s.mu, st: s.st, inTx: true, now: s.now}
	if err := fn(view); err != nil {
		*s.st = snap
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Users

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: id}
	}
	return u, nil
}

// GetUserByUsername only considers active users.
func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	defer s.lock()()
	for _, u := range s.st.users {
		if u.Active && strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, &core.NotFoundError{Entity: "user", ID: username}
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	defer s.lock()()
	out := make([]core.User, 0, len(s.st.users))
	for _, u := range s.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) checkUserUnique(u core.User) error {
	if !u.Active {
		return nil
	}
	for _, other := range s.st.users {
		if other.ID == u.ID || !other.Active {
			continue
		}
		if strings.EqualFold(other.Username, u.Username) {
			return &core.DuplicateError{Entity: "user", Field: "username", Value: u.Username}
		}
		if strings.EqualFold(other.Email, u.Email) {
			return &core.DuplicateError{Entity: "user", Field: "email", Value: u.Email}
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	defer s.lock()()
	u.ID = 0
	if err := s.checkUserUnique(u); err != nil {
		return core.User{}, err
	}
	u.ID = s.id()
	u.RegisteredAt = s.now()
	u.UpdatedAt = u.RegisteredAt
	s.st.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	defer s.lock()()
	prev, ok := s.st.users[u.ID]
	if !ok {
		return core.User{}, &core.NotFoundError{Entity: "user", ID: u.ID}
	}
	if err := s.checkUserUnique(u); err != nil {
		return core.User{}, err
	}
	u.RegisteredAt = prev.RegisteredAt
	u.UpdatedAt = s.now()
	s.st.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.st.users[id]; !ok {
		return &core.NotFoundError{Entity: "user", ID: id}
	}
	delete(s.st.users, id)
	maps.DeleteFunc(s.st.wallets, func(_ int64, w core.Wallet) bool { return w.UserID == id })
	maps.DeleteFunc(s.st.categories, func(_ int64, c core.Category) bool { return c.UserID == id })
	maps.DeleteFunc(s.st.transactions, func(_ int64, tx core.Transaction) bool { return tx.UserID == id })
	return nil
}

// Wallets

func (s *Store) ListWallets(_ context.Context, userID int64, kind core.WalletKind) ([]core.Wallet, error) {
	defer s.lock()()
	out := []core.Wallet{}
	for _, w := range s.st.wallets {
		if w.UserID == userID && kind.Matches(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetWallet(_ context.Context, id int64) (core.Wallet, error) {
	defer s.lock()()
	w, ok := s.st.wallets[id]
	if !ok {
		return core.Wallet{}, &core.NotFoundError{Entity: "wallet", ID: id}
	}
	return w, nil
}

func (s *Store) GetWalletByName(_ context.Context, userID int64, name string) (core.Wallet, error) {
	defer s.lock()()
	for _, w := range s.st.wallets {
		if w.UserID == userID && strings.EqualFold(w.Name, name) {
			return w, nil
		}
	}
	return core.Wallet{}, &core.NotFoundError{Entity: "wallet", ID: name}
}

func (s *Store) checkWalletUnique(w core.Wallet) error {
	for _, other := range s.st.wallets {
		if other.ID != w.ID && other.UserID == w.UserID && strings.EqualFold(other.Name, w.Name) {
			return &core.DuplicateError{Entity: "wallet", Field: "name", Value: w.Name}
		}
	}
	return nil
}

func (s *Store) CreateWallet(_ context.Context, w core.Wallet) (core.Wallet, error) {
	defer s.lock()()
	if _, ok := s.st.users[w.UserID]; !ok {
		return core.Wallet{}, &core.NotFoundError{Entity: "user", ID: w.UserID}
	}
	w.ID = 0
	if err := s.checkWalletUnique(w); err != nil {
		return core.Wallet{}, err
	}
	w.ID = s.id()
	s.st.wallets[w.ID] = w
	return w, nil
}

func (s *Store) UpdateWallet(_ context.Context, w core.Wallet) (core.Wallet, error) {
	defer s.lock()()
	prev, ok := s.st.wallets[w.ID]
	if !ok {
		return core.Wallet{}, &core.NotFoundError{Entity: "wallet", ID: w.ID}
	}
	w.UserID = prev.UserID
	if err := s.checkWalletUnique(w); err != nil {
		return core.Wallet{}, err
	}
	s.st.wallets[w.ID] = w
	return w, nil
}

// DeleteWallet also drops the wallet's transactions.
func (s *Store) DeleteWallet(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.st.wallets[id]; !ok {
		return &core.NotFoundError{Entity: "wallet", ID: id}
	}
	delete(s.st.wallets, id)
	maps.DeleteFunc(s.st.transactions, func(_ int64, tx core.Transaction) bool { return tx.WalletID == id })
	return nil
}

// Categories

func (s *Store) ListCategories(_ context.Context, userID int64, typ core.TransactionType) ([]core.Category, error) {
	defer s.lock()()
	out := []core.Category{}
	for _, c := range s.st.categories {
		if c.UserID == userID && (typ == 0 || c.Type == typ) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	defer s.lock()()
	c, ok := s.st.categories[id]
	if !ok {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
	}
	return c, nil
}

func (s *Store) checkCategoryUnique(c core.Category) error {
	for _, other := range s.st.categories {
		if other.ID != c.ID && other.UserID == c.UserID && other.Type == c.Type && strings.EqualFold(other.Name, c.Name) {
			return &core.DuplicateError{Entity: "category", Field: "name", Value: c.Name}
		}
	}
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	defer s.lock()()
	if _, ok := s.st.users[c.UserID]; !ok {
		return core.Category{}, &core.NotFoundError{Entity: "user", ID: c.UserID}
	}
	c.ID = 0
	if err := s.checkCategoryUnique(c); err != nil {
		return core.Category{}, err
	}
	c.ID = s.id()
	c.CreatedAt = s.now()
	s.st.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	defer s.lock()()
	prev, ok := s.st.categories[c.ID]
	if !ok {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: c.ID}
	}
	c.UserID = prev.UserID
	c.CreatedAt = prev.CreatedAt
	if err := s.checkCategoryUnique(c); err != nil {
		return core.Category{}, err
	}
	s.st.categories[c.ID] = c
	return c, nil
}

// DeleteCategory also drops the category's transactions.
func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.st.categories[id]; !ok {
		return &core.NotFoundError{Entity: "category", ID: id}
	}
	delete(s.st.categories, id)
	maps.DeleteFunc(s.st.transactions, func(_ int64, tx core.Transaction) bool {
		return tx.CategoryID != nil && *tx.CategoryID == id
	})
	return nil
}

// Transactions

func cloneTx(tx core.Transaction) core.Transaction {
	if tx.CategoryID != nil {
		tx.CategoryID = core.CategoryRef(*tx.CategoryID)
	}
	return tx
}

func (s *Store) ListTransactions(_ context.Context, userID int64, f ledger.TransactionFilter) ([]core.Transaction, error) {
	defer s.lock()()
	out := []core.Transaction{}
	for _, tx := range s.st.transactions {
		if tx.UserID == userID && f.Matches(tx) {
			out = append(out, cloneTx(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	defer s.lock()()
	tx, ok := s.st.transactions[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return cloneTx(tx), nil
}

func (s *Store) checkRefs(tx core.Transaction) error {
	if _, ok := s.st.wallets[tx.WalletID]; !ok {
		return &core.NotFoundError{Entity: "wallet", ID: tx.WalletID}
	}
	if tx.CategoryID != nil {
		if _, ok := s.st.categories[*tx.CategoryID]; !ok {
			return &core.NotFoundError{Entity: "category", ID: *tx.CategoryID}
		}
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	defer s.lock()()
	if err := s.checkRefs(tx); err != nil {
		return core.Transaction{}, err
	}
	tx = cloneTx(tx)
	tx.ID = s.id()
	tx.CreatedAt = s.now()
	tx.UpdatedAt = tx.CreatedAt
	s.st.transactions[tx.ID] = tx
	return cloneTx(tx), nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	defer s.lock()()
	prev, ok := s.st.transactions[tx.ID]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: tx.ID}
	}
	if err := s.checkRefs(tx); err != nil {
		return core.Transaction{}, err
	}
	tx = cloneTx(tx)
	tx.UserID = prev.UserID
	tx.PairID = prev.PairID
	tx.CreatedAt = prev.CreatedAt
	tx.UpdatedAt = s.now()
	s.st.transactions[tx.ID] = tx
	return cloneTx(tx), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.st.transactions[id]; !ok {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	delete(s.st.transactions, id)
	return nil
}
