package ledger

import (
	"context"
	"fmt"
	"strings"

	"fina/internal/core"
)

// WalletInput carries the editable wallet fields.
type WalletInput struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Liability      bool       `json:"liability"`
	InitialBalance core.Money `json:"initial_balance"`
}

func (s *Service) ListWallets(ctx context.Context, userID int64, kind core.WalletKind) ([]core.Wallet, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListWallets(ctx, userID, kind)
}

func (s *Service) GetWallet(ctx context.Context, userID, id int64) (core.Wallet, error) {
	return ownedWallet(ctx, s.store, userID, id)
}

func (s *Service) CreateWallet(ctx context.Context, userID int64, in WalletInput) (core.Wallet, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.Wallet{}, err
	}
	w := core.Wallet{
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		Liability:      in.Liability,
		InitialBalance: in.InitialBalance,
	}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	return s.store.CreateWallet(ctx, w)
}

// UpdateWallet changes name, description and initial balance. The liability
// flag is fixed once transactions reference the wallet.
func (s *Service) UpdateWallet(ctx context.Context, userID, id int64, in WalletInput) (core.Wallet, error) {
	w, err := ownedWallet(ctx, s.store, userID, id)
	if err != nil {
		return core.Wallet{}, err
	}
	if in.Liability != w.Liability {
		txs, err := s.store.ListTransactions(ctx, userID, TransactionFilter{WalletID: id})
		if err != nil {
			return core.Wallet{}, fmt.Errorf("list wallet transactions: %w", err)
		}
		if len(txs) > 0 {
			return core.Wallet{}, fmt.Errorf("%w: cannot change wallet kind", core.ErrHasTransactions)
		}
	}
	w.Name = strings.TrimSpace(in.Name)
	w.Description = strings.TrimSpace(in.Description)
	w.Liability = in.Liability
	w.InitialBalance = in.InitialBalance
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	return s.store.UpdateWallet(ctx, w)
}

// DeleteWallet removes a wallet. With dependent transactions it fails with
// core.ErrHasTransactions unless cascade is set, in which case the
// transactions go too, including the other leg of every transfer or debt.
func (s *Service) DeleteWallet(ctx context.Context, userID, id int64, cascade bool) ([]core.Transaction, error) {
	var removed []core.Transaction
	err := s.store.WithTx(ctx, func(st Store) error {
		if _, err := ownedWallet(ctx, st, userID, id); err != nil {
			return err
		}
		var err error
		removed, err = removeDependents(ctx, st, userID, TransactionFilter{WalletID: id}, cascade)
		if err != nil {
			return err
		}
		return st.DeleteWallet(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(id)
	s.afterDelete(ctx, removed)
	return removed, nil
}

// CategoryInput carries the editable category fields.
type CategoryInput struct {
	Type        core.TransactionType `json:"transaction_type_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
}

// ListCategories returns the user's categories, all of them for a zero type.
func (s *Service) ListCategories(ctx context.Context, userID int64, typ core.TransactionType) ([]core.Category, error) {
	if typ != 0 && !typ.RequiresCategory() {
		return nil, fmt.Errorf("%w: %s has no categories", core.ErrInvalidType, typ)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, userID, typ)
}

func (s *Service) CreateCategory(ctx context.Context, userID int64, in CategoryInput) (core.Category, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.Category{}, err
	}
	c := core.Category{
		UserID:      userID,
		Type:        in.Type,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, c)
}

// UpdateCategory renames a category. Its type is fixed once used.
func (s *Service) UpdateCategory(ctx context.Context, userID, id int64, in CategoryInput) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.UserID != userID {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
	}
	if in.Type != 0 && in.Type != c.Type {
		txs, err := s.store.ListTransactions(ctx, userID, TransactionFilter{CategoryID: id})
		if err != nil {
			return core.Category{}, fmt.Errorf("list category transactions: %w", err)
		}
		if len(txs) > 0 {
			return core.Category{}, fmt.Errorf("%w: cannot change category type", core.ErrHasTransactions)
		}
		c.Type = in.Type
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Description = strings.TrimSpace(in.Description)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.UpdateCategory(ctx, c)
}

// DeleteCategory follows the same dependency policy as DeleteWallet.
func (s *Service) DeleteCategory(ctx context.Context, userID, id int64, cascade bool) ([]core.Transaction, error) {
	var removed []core.Transaction
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if c.UserID != userID {
			return &core.NotFoundError{Entity: "category", ID: id}
		}
		removed, err = removeDependents(ctx, st, userID, TransactionFilter{CategoryID: id}, cascade)
		if err != nil {
			return err
		}
		return st.DeleteCategory(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.afterDelete(ctx, removed)
	return removed, nil
}

// removeDependents deletes the transactions matching f, whole pairs at a time.
func removeDependents(ctx context.Context, st Store, userID int64, f TransactionFilter, cascade bool) ([]core.Transaction, error) {
	txs, err := st.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list dependent transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	if !cascade {
		return nil, fmt.Errorf("%w: %d transactions", core.ErrHasTransactions, len(txs))
	}

	var removed []core.Transaction
	pairs := make(map[string]bool)
	for _, tx := range txs {
		if tx.PairID == "" {
			if err := st.DeleteTransaction(ctx, tx.ID); err != nil {
				return nil, fmt.Errorf("delete transaction %d: %w", tx.ID, err)
			}
			removed = append(removed, tx)
			continue
		}
		if pairs[tx.PairID] {
			continue
		}
		pairs[tx.PairID] = true
		legs, err := deletePair(ctx, st, userID, tx.PairID)
		if err != nil {
			return nil, err
		}
		removed = append(removed, legs...)
	}
	return removed, nil
}
