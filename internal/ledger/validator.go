package ledger

import (
	"context"
	"errors"
	"fmt"

	"fina/internal/core"
)

// ValidateCategory checks that categoryID may be attached to a transaction
// of type typ owned by userID. Paired types must carry no category;
// categorized types need one of the same user and the same type.
func ValidateCategory(ctx context.Context, store Store, userID int64, typ core.TransactionType, categoryID *int64) error {
	if !typ.Valid() {
		return core.ErrInvalidType
	}
	if !typ.RequiresCategory() {
		if categoryID != nil {
			return &core.InvalidCategoryError{CategoryID: *categoryID, Type: typ, Reason: "category not allowed"}
		}
		return nil
	}
	if categoryID == nil {
		return &core.InvalidCategoryError{Type: typ, Reason: "category required"}
	}

	cat, err := store.GetCategory(ctx, *categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return &core.InvalidCategoryError{CategoryID: *categoryID, Type: typ, Reason: "category does not exist"}
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	switch {
	case cat.UserID != userID:
		return &core.InvalidCategoryError{CategoryID: cat.ID, Type: typ, Reason: "category belongs to another user"}
	case cat.Type != typ:
		return &core.InvalidCategoryError{CategoryID: cat.ID, Type: typ, Reason: "category is bound to " + cat.Type.String()}
	}
	return nil
}

// ownedWallet loads a wallet and reports it missing when it belongs to
// someone else.
func ownedWallet(ctx context.Context, store Store, userID, walletID int64) (core.Wallet, error) {
	w, err := store.GetWallet(ctx, walletID)
	if err != nil {
		return core.Wallet{}, err
	}
	if w.UserID != userID {
		return core.Wallet{}, &core.NotFoundError{Entity: "wallet", ID: walletID}
	}
	return w, nil
}

// ValidateTransaction runs the structural checks of tx followed by the
// referential ones: the wallet must belong to the user and the category
// must fit the type.
func ValidateTransaction(ctx context.Context, store Store, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if _, err := ownedWallet(ctx, store, tx.UserID, tx.WalletID); err != nil {
		return err
	}
	return ValidateCategory(ctx, store, tx.UserID, tx.Type, tx.CategoryID)
}
