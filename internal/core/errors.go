package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrInvalidCategory = errors.New("invalid category")
	ErrPairCreation    = errors.New("pair creation failed")
	ErrHasTransactions = errors.New("has dependent transactions")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidWindow      = errors.New("invalid date window")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidCurrency    = errors.New("unsupported currency")
	ErrSameWallet         = errors.New("source and destination wallet are the same")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrWalletKind         = errors.New("wrong wallet kind")
	ErrPairedLeg          = errors.New("not allowed on a transfer or debt leg")
	ErrWeakPassword       = errors.New("password too short")
	ErrTooLong            = errors.New("value too long")
)

// NotFoundError reports a missing user, wallet, category or transaction.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateError reports a uniqueness violation.
type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// InvalidCategoryError reports a category that cannot be attached to a
// transaction of the given type.
type InvalidCategoryError struct {
	CategoryID int64
	Type       TransactionType
	Reason     string
}

func (e *InvalidCategoryError) Error() string {
	if e.CategoryID == 0 {
		return fmt.Sprintf("invalid category for %s transaction: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid category %d for %s transaction: %s", e.CategoryID, e.Type, e.Reason)
}

func (e *InvalidCategoryError) Is(target error) bool { return target == ErrInvalidCategory }

// PairCreationError is returned when the second leg of a transfer or debt
// could not be written. The first leg has been removed by then.
type PairCreationError struct {
	PairID string
	Err    error
}

func (e *PairCreationError) Error() string {
	return fmt.Sprintf("create transaction pair %s: %v", e.PairID, e.Err)
}

func (e *PairCreationError) Unwrap() error { return e.Err }

func (e *PairCreationError) Is(target error) bool { return target == ErrPairCreation }

// IsValidation reports whether err is a caller input problem rather than a
// storage or infrastructure failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidCategory, ErrInvalidAmount, ErrInvalidType, ErrInvalidDate, ErrInvalidWindow,
		ErrEmptyName, ErrInvalidEmail, ErrInvalidCurrency, ErrSameWallet, ErrInvalidDirection, ErrWalletKind,
		ErrPairedLeg, ErrWeakPassword, ErrTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
