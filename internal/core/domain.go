package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Expense  TransactionType = 1
	Income   TransactionType = 2
	Transfer TransactionType = 3
	Debt     TransactionType = 4
)

type (
	// TransactionType is the closed set of ledger entry kinds.
	TransactionType int

	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		FullName     string    `json:"full_name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Currency     string    `json:"currency"`
		Active       bool      `json:"active"`
		RegisteredAt time.Time `json:"registered_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Wallet struct {
		ID             int64  `json:"id"`
		UserID         int64  `json:"user_id"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		Liability      bool   `json:"liability"` // true for debt wallets
		InitialBalance Money  `json:"initial_balance"`
	}

	Category struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id"`
		Type        TransactionType `json:"transaction_type_id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id"`
		WalletID    int64           `json:"wallet_id"`
		CategoryID  *int64          `json:"category_id"` // nil for transfer and debt legs
		Type        TransactionType `json:"transaction_type_id"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        Date            `json:"transaction_date"`
		PairID      string          `json:"pair_id,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	// WalletKind selects wallets by their liability flag.
	WalletKind int
)

const (
	AllWallets WalletKind = iota
	AssetWallets
	DebtWallets
)

// Matches reports whether w belongs to the kind.
func (k WalletKind) Matches(w Wallet) bool {
	switch k {
	case AssetWallets:
		return !w.Liability
	case DebtWallets:
		return w.Liability
	default:
		return true
	}
}

var transactionTypeNames = map[TransactionType]string{
	Expense:  "Expense",
	Income:   "Income",
	Transfer: "Transfer",
	Debt:     "Debt",
}

// TransactionTypes returns every type in id order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Expense, Income, Transfer, Debt}
}

// ParseTransactionType accepts a type id ("1") or a case-insensitive name ("expense").
func ParseTransactionType(s string) (TransactionType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if t := TransactionType(n); t.Valid() {
			return t, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	for t, name := range transactionTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t TransactionType) Valid() bool {
	_, ok := transactionTypeNames[t]
	return ok
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// RequiresCategory is true for types that must reference a category.
func (t TransactionType) RequiresCategory() bool {
	return t == Expense || t == Income
}

// IsPaired is true for types recorded as two opposite legs.
func (t TransactionType) IsPaired() bool {
	return t == Transfer || t == Debt
}

// Signed applies the stored sign convention for single-leg types:
// expenses are negative, income positive. Paired types keep the caller's sign.
func (t TransactionType) Signed(m Money) Money {
	switch t {
	case Expense:
		return m.Abs().Neg()
	case Income:
		return m.Abs()
	default:
		return m
	}
}

// Validate checks the structural rules of a transaction: known type,
// non-zero amount, a date, and category presence matching the type.
// Referential checks live in the ledger validator.
func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if tx.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if len(tx.Description) > 200 {
		return fmt.Errorf("%w: description exceeds 200 characters", ErrTooLong)
	}
	if tx.Type.RequiresCategory() && tx.CategoryID == nil {
		return &InvalidCategoryError{Type: tx.Type, Reason: "category required"}
	}
	if tx.Type.IsPaired() && tx.CategoryID != nil {
		return &InvalidCategoryError{CategoryID: *tx.CategoryID, Type: tx.Type, Reason: "category not allowed"}
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if len(w.Name) > 100 {
		return fmt.Errorf("%w: wallet name exceeds 100 characters", ErrTooLong)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.RequiresCategory() {
		return &InvalidCategoryError{CategoryID: c.ID, Type: c.Type, Reason: "categories apply to expense and income only"}
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsSupportedCurrency(u.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

// CategoryRef returns a pointer suitable for Transaction.CategoryID.
func CategoryRef(id int64) *int64 {
	return &id
}
