package storage

import "database/sql"

type User struct {
	ID           int64
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Currency     string
	Active       bool
	RegisteredAt string
	UpdatedAt    string
}

type Wallet struct {
	ID                  int64
	UserID              int64
	Name                string
	Description         string
	Liability           bool
	InitialBalanceCents int64
}

type Category struct {
	ID                int64
	UserID            int64
	TransactionTypeID int64
	Name              string
	Description       string
	CreatedAt         string
}

type Transaction struct {
	ID                int64
	UserID            int64
	WalletID          int64
	CategoryID        sql.NullInt64
	TransactionTypeID int64
	AmountCents       int64
	Description       string
	TransactionDate   string
	PairID            string
	CreatedAt         string
	UpdatedAt         string
}
