package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fina/internal/core"
)

// Direction tells which way money moves relative to the source wallet.
type Direction int

const (
	// Outgoing takes money out of the source wallet: a transfer sent or money lent/repaid.
	Outgoing Direction = iota + 1
	// Incoming brings money into the source wallet: money borrowed or collected.
	Incoming
)

func (d Direction) Valid() bool { return d == Outgoing || d == Incoming }

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts "outgoing"/"out" and "incoming"/"in".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outgoing", "out":
		return Outgoing, nil
	case "incoming", "in":
		return Incoming, nil
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidDirection, s)
}

// PairInput describes a transfer or debt event. For transfers Destination
// is the id or the name of an existing asset wallet; for debts it is the
// counterparty name, created as a debt wallet on first use.
type PairInput struct {
	Type           core.TransactionType `json:"transaction_type_id"`
	SourceWalletID int64                `json:"source_wallet_id"`
	Destination    string               `json:"destination"`
	Amount         core.Money           `json:"amount"`
	Direction      Direction            `json:"direction"`
	Date           core.Date            `json:"transaction_date"`
	Description    string               `json:"description"`
}

func (in PairInput) validate() error {
	if !in.Type.IsPaired() {
		return fmt.Errorf("%w: %s is not a paired type", core.ErrInvalidType, in.Type)
	}
	if in.Amount.IsZero() {
		return core.ErrInvalidAmount
	}
	if !in.Direction.Valid() {
		return core.ErrInvalidDirection
	}
	if strings.TrimSpace(in.Destination) == "" {
		return fmt.Errorf("%w: destination", core.ErrEmptyName)
	}
	return in.Date.Validate()
}

// createPair writes both legs of a transfer or debt event to store, which
// is expected to be a transactional scope. When the second leg fails the
// first is deleted before the error is returned.
func createPair(ctx context.Context, store Store, userID int64, in PairInput, pairID string) (core.Transaction, core.Transaction, error) {
	if err := in.validate(); err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}

	src, err := ownedWallet(ctx, store, userID, in.SourceWalletID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("source wallet: %w", err)
	}
	if src.Liability {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("%w: source %q is a debt wallet", core.ErrWalletKind, src.Name)
	}

	var dst core.Wallet
	if in.Type == core.Transfer {
		dst, err = transferDestination(ctx, store, userID, in.Destination)
	} else {
		dst, err = debtCounterparty(ctx, store, userID, in.Destination)
	}
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	if dst.ID == src.ID {
		return core.Transaction{}, core.Transaction{}, core.ErrSameWallet
	}

	amount := in.Amount.Abs()
	if in.Direction == Outgoing {
		amount = amount.Neg()
	}
	leg := core.Transaction{
		UserID:      userID,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		PairID:      pairID,
	}

	legA := leg
	legA.WalletID = src.ID
	legA.Amount = amount
	legA, err = store.CreateTransaction(ctx, legA)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("create source leg: %w", err)
	}

	legB := leg
	legB.WalletID = dst.ID
	legB.Amount = amount.Neg()
	legB, err = store.CreateTransaction(ctx, legB)
	if err != nil {
		if delErr := store.DeleteTransaction(ctx, legA.ID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("remove source leg %d: %w", legA.ID, delErr))
		}
		return core.Transaction{}, core.Transaction{}, &core.PairCreationError{PairID: pairID, Err: err}
	}
	return legA, legB, nil
}

func transferDestination(ctx context.Context, store Store, userID int64, dest string) (core.Wallet, error) {
	var (
		w   core.Wallet
		err error
	)
	if id, perr := strconv.ParseInt(strings.TrimSpace(dest), 10, 64); perr == nil {
		w, err = ownedWallet(ctx, store, userID, id)
	} else {
		w, err = store.GetWalletByName(ctx, userID, strings.TrimSpace(dest))
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("destination wallet: %w", err)
	}
	if w.Liability {
		return core.Wallet{}, fmt.Errorf("%w: destination %q is a debt wallet", core.ErrWalletKind, w.Name)
	}
	return w, nil
}

// debtCounterparty returns the debt wallet named name, creating it with a
// zero initial balance if the user has none.
func debtCounterparty(ctx context.Context, store Store, userID int64, name string) (core.Wallet, error) {
	name = strings.TrimSpace(name)
	w, err := store.GetWalletByName(ctx, userID, name)
	switch {
	case err == nil:
		if !w.Liability {
			return core.Wallet{}, fmt.Errorf("%w: %q is an asset wallet", core.ErrWalletKind, name)
		}
		return w, nil
	case !errors.Is(err, core.ErrNotFound):
		return core.Wallet{}, fmt.Errorf("lookup counterparty: %w", err)
	}

	w, err = store.CreateWallet(ctx, core.Wallet{UserID: userID, Name: name, Liability: true})
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create counterparty wallet: %w", err)
	}
	return w, nil
}

// deletePair removes every leg sharing pairID and returns them.
func deletePair(ctx context.Context, store Store, userID int64, pairID string) ([]core.Transaction, error) {
	legs, err := store.ListTransactions(ctx, userID, TransactionFilter{PairID: pairID})
	if err != nil {
		return nil, fmt.Errorf("list pair legs: %w", err)
	}
	for _, leg := range legs {
		if err := store.DeleteTransaction(ctx, leg.ID); err != nil {
			return nil, fmt.Errorf("delete leg %d: %w", leg.ID, err)
		}
	}
	return legs, nil
}
