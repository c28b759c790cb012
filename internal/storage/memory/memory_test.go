package memory

import (
	"context"
	"errors"
	"testing"

	"fina/internal/core"
	"fina/internal/ledger"
)

func seedUser(t *testing.T, s *Store) (core.User, core.Wallet) {
	t.Helper()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, core.User{Username: "ana", Email: "ana@example.com", Currency: "USD", Active: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	w, err := s.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Cash", InitialBalance: core.Cents(1000)})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return u, w
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := seedUser(t, s)

	_, err := s.CreateUser(ctx, core.User{Username: "ANA", Email: "other@example.com", Active: true})
	var dup *core.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "username" {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	if _, err := s.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "cash"}); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected duplicate wallet name, got %v", err)
	}

	// Deactivation frees the username.
	u.Active = false
	if _, err := s.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateUser(ctx, core.User{Username: "ana", Email: "ana@example.com", Active: true}); err != nil {
		t.Fatalf("expected reuse after deactivation, got %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "ana"); err != nil {
		t.Fatalf("active user lookup: %v", err)
	}
}

func TestListTransactionsOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, w := seedUser(t, s)

	dates := []core.Date{core.NewDate(2024, 1, 5), core.NewDate(2024, 1, 7), core.NewDate(2024, 1, 5)}
	var ids []int64
	for _, d := range dates {
		tx, err := s.CreateTransaction(ctx, core.Transaction{UserID: u.ID, WalletID: w.ID, Type: core.Transfer, Amount: core.Cents(-1), Date: d})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tx.ID)
	}

	got, err := s.ListTransactions(ctx, u.ID, ledger.TransactionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{ids[1], ids[0], ids[2]}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: got id %d, want %d", i, got[i].ID, want[i])
		}
	}

	got, _ = s.ListTransactions(ctx, u.ID, ledger.TransactionFilter{From: core.NewDate(2024, 1, 6)})
	if len(got) != 1 || got[0].ID != ids[1] {
		t.Fatalf("date filter returned %+v", got)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, w := seedUser(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(st ledger.Store) error {
		if _, err := st.CreateTransaction(ctx, core.Transaction{UserID: u.ID, WalletID: w.ID, Type: core.Transfer, Amount: core.Cents(5), Date: core.NewDate(2024, 1, 1)}); err != nil {
			return err
		}
		if _, err := st.CreateWallet(ctx, core.Wallet{UserID: u.ID, Name: "Bob", Liability: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	txs, _ := s.ListTransactions(ctx, u.ID, ledger.TransactionFilter{})
	wallets, _ := s.ListWallets(ctx, u.ID, core.AllWallets)
	if len(txs) != 0 || len(wallets) != 1 {
		t.Fatalf("rollback left %d transactions and %d wallets", len(txs), len(wallets))
	}
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, w := seedUser(t, s)
	if _, err := s.CreateTransaction(ctx, core.Transaction{UserID: u.ID, WalletID: w.ID, Type: core.Transfer, Amount: core.Cents(5), Date: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWallet(ctx, w.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("wallet survived user delete: %v", err)
	}
	if txs, _ := s.ListTransactions(ctx, u.ID, ledger.TransactionFilter{}); len(txs) != 0 {
		t.Fatalf("transactions survived user delete")
	}
}
