package ledger_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fina/internal/core"
	"fina/internal/ledger"
)

func TestTransferScenario(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "A", 10000, false)
	b := f.wallet(t, "B", 2000, false)

	before, err := f.svc.ComputeBalances(f.ctx, f.user.ID)
	require.NoError(t, err)

	legA, legB, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
		Type: core.Transfer, SourceWalletID: a.ID, Destination: strconv.FormatInt(b.ID, 10),
		Amount: core.Cents(4000), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 7), Description: "rent split",
	})
	require.NoError(t, err)

	assert.Equal(t, legA.Amount.Neg(), legB.Amount)
	assert.NotEqual(t, legA.WalletID, legB.WalletID)
	assert.NotEmpty(t, legA.PairID)
	assert.Equal(t, legA.PairID, legB.PairID)
	assert.Nil(t, legA.CategoryID)
	assert.Nil(t, legB.CategoryID)
	assert.Equal(t, legA.Date, legB.Date)
	assert.Equal(t, "rent split", legB.Description)
	assert.Equal(t, core.Transfer, legB.Type)

	after, err := f.svc.ComputeBalances(f.ctx, f.user.ID)
	require.NoError(t, err)
	balances := map[int64]int64{}
	for _, wb := range after.AssetBalances {
		balances[wb.Wallet.ID] = wb.CurrentBalance.Cents
	}
	assert.Equal(t, int64(6000), balances[a.ID])
	assert.Equal(t, int64(6000), balances[b.ID])
	assert.Equal(t, before.AvailableAssets, after.AvailableAssets)
	assert.Len(t, f.transactions(t), 2)
}

func TestTransferIncomingDirection(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "A", 0, false)
	f.wallet(t, "B", 0, false)

	legA, legB, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
		Type: core.Transfer, SourceWalletID: a.ID, Destination: "b",
		Amount: core.Cents(-750), Direction: ledger.Incoming, Date: core.NewDate(2024, 1, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(750), legA.Amount.Cents)
	assert.Equal(t, int64(-750), legB.Amount.Cents)
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "A", 0, false)
	f.wallet(t, "Loan", 0, true)
	base := ledger.PairInput{
		Type: core.Transfer, SourceWalletID: a.ID, Destination: "A",
		Amount: core.Cents(100), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 1),
	}

	cases := []struct {
		name string
		mut  func(*ledger.PairInput)
		want error
	}{
		{"same wallet", func(in *ledger.PairInput) {}, core.ErrSameWallet},
		{"missing destination", func(in *ledger.PairInput) { in.Destination = "Nowhere" }, core.ErrNotFound},
		{"debt wallet destination", func(in *ledger.PairInput) { in.Destination = "Loan" }, core.ErrWalletKind},
		{"zero amount", func(in *ledger.PairInput) { in.Destination = "Loan"; in.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"not a paired type", func(in *ledger.PairInput) { in.Type = core.Expense }, core.ErrInvalidType},
		{"no direction", func(in *ledger.PairInput) { in.Direction = 0 }, core.ErrInvalidDirection},
		{"debt to asset wallet", func(in *ledger.PairInput) { in.Type = core.Debt }, core.ErrWalletKind},
		{"foreign source", func(in *ledger.PairInput) { in.SourceWalletID = 424242 }, core.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mut(&in)
			_, _, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, in)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.transactions(t))
		})
	}
}

func TestDebtReusesCounterparty(t *testing.T) {
	f := newFixture(t)
	cash := f.wallet(t, "Cash", 10000, false)
	in := ledger.PairInput{
		Type: core.Debt, SourceWalletID: cash.ID, Destination: "Alice",
		Amount: core.Cents(2500), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 1),
	}
	_, first, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, in)
	require.NoError(t, err)

	in.Direction = ledger.Incoming
	_, second, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, in)
	require.NoError(t, err)
	assert.Equal(t, first.WalletID, second.WalletID)
	assert.NotEqual(t, first.PairID, second.PairID)

	debts, err := f.svc.ListWallets(f.ctx, f.user.ID, core.DebtWallets)
	require.NoError(t, err)
	assert.Len(t, debts, 1)

	b, err := f.svc.ComputeBalances(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, b.DebtBalances, "repaid debt should drop out")
	assert.True(t, b.Receivables.IsZero())
}

func TestPairCreationRollsBack(t *testing.T) {
	for _, noTx := range []bool{false, true} {
		t.Run("noTx="+strconv.FormatBool(noTx), func(t *testing.T) {
			f := newFixture(t)
			cash := f.wallet(t, "Cash", 0, false)
			svc := ledger.NewService(newFailingStore(f.store, 1, noTx), ledger.WithPairIDs(func() string { return "pair-1" }))

			_, _, err := svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
				Type: core.Debt, SourceWalletID: cash.ID, Destination: "Alice",
				Amount: core.Cents(2500), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 1),
			})
			var pce *core.PairCreationError
			require.True(t, errors.As(err, &pce), "got %v", err)
			assert.Equal(t, "pair-1", pce.PairID)
			assert.ErrorIs(t, err, core.ErrPairCreation)
			assert.ErrorIs(t, err, errBoom)
			assert.Empty(t, f.transactions(t))

			if !noTx {
				_, err := f.store.GetWalletByName(f.ctx, f.user.ID, "Alice")
				assert.ErrorIs(t, err, core.ErrNotFound, "counterparty wallet should be rolled back")
			}
		})
	}
}

func TestDeletingOneLegDeletesPair(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, ledger.WithPublisher(pub))
	a := f.wallet(t, "A", 0, false)
	f.wallet(t, "B", 0, false)

	_, legB, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
		Type: core.Transfer, SourceWalletID: a.ID, Destination: "B",
		Amount: core.Cents(100), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 1),
	})
	require.NoError(t, err)
	assert.Len(t, pub.created, 2)

	removed, err := f.svc.DeleteTransaction(f.ctx, f.user.ID, legB.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Empty(t, f.transactions(t))
	assert.Len(t, pub.deleted, 2)
}

func TestUpdatePairMirrorsLegs(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, ledger.WithPublisher(pub))
	a := f.wallet(t, "A", 0, false)
	f.wallet(t, "B", 0, false)
	legA, legB, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
		Type: core.Transfer, SourceWalletID: a.ID, Destination: "B",
		Amount: core.Cents(100), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 1),
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateTransaction(f.ctx, f.user.ID, legB.ID, ledger.TransactionInput{
		Amount: core.Cents(300), Date: core.NewDate(2024, 1, 2), Description: "fixed",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), updated.Amount.Cents)

	other, err := f.svc.GetTransaction(f.ctx, f.user.ID, legA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-300), other.Amount.Cents)
	assert.Equal(t, "fixed", other.Description)
	assert.Equal(t, "2024-01-02", other.Date.String())

	// One event per leg, carrying the new values.
	require.Len(t, pub.updated, 2)
	ids := []int64{pub.updated[0].ID, pub.updated[1].ID}
	assert.ElementsMatch(t, []int64{legA.ID, legB.ID}, ids)
	for _, tx := range pub.updated {
		assert.Equal(t, int64(300), tx.Amount.Abs().Cents)
		assert.Equal(t, "fixed", tx.Description)
	}

	_, err = f.svc.UpdateTransaction(f.ctx, f.user.ID, legB.ID, ledger.TransactionInput{
		WalletID: a.ID, Amount: core.Cents(1), Date: core.NewDate(2024, 1, 2),
	})
	assert.ErrorIs(t, err, core.ErrPairedLeg)
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]ledger.Direction{"out": ledger.Outgoing, "Outgoing": ledger.Outgoing, "in": ledger.Incoming, " incoming ": ledger.Incoming} {
		got, err := ledger.ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ledger.ParseDirection("sideways")
	assert.ErrorIs(t, err, core.ErrInvalidDirection)
}
