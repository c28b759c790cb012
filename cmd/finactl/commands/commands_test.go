package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fina/internal/core"
)

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DEFAULT_CURRENCY", "USD")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "fina.db")
}

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--db", db}, args...))
	err := root.Execute()
	return out.String(), err
}

func runJSON[T any](t *testing.T, db string, args ...string) T {
	t.Helper()
	out, err := run(t, db, append(args, "--json")...)
	require.NoError(t, err, out)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestMigrate(t *testing.T) {
	db := setup(t)

	out, err := run(t, db, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations applied")

	out, err = run(t, db, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version")
	assert.Contains(t, out, "(clean)")

	_, err = run(t, db, "migrate", "down")
	assert.ErrorContains(t, err, "--yes")
}

func TestUserCommands(t *testing.T) {
	db := setup(t)

	u := runJSON[core.User](t, db, "user", "create", "--username", "alice", "--email", "Alice@Example.com", "--password", "secret123")
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "USD", u.Currency)
	assert.True(t, u.Active)

	_, err := run(t, db, "user", "create", "--username", "bob", "--email", "bob@example.com", "--password", "short")
	assert.ErrorIs(t, err, core.ErrWeakPassword)

	out, err := run(t, db, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "alice")

	out, err = run(t, db, "user", "deactivate", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deactivated")

	users := runJSON[[]core.User](t, db, "user", "list")
	require.Len(t, users, 1)
	assert.False(t, users[0].Active)

	_, err = run(t, db, "user", "delete", "1")
	assert.ErrorContains(t, err, "--yes")

	_, err = run(t, db, "user", "passwd", "abc", "--password", "whatever1")
	assert.ErrorContains(t, err, "invalid id")
}

func TestLedgerCommands(t *testing.T) {
	db := setup(t)
	runJSON[core.User](t, db, "user", "create", "--username", "alice", "--email", "alice@example.com", "--password", "secret123")

	wallets := runJSON[[]core.Wallet](t, db, "wallet", "list", "-u", "1")
	assert.Len(t, wallets, len(core.SeedWallets))

	travel := runJSON[core.Wallet](t, db, "wallet", "create", "-u", "1", "--name", "Travel", "--balance", "100")
	assert.Equal(t, int64(10000), travel.InitialBalance.Cents)
	travelID := strconv.FormatInt(travel.ID, 10)

	pair := runJSON[pairOutput](t, db, "transfer", "-u", "1",
		"--from", travelID, "--to", "Cash", "--amount", "40", "--date", "2024-01-10")
	assert.NotEmpty(t, pair.PairID)
	require.Len(t, pair.Legs, 2)
	assert.Equal(t, pair.PairID, pair.Legs[1].PairID)

	b := runJSON[core.Balances](t, db, "balances", "-u", "1")
	assert.Equal(t, int64(10000), b.AvailableAssets.Cents)
	for _, wb := range b.AssetBalances {
		switch wb.Wallet.Name {
		case "Travel":
			assert.Equal(t, int64(6000), wb.CurrentBalance.Cents)
		case "Cash":
			assert.Equal(t, int64(4000), wb.CurrentBalance.Cents)
		}
	}

	out, err := run(t, db, "balances", "-u", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "$60.00")
	assert.Contains(t, out, "$100.00")

	debts := runJSON[[]core.Wallet](t, db, "wallet", "list", "-u", "1", "--kind", "debt")
	assert.Empty(t, debts)

	_, err = run(t, db, "report", "-u", "1", "--from", "2024-02-01", "--to", "2024-01-01")
	assert.ErrorIs(t, err, core.ErrInvalidWindow)

	rep := runJSON[core.Report](t, db, "report", "-u", "1", "--from", "2024-01-01", "--to", "2024-01-31")
	assert.True(t, rep.Income.IsZero())
	assert.True(t, rep.Expense.IsZero())

	out, err = run(t, db, "wallet", "delete", "-u", "1", travelID)
	assert.ErrorIs(t, err, core.ErrHasTransactions, out)

	out, err = run(t, db, "wallet", "delete", "-u", "1", travelID, "--cascade")
	require.NoError(t, err)
	assert.Contains(t, out, "with 2 transactions")
}

func TestCommandErrors(t *testing.T) {
	db := setup(t)

	_, err := run(t, db, "balances")
	assert.ErrorIs(t, err, errUserRequired)

	_, err = run(t, db, "wallet", "list", "-u", "1", "--kind", "savings")
	assert.ErrorContains(t, err, "invalid wallet kind")

	_, err = run(t, db, "balances", "-u", "42")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = run(t, db, "export", "backfill")
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")
}
