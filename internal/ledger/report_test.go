package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fina/internal/core"
	"fina/internal/ledger"
)

func cents(ms []core.Money) []int64 {
	out := make([]int64, len(ms))
	for i, m := range ms {
		out[i] = m.Cents
	}
	return out
}

func TestReportEmptyHistory(t *testing.T) {
	f := newFixture(t)
	f.wallet(t, "Cash", 5000, false)

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	assert.True(t, rep.Income.IsZero())
	assert.True(t, rep.Expense.IsZero())
	assert.True(t, rep.Earnings.IsZero())
	assert.Empty(t, rep.IncomeSparkline)
	assert.Empty(t, rep.ExpenseSparkline)
	assert.Empty(t, rep.IncomeByCategory)
	assert.Empty(t, rep.ExpenseByCategory)
	assert.Empty(t, rep.CashInflowByCategory)
	assert.Empty(t, rep.CashOutflowByCategory)
	assert.Empty(t, rep.MonthlyTrend)
}

func TestReportWindow(t *testing.T) {
	f := newFixture(t)
	cash := f.wallet(t, "Cash", 0, false)
	salary := f.category(t, core.Income, "Salary")
	food := f.category(t, core.Expense, "Food")
	rent := f.category(t, core.Expense, "Rent")

	f.record(t, cash, salary, 50000, core.NewDate(2023, 11, 15))
	f.record(t, cash, salary, 100000, core.NewDate(2024, 1, 3))
	f.record(t, cash, food, 20000, core.NewDate(2024, 1, 5))
	f.record(t, cash, food, 5000, core.NewDate(2024, 1, 5))
	f.record(t, cash, rent, 30000, core.NewDate(2024, 1, 20))
	_, _, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
		Type: core.Debt, SourceWalletID: cash.ID, Destination: "Bob",
		Amount: core.Cents(2000), Direction: ledger.Outgoing, Date: core.NewDate(2024, 1, 15),
	})
	require.NoError(t, err)

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100000), rep.Income.Cents)
	assert.Equal(t, int64(55000), rep.Expense.Cents)
	assert.Equal(t, int64(45000), rep.Earnings.Cents)

	require.Len(t, rep.IncomeSparkline, 31)
	require.Len(t, rep.ExpenseSparkline, 31)
	assert.Equal(t, int64(0), rep.IncomeSparkline[1].Cents)
	assert.Equal(t, int64(100000), rep.IncomeSparkline[2].Cents)
	assert.Equal(t, int64(100000), rep.IncomeSparkline[30].Cents)
	assert.Equal(t, int64(25000), rep.ExpenseSparkline[4].Cents)
	assert.Equal(t, int64(25000), rep.ExpenseSparkline[18].Cents)
	assert.Equal(t, int64(55000), rep.ExpenseSparkline[19].Cents)

	require.Len(t, rep.ExpenseByCategory, 2)
	assert.Equal(t, "Rent", rep.ExpenseByCategory[0].Name)
	assert.Equal(t, int64(30000), rep.ExpenseByCategory[0].Amount.Cents)
	assert.InDelta(t, 30000.0/55000.0, rep.ExpenseByCategory[0].Percentage, 1e-9)
	assert.Equal(t, "Food", rep.ExpenseByCategory[1].Name)

	require.Len(t, rep.IncomeByCategory, 1)
	assert.Equal(t, 1.0, rep.IncomeByCategory[0].Percentage)

	// Debt legs appear only in the cash flow breakdown.
	require.Len(t, rep.CashOutflowByCategory, 3)
	last := rep.CashOutflowByCategory[2]
	assert.Equal(t, core.PseudoPayLend, last.CategoryID)
	assert.Equal(t, int64(2000), last.Amount.Cents)
	assert.Equal(t, int64(57000), rep.CashOutflowTotal.Cents)
	require.Len(t, rep.CashInflowByCategory, 1)
	assert.Equal(t, int64(100000), rep.CashInflowTotal.Cents)

	// Trend covers July 2023 through January 2024.
	require.Len(t, rep.MonthlyTrend, 7)
	assert.Equal(t, 2023, rep.MonthlyTrend[0].Year)
	assert.Equal(t, 7, rep.MonthlyTrend[0].Month)
	nov := rep.MonthlyTrend[4]
	assert.Equal(t, 11, nov.Month)
	assert.Equal(t, int64(50000), nov.Income.Cents)
	jan := rep.MonthlyTrend[6]
	assert.Equal(t, int64(100000), jan.Income.Cents)
	assert.Equal(t, int64(55000), jan.Expense.Cents)
	assert.Equal(t, int64(45000), jan.Earnings.Cents)
	assert.True(t, rep.MonthlyTrend[1].Income.IsZero())
}

func TestReportDefaultWindow(t *testing.T) {
	f := newFixture(t)
	cash := f.wallet(t, "Cash", 0, false)
	food := f.category(t, core.Expense, "Food")
	f.record(t, cash, food, 100, core.NewDate(2023, 12, 30))
	f.record(t, cash, food, 100, core.NewDate(2024, 1, 10))

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rep.From.String())
	assert.Equal(t, "2024-01-10", rep.To.String())
	assert.Len(t, rep.ExpenseSparkline, 10)
	assert.Equal(t, int64(100), rep.Expense.Cents)
}

func TestReportGapFillWithoutMatches(t *testing.T) {
	f := newFixture(t)
	cash := f.wallet(t, "Cash", 0, false)
	food := f.category(t, core.Expense, "Food")
	f.record(t, cash, food, 100, core.NewDate(2024, 5, 1))

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 2, 29),
	})
	require.NoError(t, err)
	assert.Len(t, rep.IncomeSparkline, 29)
	assert.Len(t, rep.ExpenseSparkline, 29)
	assert.Equal(t, make([]int64, 29), cents(rep.ExpenseSparkline))
}

func TestReportInvertedWindow(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}

func TestReportWindowTooLong(t *testing.T) {
	f := newFixture(t)
	cash := f.wallet(t, "Cash", 0, false)
	food := f.category(t, core.Expense, "Food")
	f.record(t, cash, food, 100, core.NewDate(2024, 1, 10))

	_, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(1000, 1, 1), To: core.NewDate(9999, 12, 31),
	})
	assert.ErrorIs(t, err, core.ErrInvalidWindow)

	// An open upper bound is filled from the latest transaction first.
	_, err = f.svc.ComputeCashflow(f.ctx, f.user.ID, ledger.ReportQuery{From: core.NewDate(1990, 1, 1)})
	assert.ErrorIs(t, err, core.ErrInvalidWindow)

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(2014, 1, 10), To: core.NewDate(2024, 1, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), rep.Expense.Cents)
}

func TestReportTrendCutoffFollowsWindowDay(t *testing.T) {
	f := newFixture(t)
	cash := f.wallet(t, "Cash", 0, false)
	salary := f.category(t, core.Income, "Salary")
	f.record(t, cash, salary, 700, core.NewDate(2023, 7, 10))
	f.record(t, cash, salary, 300, core.NewDate(2023, 7, 20))
	f.record(t, cash, salary, 100, core.NewDate(2024, 1, 20))

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, ledger.ReportQuery{
		From: core.NewDate(2024, 1, 15), To: core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)

	// July 2023 is listed, but only rows from the 15th on count.
	require.Len(t, rep.MonthlyTrend, 7)
	july := rep.MonthlyTrend[0]
	assert.Equal(t, 2023, july.Year)
	assert.Equal(t, 7, july.Month)
	assert.Equal(t, int64(300), july.Income.Cents)
	assert.Equal(t, int64(100), rep.MonthlyTrend[6].Income.Cents)
}

func TestReportWalletFilterFoldsTransfers(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "A", 10000, false)
	b := f.wallet(t, "B", 0, false)
	salary := f.category(t, core.Income, "Salary")
	f.record(t, a, salary, 1000, core.NewDate(2024, 2, 1))
	_, _, err := f.svc.CreateTransferOrDebt(f.ctx, f.user.ID, ledger.PairInput{
		Type: core.Transfer, SourceWalletID: a.ID, Destination: "B",
		Amount: core.Cents(4000), Direction: ledger.Outgoing, Date: core.NewDate(2024, 2, 2),
	})
	require.NoError(t, err)
	q := ledger.ReportQuery{From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 2, 29)}

	rep, err := f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, q)
	require.NoError(t, err)
	assert.Empty(t, rep.CashOutflowByCategory)
	require.Len(t, rep.CashInflowByCategory, 1)

	q.WalletID = &a.ID
	rep, err = f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, q)
	require.NoError(t, err)
	require.Len(t, rep.CashOutflowByCategory, 1)
	assert.Equal(t, core.PseudoTransferOut, rep.CashOutflowByCategory[0].CategoryID)
	assert.Equal(t, "transfer out", rep.CashOutflowByCategory[0].Name)
	assert.Equal(t, int64(4000), rep.CashOutflowByCategory[0].Amount.Cents)

	q.WalletID = &b.ID
	rep, err = f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, q)
	require.NoError(t, err)
	assert.True(t, rep.Income.IsZero())
	require.Len(t, rep.CashInflowByCategory, 1)
	assert.Equal(t, core.PseudoTransferIn, rep.CashInflowByCategory[0].CategoryID)

	other := int64(9999)
	q.WalletID = &other
	_, err = f.svc.ComputeIncomeExpenseReport(f.ctx, f.user.ID, q)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
