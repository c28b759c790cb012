package ledger

import (
	"fmt"
	"sort"

	"fina/internal/core"
)

// trendMonths is how far the monthly trend reaches back before the window start.
const trendMonths = 6

// maxWindowYears bounds the span of a report or cash flow window.
const maxWindowYears = 10

// ReportQuery selects the window and wallet of a report. Zero dates fall
// back to the month of the most recent transaction.
type ReportQuery struct {
	From     core.Date
	To       core.Date
	WalletID *int64
}

// Validate rejects an inverted window and one longer than maxWindowYears.
func (q ReportQuery) Validate() error {
	if q.From.IsZero() || q.To.IsZero() {
		return nil
	}
	return checkWindow(q.From, q.To)
}

func checkWindow(from, to core.Date) error {
	if from.After(to) {
		return fmt.Errorf("%w: from date is after to date", core.ErrInvalidWindow)
	}
	if to.After(from.AddMonths(12 * maxWindowYears)) {
		return fmt.Errorf("%w: longer than %d years", core.ErrInvalidWindow, maxWindowYears)
	}
	return nil
}

// window fills missing bounds from the latest transaction date: from
// defaults to the first of that month, to defaults to the date itself.
func (q ReportQuery) window(latest core.Date) (core.Date, core.Date, error) {
	from, to := q.From, q.To
	if to.IsZero() {
		to = latest
		if !from.IsZero() && to.Before(from) {
			to = from
		}
	}
	if from.IsZero() {
		from = to.MonthStart()
	}
	if err := checkWindow(from, to); err != nil {
		return core.Date{}, core.Date{}, err
	}
	return from, to, nil
}

func latestDate(txs []core.Transaction) core.Date {
	var latest core.Date
	for _, tx := range txs {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	return latest
}

func filterWallet(txs []core.Transaction, walletID *int64) []core.Transaction {
	if walletID == nil {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.WalletID == *walletID {
			out = append(out, tx)
		}
	}
	return out
}

func emptyReport(q ReportQuery) core.Report {
	return core.Report{
		From:                  q.From,
		To:                    q.To,
		WalletID:              q.WalletID,
		IncomeSparkline:       []core.Money{},
		ExpenseSparkline:      []core.Money{},
		IncomeByCategory:      []core.CategoryAmount{},
		ExpenseByCategory:     []core.CategoryAmount{},
		MonthlyTrend:          []core.MonthTrend{},
		CashInflowByCategory:  []core.CategoryAmount{},
		CashOutflowByCategory: []core.CategoryAmount{},
	}
}

// BuildReport computes the income and expense dashboard. Only legs on asset
// wallets count as cash flow. Expense figures are magnitudes, so earnings
// is income minus expense.
func BuildReport(wallets []core.Wallet, categories []core.Category, history []core.Transaction, q ReportQuery) (core.Report, error) {
	if err := q.Validate(); err != nil {
		return core.Report{}, err
	}
	history = filterWallet(history, q.WalletID)
	if len(history) == 0 {
		return emptyReport(q), nil
	}

	from, to, err := q.window(latestDate(history))
	if err != nil {
		return core.Report{}, err
	}
	rep := emptyReport(q)
	rep.From, rep.To = from, to

	assets := make(map[int64]bool, len(wallets))
	for _, w := range wallets {
		if !w.Liability {
			assets[w.ID] = true
		}
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	days := from.DaysThrough(to)
	dailyIncome := make([]int64, days)
	dailyExpense := make([]int64, days)
	income := newBreakdown()
	expense := newBreakdown()
	inflow := newBreakdown()
	outflow := newBreakdown()

	trendCutoff := from.AddMonths(-trendMonths)
	trendStart := trendCutoff.MonthStart()
	months := monthIndex(to) - monthIndex(trendStart) + 1
	trend := make([]core.MonthTrend, months)
	for i := range trend {
		m := trendStart.AddMonths(i)
		trend[i] = core.MonthTrend{Year: m.Year(), Month: int(m.Month())}
	}

	for _, tx := range history {
		if !assets[tx.WalletID] {
			continue
		}
		if tx.Date.InRange(trendCutoff, to) && tx.Type.RequiresCategory() {
			mt := &trend[monthIndex(tx.Date)-monthIndex(trendStart)]
			if tx.Type == core.Income {
				mt.Income = mt.Income.Add(tx.Amount)
			} else {
				mt.Expense = mt.Expense.Add(tx.Amount.Abs())
			}
		}
		if !tx.Date.InRange(from, to) {
			continue
		}
		day := from.DaysThrough(tx.Date) - 1
		magnitude := tx.Amount.Abs()

		switch tx.Type {
		case core.Income:
			rep.Income = rep.Income.Add(tx.Amount)
			dailyIncome[day] += tx.Amount.Cents
			id := categoryKey(tx)
			income.add(id, names[id], tx.Amount)
			inflow.add(id, names[id], tx.Amount)
		case core.Expense:
			rep.Expense = rep.Expense.Add(magnitude)
			dailyExpense[day] += magnitude.Cents
			id := categoryKey(tx)
			expense.add(id, names[id], magnitude)
			outflow.add(id, names[id], magnitude)
		case core.Debt:
			if tx.Amount.IsPositive() {
				inflow.addPseudo(core.PseudoBorrowCollect, magnitude)
			} else {
				outflow.addPseudo(core.PseudoPayLend, magnitude)
			}
		case core.Transfer:
			// Transfers between asset wallets cancel out unless one wallet is in focus.
			if q.WalletID == nil {
				continue
			}
			if tx.Amount.IsPositive() {
				inflow.addPseudo(core.PseudoTransferIn, magnitude)
			} else {
				outflow.addPseudo(core.PseudoTransferOut, magnitude)
			}
		}
	}

	rep.Earnings = rep.Income.Sub(rep.Expense)
	rep.IncomeSparkline = cumulative(dailyIncome)
	rep.ExpenseSparkline = cumulative(dailyExpense)
	rep.IncomeByCategory = income.sorted()
	rep.ExpenseByCategory = expense.sorted()
	rep.CashInflowByCategory = inflow.sorted()
	rep.CashOutflowByCategory = outflow.sorted()
	rep.CashInflowTotal = inflow.total
	rep.CashOutflowTotal = outflow.total

	for i := range trend {
		trend[i].Earnings = trend[i].Income.Sub(trend[i].Expense)
	}
	rep.MonthlyTrend = trend
	return rep, nil
}

func monthIndex(d core.Date) int {
	return d.Year()*12 + int(d.Month()) - 1
}

func categoryKey(tx core.Transaction) int64 {
	if tx.CategoryID == nil {
		return 0
	}
	return *tx.CategoryID
}

func cumulative(daily []int64) []core.Money {
	out := make([]core.Money, len(daily))
	var sum int64
	for i, v := range daily {
		sum += v
		out[i] = core.Cents(sum)
	}
	return out
}

// breakdown groups magnitudes by category id, keeping first-seen order for ties.
type breakdown struct {
	order  []int64
	groups map[int64]*core.CategoryAmount
	total  core.Money
}

func newBreakdown() *breakdown {
	return &breakdown{groups: make(map[int64]*core.CategoryAmount)}
}

func (b *breakdown) add(id int64, name string, amount core.Money) {
	g, ok := b.groups[id]
	if !ok {
		g = &core.CategoryAmount{CategoryID: id, Name: name}
		b.groups[id] = g
		b.order = append(b.order, id)
	}
	g.Amount = g.Amount.Add(amount)
	b.total = b.total.Add(amount)
}

func (b *breakdown) addPseudo(id int64, amount core.Money) {
	name, _ := core.PseudoCategoryName(id)
	b.add(id, name, amount)
}

// sorted returns the groups by amount descending with their share of the total.
func (b *breakdown) sorted() []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(b.order))
	for _, id := range b.order {
		g := *b.groups[id]
		if b.total.Cents != 0 {
			g.Percentage = float64(g.Amount.Cents) / float64(b.total.Cents)
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}
