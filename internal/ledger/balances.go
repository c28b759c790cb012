package ledger

import (
	"sort"

	"fina/internal/core"
)

// SumByWallet totals transaction amounts per wallet id.
func SumByWallet(txs []core.Transaction) map[int64]core.Money {
	sums := make(map[int64]core.Money)
	for _, tx := range txs {
		sums[tx.WalletID] = sums[tx.WalletID].Add(tx.Amount)
	}
	return sums
}

// AggregateBalances derives the balance scorecard from the user's wallets
// and the per-wallet transaction sums. A wallet missing from sums has no
// transactions and its balance is its initial balance.
func AggregateBalances(wallets []core.Wallet, sums map[int64]core.Money) core.Balances {
	b := core.Balances{
		AssetBalances:      []core.WalletBalance{},
		DebtBalances:       []core.WalletBalance{},
		AssetsDistribution: make(map[int64]float64),
	}

	var positive int64
	for _, w := range wallets {
		current := w.InitialBalance.Add(sums[w.ID])
		if w.Liability {
			switch {
			case current.IsPositive():
				b.Receivables = b.Receivables.Add(current)
			case current.IsNegative():
				b.Payables = b.Payables.Add(current.Abs())
			default:
				continue // settled
			}
			b.DebtBalances = append(b.DebtBalances, core.WalletBalance{Wallet: w, CurrentBalance: current})
			continue
		}
		b.AvailableAssets = b.AvailableAssets.Add(current)
		if current.IsPositive() {
			positive += current.Cents
		}
		b.AssetBalances = append(b.AssetBalances, core.WalletBalance{Wallet: w, CurrentBalance: current})
	}

	for i := range b.AssetBalances {
		wb := &b.AssetBalances[i]
		share := 0.0
		if positive > 0 && wb.CurrentBalance.IsPositive() {
			share = float64(wb.CurrentBalance.Cents) / float64(positive)
		}
		wb.Distribution = share
		b.AssetsDistribution[wb.Wallet.ID] = share
	}

	sort.SliceStable(b.AssetBalances, func(i, j int) bool {
		return b.AssetBalances[i].CurrentBalance.Cents > b.AssetBalances[j].CurrentBalance.Cents
	})
	return b
}

// BuildCashflow produces the daily cumulative balance of the selected
// wallets over [from, to]. Without a wallet filter every asset wallet is
// included. history is the user's full transaction list.
func BuildCashflow(wallets []core.Wallet, history []core.Transaction, from, to core.Date, walletID *int64) core.CashflowSeries {
	series := core.CashflowSeries{From: from, To: to, WalletID: walletID, Points: []core.CashflowPoint{}}

	selected := make(map[int64]bool)
	for _, w := range wallets {
		if walletID != nil {
			if w.ID != *walletID {
				continue
			}
		} else if w.Liability {
			continue
		}
		selected[w.ID] = true
		series.OpeningBalance = series.OpeningBalance.Add(w.InitialBalance)
	}

	days := from.DaysThrough(to)
	if from.IsZero() || days == 0 {
		return series
	}
	net := make([]int64, days)
	for _, tx := range history {
		if !selected[tx.WalletID] {
			continue
		}
		switch {
		case tx.Date.Before(from):
			series.OpeningBalance = series.OpeningBalance.Add(tx.Amount)
		case !tx.Date.After(to):
			net[from.DaysThrough(tx.Date)-1] += tx.Amount.Cents
		}
	}

	running := series.OpeningBalance
	series.Points = make([]core.CashflowPoint, days)
	for i := range net {
		running = running.Add(core.Cents(net[i]))
		series.Points[i] = core.CashflowPoint{Date: from.AddDays(i), Net: core.Cents(net[i]), Balance: running}
	}
	return series
}
