package core

// Pseudo-category ids used to bucket uncategorized legs in reports.
// Real category ids are always positive.
const (
	PseudoTransferIn    int64 = -1
	PseudoTransferOut   int64 = -2
	PseudoBorrowCollect int64 = -3
	PseudoPayLend       int64 = -4
)

var pseudoCategoryNames = map[int64]string{
	PseudoTransferIn:    "transfer in",
	PseudoTransferOut:   "transfer out",
	PseudoBorrowCollect: "borrow/collect",
	PseudoPayLend:       "pay/lend",
}

// PseudoCategoryName returns the display name of a synthetic category id.
func PseudoCategoryName(id int64) (string, bool) {
	name, ok := pseudoCategoryNames[id]
	return name, ok
}

// CategoryAmount is an amount aggregated by category. Amounts are magnitudes.
type CategoryAmount struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// WalletBalance is a wallet with its derived balance.
type WalletBalance struct {
	Wallet         Wallet  `json:"wallet"`
	CurrentBalance Money   `json:"current_balance"`
	Distribution   float64 `json:"assets_distribution"`
}

// Balances is the assets dashboard scorecard.
type Balances struct {
	AssetBalances      []WalletBalance   `json:"asset_balances"`
	DebtBalances       []WalletBalance   `json:"debt_balances"`
	AvailableAssets    Money             `json:"available_assets"`
	Receivables        Money             `json:"receivables"`
	Payables           Money             `json:"payables"`
	AssetsDistribution map[int64]float64 `json:"assets_distribution"`
}

// MonthTrend is one point of the monthly income/expense trend.
type MonthTrend struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"` // 1-12
	Income   Money `json:"income"`
	Expense  Money `json:"expense"`
	Earnings Money `json:"earnings"`
}

// Report is the income/expense dashboard for a period.
type Report struct {
	From                  Date             `json:"from"`
	To                    Date             `json:"to"`
	WalletID              *int64           `json:"wallet_id,omitempty"`
	Income                Money            `json:"income"`
	Expense               Money            `json:"expense"`
	Earnings              Money            `json:"earnings"`
	IncomeSparkline       []Money          `json:"income_sparkline"`
	ExpenseSparkline      []Money          `json:"expense_sparkline"`
	IncomeByCategory      []CategoryAmount `json:"income_by_category"`
	ExpenseByCategory     []CategoryAmount `json:"expense_by_category"`
	MonthlyTrend          []MonthTrend     `json:"monthly_trend"`
	CashInflowByCategory  []CategoryAmount `json:"cash_inflow_by_category"`
	CashOutflowByCategory []CategoryAmount `json:"cash_outflow_by_category"`
	CashInflowTotal       Money            `json:"cash_inflow_total"`
	CashOutflowTotal      Money            `json:"cash_outflow_total"`
}

// CashflowPoint is the cumulative asset balance at the end of a day.
type CashflowPoint struct {
	Date    Date  `json:"date"`
	Net     Money `json:"net"`
	Balance Money `json:"balance"`
}

type CashflowSeries struct {
	From           Date            `json:"from"`
	To             Date            `json:"to"`
	WalletID       *int64          `json:"wallet_id,omitempty"`
	OpeningBalance Money           `json:"opening_balance"`
	Points         []CashflowPoint `json:"points"`
}
