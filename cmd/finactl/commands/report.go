package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fina/internal/core"
	"fina/internal/ledger"
)

func newBalancesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show current wallet balances",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := s.svc.ComputeBalances(ctx, userID)
			if err != nil {
				return err
			}
			cur, err := s.currency(ctx, userID)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), b, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "WALLET\tBALANCE\tSHARE")
				for _, wb := range b.AssetBalances {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", wb.Wallet.Name, core.FormatMoney(wb.CurrentBalance, cur), core.FormatPercentage(wb.Distribution))
				}
				for _, wb := range b.DebtBalances {
					fmt.Fprintf(tw, "%s (debt)\t%s\t\n", wb.Wallet.Name, core.FormatMoney(wb.CurrentBalance, cur))
				}
				fmt.Fprintf(tw, "\nAvailable\t%s\t\n", core.FormatMoney(b.AvailableAssets, cur))
				fmt.Fprintf(tw, "Receivables\t%s\t\n", core.FormatMoney(b.Receivables, cur))
				fmt.Fprintf(tw, "Payables\t%s\t\n", core.FormatMoney(b.Payables, cur))
			})
		}),
	}
}

func newReportCmd(o *options) *cobra.Command {
	var from, to string
	var walletID int64
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show income and expense totals for a period",
		Long: `Show income and expense totals for a period.

Without --from and --to the report covers the month of the most recent
transaction.

Examples:
  finactl report -u 1 --from 2024-01-01 --to 2024-01-31
  finactl report -u 1 --wallet 2`,
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			var q ledger.ReportQuery
			if from != "" {
				if q.From, err = core.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if q.To, err = core.ParseDate(to); err != nil {
					return err
				}
			}
			if walletID > 0 {
				q.WalletID = &walletID
			}

			ctx := cmd.Context()
			rep, err := s.svc.ComputeIncomeExpenseReport(ctx, userID, q)
			if err != nil {
				return err
			}
			cur, err := s.currency(ctx, userID)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), rep, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Period\t%s .. %s\t\n", rep.From, rep.To)
				fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatMoney(rep.Income, cur))
				fmt.Fprintf(tw, "Expense\t%s\t\n", core.FormatMoney(rep.Expense, cur))
				fmt.Fprintf(tw, "Earnings\t%s\t\n", core.FormatMoney(rep.Earnings, cur))
				if len(rep.ExpenseByCategory) > 0 {
					fmt.Fprintln(tw, "\nEXPENSE CATEGORY\tAMOUNT\tSHARE")
					for _, c := range rep.ExpenseByCategory {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, core.FormatMoney(c.Amount, cur), core.FormatPercentage(c.Percentage))
					}
				}
				if len(rep.IncomeByCategory) > 0 {
					fmt.Fprintln(tw, "\nINCOME CATEGORY\tAMOUNT\tSHARE")
					for _, c := range rep.IncomeByCategory {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, core.FormatMoney(c.Amount, cur), core.FormatPercentage(c.Percentage))
					}
				}
			})
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD")
	cmd.Flags().Int64Var(&walletID, "wallet", 0, "Only this wallet")
	return cmd
}
