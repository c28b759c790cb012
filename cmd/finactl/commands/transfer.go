package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fina/internal/core"
	"fina/internal/ledger"
)

type pairOutput struct {
	PairID string             `json:"pair_id"`
	Legs   []core.Transaction `json:"legs"`
}

func newTransferCmd(o *options) *cobra.Command {
	var (
		typ, amount, direction, date string
		in                           ledger.PairInput
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Record a transfer between wallets or a debt with a counterparty",
		Long: `Record a transfer between wallets or a debt with a counterparty.

Both legs are written together and share a pair id.

Examples:
  finactl transfer -u 1 --from 2 --to Savings --amount 200
  finactl transfer -u 1 --type debt --from 1 --to Alice --amount 25 --direction out`,
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			if in.Type, err = core.ParseTransactionType(typ); err != nil {
				return err
			}
			if in.Amount, err = core.ParseAmount(amount); err != nil {
				return err
			}
			if in.Direction, err = ledger.ParseDirection(direction); err != nil {
				return err
			}
			if in.Date, err = core.ParseDate(date); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, b, err := s.svc.CreateTransferOrDebt(ctx, userID, in)
			if err != nil {
				return err
			}
			cur, err := s.currency(ctx, userID)
			if err != nil {
				return err
			}
			out := pairOutput{PairID: a.PairID, Legs: []core.Transaction{a, b}}
			return o.print(cmd.OutOrStdout(), out, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Pair %s\n", out.PairID)
				fmt.Fprintln(tw, "ID\tWALLET\tTYPE\tAMOUNT")
				for _, leg := range out.Legs {
					fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", leg.ID, leg.WalletID, leg.Type, core.FormatMoney(leg.Amount, cur))
				}
			})
		}),
	}
	cmd.Flags().StringVar(&typ, "type", strings.ToLower(core.Transfer.String()), "transfer or debt")
	cmd.Flags().Int64Var(&in.SourceWalletID, "from", 0, "Source wallet id")
	cmd.Flags().StringVar(&in.Destination, "to", "", "Destination wallet id or name, or debt counterparty")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 42.50")
	cmd.Flags().StringVar(&direction, "direction", "out", "out or in")
	cmd.Flags().StringVar(&date, "date", time.Now().Format(core.DateLayout), "Date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
