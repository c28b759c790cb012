package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fina/internal/core"
	"fina/internal/ledger"
)

// currency returns the display currency of the user.
func (s *session) currency(ctx context.Context, userID int64) (string, error) {
	u, err := s.svc.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Currency == "" {
		return s.cfg.DefaultCurrency, nil
	}
	return u.Currency, nil
}

func parseKind(s string) (core.WalletKind, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return core.AllWallets, nil
	case "asset":
		return core.AssetWallets, nil
	case "debt":
		return core.DebtWallets, nil
	}
	return 0, fmt.Errorf("invalid wallet kind %q: want all, asset or debt", s)
}

func newWalletCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage wallets",
	}

	var kind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's wallets",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			wallets, err := s.svc.ListWallets(ctx, userID, k)
			if err != nil {
				return err
			}
			cur, err := s.currency(ctx, userID)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), wallets, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNAME\tKIND\tINITIAL BALANCE")
				for _, w := range wallets {
					k := "asset"
					if w.Liability {
						k = "debt"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", w.ID, w.Name, k, core.FormatMoney(w.InitialBalance, cur))
				}
			})
		}),
	}
	list.Flags().StringVar(&kind, "kind", "all", "Wallet kind: all, asset or debt")

	var (
		in      ledger.WalletInput
		initial string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an asset or debt wallet",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			if initial != "" {
				if in.InitialBalance, err = core.ParseAmount(initial); err != nil {
					return err
				}
			}
			w, err := s.svc.CreateWallet(cmd.Context(), userID, in)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), w, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Created wallet %d (%s)\n", w.ID, w.Name)
			})
		}),
	}
	create.Flags().StringVar(&in.Name, "name", "", "Wallet name")
	create.Flags().StringVar(&in.Description, "description", "", "Wallet description")
	create.Flags().BoolVar(&in.Liability, "debt", false, "Create a debt wallet")
	create.Flags().StringVar(&initial, "balance", "", "Initial balance, e.g. 120.50")
	_ = create.MarkFlagRequired("name")

	var cascade bool
	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: o.withSession(func(cmd *cobra.Command, args []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			removed, err := s.svc.DeleteWallet(cmd.Context(), userID, id, cascade)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet %d deleted with %d transactions\n", id, len(removed))
			return nil
		}),
	}
	remove.Flags().BoolVar(&cascade, "cascade", false, "Also delete the wallet's transactions")

	cmd.AddCommand(list, create, remove)
	return cmd
}

func newCategoryCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Inspect categories",
	}

	var typ string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's categories",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			userID, err := o.requireUser()
			if err != nil {
				return err
			}
			var t core.TransactionType
			if typ != "" {
				if t, err = core.ParseTransactionType(typ); err != nil {
					return err
				}
			}
			cats, err := s.svc.ListCategories(cmd.Context(), userID, t)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), cats, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tTYPE\tNAME")
				for _, c := range cats {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Type, c.Name)
				}
			})
		}),
	}
	list.Flags().StringVar(&typ, "type", "", "Only categories of this transaction type")

	cmd.AddCommand(list)
	return cmd
}
