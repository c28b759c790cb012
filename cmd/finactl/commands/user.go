package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fina/internal/ledger"
)

func newUserCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var in ledger.RegisterInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user with the default wallets and categories",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			u, err := s.svc.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), u, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Created user %d (%s)\n", u.ID, u.Username)
			})
		}),
	}
	create.Flags().StringVar(&in.Username, "username", "", "Login name")
	create.Flags().StringVar(&in.FullName, "full-name", "", "Display name")
	create.Flags().StringVar(&in.Email, "email", "", "Email address")
	create.Flags().StringVar(&in.Password, "password", "", "Password, at least 8 characters")
	create.Flags().StringVar(&in.Currency, "currency", "", "Currency code (defaults to DEFAULT_CURRENCY)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			users, err := s.svc.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), users, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tCURRENCY\tACTIVE")
				for _, u := range users {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Email, u.Currency, u.Active)
				}
			})
		}),
	}

	var password string
	passwd := &cobra.Command{
		Use:   "passwd ID",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: o.withSession(func(cmd *cobra.Command, args []string, s *session) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.svc.ResetPassword(cmd.Context(), id, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for user %d\n", id)
			return nil
		}),
	}
	passwd.Flags().StringVar(&password, "password", "", "New password")
	_ = passwd.MarkFlagRequired("password")

	deactivate := &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a user",
		Args:  cobra.ExactArgs(1),
		RunE: o.withSession(func(cmd *cobra.Command, args []string, s *session) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := s.svc.Deactivate(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s) deactivated\n", u.ID, u.Username)
			return nil
		}),
	}

	var confirm bool
	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user and everything they own",
		Args:  cobra.ExactArgs(1),
		RunE: o.withSession(func(cmd *cobra.Command, args []string, s *session) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !confirm {
				return fmt.Errorf("refusing to delete user %d without --yes", id)
			}
			if err := s.svc.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d deleted\n", id)
			return nil
		}),
	}
	remove.Flags().BoolVar(&confirm, "yes", false, "Confirm deletion")

	cmd.AddCommand(create, list, passwd, deactivate, remove)
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
