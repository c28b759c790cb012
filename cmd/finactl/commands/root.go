// Package commands implements finactl, the admin CLI over the SQLite ledger.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fina/internal/backend"
	"fina/internal/config"
	"fina/internal/ledger"
	"fina/internal/log"
)

var errUserRequired = errors.New("--user flag is required")

// options are the global flags shared by every subcommand.
type options struct {
	dbPath     string
	userID     int64
	jsonOutput bool
	verbose    bool
}

// session is an opened ledger for the duration of one command.
type session struct {
	cfg    *config.Config
	svc    *ledger.Service
	res    *backend.Result
	logger *log.Logger
}

func (s *session) Close() error {
	return s.res.Cleanup()
}

// open builds a ledger service over the SQLite database at --db. Events are
// published when AMQP_URL is set, like the API server does.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg := config.Load()
	cfg.DataBackend = config.BackendSQLite
	cfg.SQLiteDBPath = o.dbPath

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	} else if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = log.ParseLevel(env)
	}
	logger := log.New(log.Config{Level: level, Component: log.ComponentCLI, Output: cmd.ErrOrStderr()})

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithBcryptCost(cfg.BcryptCost),
		ledger.WithDefaultCurrency(cfg.DefaultCurrency),
	}
	if res.Publisher != nil {
		opts = append(opts, ledger.WithPublisher(res.Publisher))
	}
	return &session{cfg: cfg, svc: ledger.NewService(res.Store, opts...), res: res, logger: logger}, nil
}

func (o *options) requireUser() (int64, error) {
	if o.userID <= 0 {
		return 0, errUserRequired
	}
	return o.userID, nil
}

// withSession opens the ledger, runs fn and closes it again.
func (o *options) withSession(fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := o.open(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

// print writes v as indented JSON when --json is set, otherwise calls table.
func (o *options) print(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// NewRootCmd assembles the finactl command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "finactl",
		Short: "Administer a fina ledger database",
		Long: `finactl manages the SQLite database behind the fina API.

It runs schema migrations, manages users, inspects wallets and reports,
records transfers and debts, and backfills the Google Sheets export.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&o.dbPath, "db", config.Load().SQLiteDBPath, "SQLite database path")
	root.PersistentFlags().Int64VarP(&o.userID, "user", "u", 0, "User id for user-scoped commands")
	root.PersistentFlags().BoolVar(&o.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newMigrateCmd(o),
		newUserCmd(o),
		newWalletCmd(o),
		newCategoryCmd(o),
		newBalancesCmd(o),
		newReportCmd(o),
		newTransferCmd(o),
		newExportCmd(o),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
