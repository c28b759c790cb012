package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	gsheet "fina/internal/sheets/google"
	"fina/internal/worker"
)

func newExportCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Google Sheets export",
	}

	backfill := &cobra.Command{
		Use:   "backfill",
		Short: "Append every stored transaction that is missing from the sheet",
		RunE: o.withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			if !s.cfg.SheetsEnabled() {
				return errors.New("GOOGLE_SPREADSHEET_ID and service account credentials are required")
			}
			ctx := cmd.Context()
			client, err := gsheet.New(ctx, gsheet.Config{
				SpreadsheetID:      s.cfg.GoogleSpreadsheetID,
				SheetName:          s.cfg.GoogleSheetName,
				ServiceAccountJSON: s.cfg.GoogleServiceAccountJSON,
				ServiceAccountFile: s.cfg.GoogleServiceAccountFile,
			}, s.logger)
			if err != nil {
				return fmt.Errorf("connect to Google Sheets: %w", err)
			}

			n, err := worker.NewExportWorker(s.res.Store, client, s.cfg.ExportBatchSize, s.logger).Backfill(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions\n", n)
			return err
		}),
	}

	cmd.AddCommand(backfill)
	return cmd
}
