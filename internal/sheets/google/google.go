// Package google exports ledger rows to a Google Sheet through the Sheets v4
// API with service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fina/internal/cache"
	"fina/internal/log"
	ports "fina/internal/sheets"
)

const (
	DefaultSheetName = "Transactions"
	rowCacheSize     = 10000
	rowCacheTTL      = 10 * time.Minute
)

// Config selects the spreadsheet and the service account used to reach it.
// ServiceAccountJSON wins over ServiceAccountFile.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// valuesAPI is the slice of the Sheets values resource the exporter needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, values [][]any) error
	Clear(ctx context.Context, rng string) error
}

type Client struct {
	values    valuesAPI
	sheetName string
	logger    *log.Logger

	// mu serializes writers so two appends never pick the same row.
	mu   sync.Mutex
	rows *cache.LRUCache[int64, int]
}

var _ ports.LedgerExporter = (*Client)(nil)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&sheetsValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetName, logger), nil
}

func newClient(values valuesAPI, sheetName string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{
		values:    values,
		sheetName: sheetName,
		logger:    logger.WithComponent(log.ComponentSheets),
		rows:      cache.NewLRUCache[int64, int](rowCacheSize, rowCacheTTL),
	}
}

// RowCache exposes the id to row index so a cache.Manager can expire it.
func (c *Client) RowCache() *cache.LRUCache[int64, int] {
	return c.rows
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction writes row below the last used row. A transaction that
// is already on the sheet keeps its row.
func (c *Client) AppendTransaction(ctx context.Context, row ports.ExportRow) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	column, err := c.values.Get(ctx, c.sheetName+"!A:A")
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}

	if existing := findRow(column, row.TransactionID); existing > 0 {
		c.rows.Set(row.TransactionID, existing)
		return rowRange(c.sheetName, existing), nil
	}
	return c.appendRow(ctx, column, row)
}

// UpdateTransaction rewrites the row holding the transaction. A transaction
// that is not on the sheet yet is appended.
func (c *Client) UpdateTransaction(ctx context.Context, row ports.ExportRow) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	column, err := c.values.Get(ctx, c.sheetName+"!A:A")
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}

	n := c.locate(column, row.TransactionID)
	if n == 0 {
		return c.appendRow(ctx, column, row)
	}
	ref := rowRange(c.sheetName, n)
	if err := c.values.Update(ctx, ref, [][]any{formatRow(row)}); err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}
	c.rows.Set(row.TransactionID, n)

	c.logger.DebugContext(ctx, "Rewrote exported transaction",
		log.FieldTransactionID, row.TransactionID,
		log.FieldSheetsRef, ref)
	return ref, nil
}

// appendRow writes row below the last used row of column. Callers hold mu.
func (c *Client) appendRow(ctx context.Context, column [][]any, row ports.ExportRow) (string, error) {
	if len(column) == 0 {
		if err := c.values.Update(ctx, rowRange(c.sheetName, 1), [][]any{header}); err != nil {
			return "", fmt.Errorf("write header in sheet %s: %w", c.sheetName, err)
		}
		column = [][]any{{header[0]}}
	}

	n := nextRow(column)
	ref := rowRange(c.sheetName, n)
	if err := c.values.Update(ctx, ref, [][]any{formatRow(row)}); err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}
	c.rows.Set(row.TransactionID, n)

	c.logger.DebugContext(ctx, "Exported transaction",
		log.FieldTransactionID, row.TransactionID,
		log.FieldSheetsRef, ref)
	return ref, nil
}

// RemoveTransaction clears the row holding transactionID. A missing row is
// not an error.
func (c *Client) RemoveTransaction(ctx context.Context, transactionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	column, err := c.values.Get(ctx, c.sheetName+"!A:A")
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}

	n := c.locate(column, transactionID)
	if n == 0 {
		c.rows.Delete(transactionID)
		c.logger.DebugContext(ctx, "Transaction not on sheet", log.FieldTransactionID, transactionID)
		return nil
	}

	ref := rowRange(c.sheetName, n)
	if err := c.values.Clear(ctx, ref); err != nil {
		return fmt.Errorf("clear %s: %w", ref, err)
	}
	c.rows.Delete(transactionID)
	return nil
}

// locate returns the row holding id, or 0. The cached index is only trusted
// when the sheet still agrees with it.
func (c *Client) locate(column [][]any, id int64) int {
	n, ok := c.rows.Get(id)
	if !ok || n > len(column) || findRow(column[n-1:n], id) != 1 {
		n = findRow(column, id)
	}
	return n
}

type sheetsValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *sheetsValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *sheetsValues) Update(ctx context.Context, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (s *sheetsValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
