// Package memory is an in-process LedgerExporter for tests and for running
// the worker without Google credentials.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fina/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows []sheets.ExportRow
}

var _ sheets.LedgerExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (e *Exporter) AppendTransaction(_ context.Context, row sheets.ExportRow) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(row.TransactionID); i >= 0 {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// UpdateTransaction replaces the stored row, keeping its position.
func (e *Exporter) UpdateTransaction(_ context.Context, row sheets.ExportRow) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(row.TransactionID); i >= 0 {
		e.rows[i] = row
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

func (e *Exporter) RemoveTransaction(_ context.Context, transactionID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(transactionID); i >= 0 {
		e.rows = slices.Delete(e.rows, i, i+1)
	}
	return nil
}

// Rows returns a copy of the exported rows in append order.
func (e *Exporter) Rows() []sheets.ExportRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rows)
}

func (e *Exporter) index(id int64) int {
	return slices.IndexFunc(e.rows, func(r sheets.ExportRow) bool { return r.TransactionID == id })
}
