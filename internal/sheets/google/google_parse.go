package google

import (
	"fmt"
	"strconv"
	"strings"

	"fina/internal/core"
	"fina/internal/sheets"
)

// Column layout of the export sheet, A through I.
var header = []any{"ID", "Date", "Type", "Wallet", "Category", "Description", "Amount", "Display", "Pair"}

const lastColumn = "I"

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// findRow returns the 1-based sheet row whose column A holds id, or 0.
// values is the A:A column as returned by the Sheets API.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// nextRow returns the first row after the last non-empty cell in column A.
// Cleared rows in the middle are left as gaps.
func nextRow(values [][]any) int {
	last := 0
	for i, row := range values {
		if cols := toStrings(row); len(cols) > 0 && cols[0] != "" {
			last = i + 1
		}
	}
	return last + 1
}

func formatRow(r sheets.ExportRow) []any {
	category := r.Category
	if category == "" && r.Type.RequiresCategory() {
		category = "(uncategorized)"
	}
	return []any{
		strconv.FormatInt(r.TransactionID, 10),
		r.Date.String(),
		r.Type.String(),
		r.Wallet,
		category,
		r.Description,
		r.Amount.String(),
		core.FormatMoney(r.Amount, r.Currency),
		r.PairID,
	}
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}
