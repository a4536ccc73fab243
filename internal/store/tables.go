package store

import "context"

// TableAPI is the minimal tabular surface the repository needs. The sheets
// client implements it with caching and retries; tests use an in-memory fake.
//
// Row/column indexes are 1-based, matching spreadsheet addressing.
// Per-call atomicity is all that is assumed; there are no transactions.
type TableAPI interface {
	// ReadAll returns the worksheet as rows of cells, header row included.
	// The returned slices are shared snapshots: callers must not mutate them.
	ReadAll(ctx context.Context, ws string) ([][]string, error)

	// UpdateCell writes a single cell.
	UpdateCell(ctx context.Context, ws string, row, col int, value string) error

	// AppendRow appends one row after the last non-empty row.
	AppendRow(ctx context.Context, ws string, cells []string) error
}

// headerIndex maps header cell text to its 0-based column index.
func headerIndex(vals [][]string) map[string]int {
	m := map[string]int{}
	if len(vals) == 0 {
		return m
	}
	for i, k := range vals[0] {
		k = trim(k)
		if k != "" {
			m[k] = i
		}
	}
	return m
}

// cell returns row[i] or "" when the row is ragged.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
