// Package export appends recorded expenses to an external journal. The
// worker feeds it from the export queue; nothing in the request path waits
// on it.
package export

import (
	"context"
	"time"

	"sprout/internal/core"
)

// Row is one exported expense.
type Row struct {
	Timestamp   time.Time
	Amount      core.Money
	Description string
	Category    string
}

// Exporter appends a row to the journal and returns a backend-specific
// reference to the written row.
type Exporter interface {
	Append(ctx context.Context, row Row) (string, error)
}

// Values renders the row for tabular backends: timestamp, amount in units,
// description, category name (empty when uncategorized).
func (r Row) Values() []any {
	return []any{
		r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		r.Amount.Float64(),
		r.Description,
		r.Category,
	}
}
