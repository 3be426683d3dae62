// Package sheets defines the outbound port for exporting debt rows,
// with Google Sheets and in-memory adapters.
package sheets

import (
	"context"
	"time"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

// Row is one exported debt: who owes whom how much, for which expense.
type Row struct {
	From        string
	To          string
	Amount      core.Money
	Description string
	Date        time.Time
}

// BalanceSheetWriter appends rows to the balance sheet and returns a
// reference to where they landed.
type BalanceSheetWriter interface {
	AppendRows(ctx context.Context, rows []Row) (ref string, err error)
}
