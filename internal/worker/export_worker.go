// Package worker exports recorded expenses as debt rows to the
// configured balance sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Anshbajaj69/Expense-Sharing/internal/amqp"
	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
	"github.com/Anshbajaj69/Expense-Sharing/internal/sheets"
	"github.com/Anshbajaj69/Expense-Sharing/internal/storage"
)

// ExportWorker flattens expenses into debt edges and appends them to a
// balance sheet writer.
type ExportWorker struct {
	storage   storage.Store
	writer    sheets.BalanceSheetWriter
	batchSize int
}

func NewExportWorker(store storage.Store, writer sheets.BalanceSheetWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single expense sync message from AMQP.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"expense_id", msg.ID,
		"version", msg.Version)

	return w.exportExpense(ctx, msg.ID)
}

// exportExpense loads the expense, flattens it into debt rows with
// usernames substituted for ids, and appends them to the sheet.
func (w *ExportWorker) exportExpense(ctx context.Context, id string) error {
	expense, err := w.storage.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	if expense == nil {
		// Deleted or never committed; nothing to export and nothing
		// to retry.
		slog.WarnContext(ctx, "Expense not found, skipping export", "expense_id", id)
		return nil
	}

	edges := core.DebtEdges([]core.Expense{*expense})
	names, err := w.storage.GetUsernames(ctx, expense.Participants())
	if err != nil {
		return fmt.Errorf("resolve usernames: %w", err)
	}

	rows := make([]sheets.Row, 0, len(edges))
	for _, edge := range edges {
		rows = append(rows, sheets.Row{
			From:        displayName(names, edge.From),
			To:          displayName(names, edge.To),
			Amount:      edge.Amount,
			Description: expense.Description,
			Date:        expense.CreatedAt,
		})
	}

	ref, err := w.writer.AppendRows(ctx, rows)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "expense_id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The export itself worked, so don't fail the message.
		slog.ErrorContext(ctx, "Failed to mark as synced", "expense_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported expense",
		"expense_id", id,
		"sheets_ref", ref,
		"rows", len(rows),
		"amount_cents", expense.Amount.Cents)

	return nil
}

// ProcessPendingExpenses exports any expenses that haven't been synced
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense", "expense_id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck exports pending expenses at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	// Get a larger batch for startup check
	pending, err := w.storage.GetPendingSyncExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense during startup",
				"expense_id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func displayName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}
