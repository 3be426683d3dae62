package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Anshbajaj69/Expense-Sharing/internal/amqp"
	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
	"github.com/Anshbajaj69/Expense-Sharing/internal/sheets/memory"
	"github.com/Anshbajaj69/Expense-Sharing/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *storage.SQLiteRepository, username string) *core.User {
	t.Helper()
	user := &core.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func seedExpense(t *testing.T, repo *storage.SQLiteRepository, payer *core.User, shares map[*core.User]int64, total int64) *core.Expense {
	t.Helper()
	expense := &core.Expense{
		PayerID:     payer.ID,
		Description: "dinner",
		Amount:      core.Money{Cents: total},
		Method:      core.SplitEqual,
	}
	for user, cents := range shares {
		expense.Allocations = append(expense.Allocations, core.Allocation{
			UserID: user.ID,
			Amount: core.Money{Cents: cents},
		})
	}
	if err := repo.CreateExpense(context.Background(), expense); err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}
	return expense
}

func TestHandleSyncMessageExportsEdges(t *testing.T) {
	repo := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(repo, writer, 10)
	ctx := context.Background()

	alice := seedUser(t, repo, "alice")
	bob := seedUser(t, repo, "bob")
	expense := seedExpense(t, repo, alice, map[*core.User]int64{alice: 2500, bob: 2500}, 5000)

	err := w.HandleSyncMessage(ctx, amqp.NewExpenseSyncMessage(expense.ID, 1))
	if err != nil {
		t.Fatalf("handle sync message failed: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].From != "bob" || rows[0].To != "alice" || rows[0].Amount.Cents != 2500 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[0].Description != "dinner" {
		t.Fatalf("expected expense description on row, got %q", rows[0].Description)
	}

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("get pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected expense marked synced, still pending: %+v", pending)
	}
}

func TestHandleSyncMessageMissingExpense(t *testing.T) {
	repo := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(repo, writer, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewExpenseSyncMessage("unknown", 1))
	if err != nil {
		t.Fatalf("missing expense must not requeue, got error: %v", err)
	}
	if len(writer.Rows()) != 0 {
		t.Fatalf("expected no rows")
	}
}

func TestStartupSyncCheckDrainsBacklog(t *testing.T) {
	repo := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(repo, writer, 10)
	ctx := context.Background()

	alice := seedUser(t, repo, "alice")
	bob := seedUser(t, repo, "bob")
	carol := seedUser(t, repo, "carol")

	seedExpense(t, repo, alice, map[*core.User]int64{alice: 3000, bob: 3000, carol: 3000}, 9000)
	seedExpense(t, repo, bob, map[*core.User]int64{bob: 2000, carol: 2000}, 4000)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup sync failed: %v", err)
	}

	// 2 edges from the first expense, 1 from the second
	if got := len(writer.Rows()); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("get pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %+v", pending)
	}
}

func TestProcessPendingExpensesEmptyBacklog(t *testing.T) {
	repo := newTestStore(t)
	w := NewExportWorker(repo, memory.New(), 10)

	if err := w.ProcessPendingExpenses(context.Background()); err != nil {
		t.Fatalf("unexpected error on empty backlog: %v", err)
	}
}
