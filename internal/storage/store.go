// Package storage persists users and expenses in SQLite.
package storage

import (
	"context"
	"time"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

// PendingSyncExpense is the minimal data needed for sync queue messages.
type PendingSyncExpense struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// Store is the persistence surface the HTTP layer and the worker depend
// on. User lookups return (nil, nil) when no row matches.
type Store interface {
	CreateUser(ctx context.Context, user *core.User) error
	GetUserByID(ctx context.Context, id string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	ListUsers(ctx context.Context, excludeID string, offset, limit int) ([]core.User, error)
	CountUsersByID(ctx context.Context, ids []string) (int, error)
	GetUsernames(ctx context.Context, ids []string) (map[string]string, error)

	CreateExpense(ctx context.Context, expense *core.Expense) error
	GetExpense(ctx context.Context, id string) (*core.Expense, error)
	ListExpensesForUser(ctx context.Context, userID string) ([]core.Expense, error)

	GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}
