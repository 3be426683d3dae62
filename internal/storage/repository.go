package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a new user, assigning an ID and creation time if unset.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", user.ID, "username", user.Username)
	return nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.getUser(ctx, "username", username)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *SQLiteRepository) getUser(ctx context.Context, column, value string) (*core.User, error) {
	query := fmt.Sprintf(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE %s = ?`, column)

	var u core.User
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return &u, nil
}

// ListUsers returns users ordered by username, skipping excludeID.
func (r *SQLiteRepository) ListUsers(ctx context.Context, excludeID string, offset, limit int) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users
		 WHERE id != ? ORDER BY username LIMIT ? OFFSET ?`,
		excludeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsersByID reports how many of the given ids exist. Callers use it
// to verify that every expense participant is a registered user.
func (r *SQLiteRepository) CountUsersByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM users WHERE id IN (%s)`, placeholders(len(ids)))

	var count int
	if err := r.db.QueryRowContext(ctx, query, toAnySlice(ids)...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// GetUsernames resolves user ids to usernames. Missing ids are absent
// from the result rather than an error.
func (r *SQLiteRepository) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	query := fmt.Sprintf(
		`SELECT id, username FROM users WHERE id IN (%s)`, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get usernames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		names[id] = username
	}
	return names, rows.Err()
}

// CreateExpense inserts the expense and its allocations in one
// transaction, assigning an ID and creation time if unset.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, payer_id, description, amount_cents, split_method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PayerID, e.Description, e.Amount.Cents, string(e.Method), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i, a := range e.Allocations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_allocations (expense_id, user_id, position, amount_cents, percent_bp)
			 VALUES (?, ?, ?, ?, ?)`,
			e.ID, a.UserID, i, a.Amount.Cents, int64(a.Percent))
		if err != nil {
			return fmt.Errorf("insert allocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"payer_id", e.PayerID,
		"amount_cents", e.Amount.Cents,
		"split_method", string(e.Method),
		"participants", len(e.Allocations))
	return nil
}

// GetExpense loads a single expense with its allocations, or (nil, nil)
// when the id is unknown.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	var (
		e      core.Expense
		method string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, payer_id, description, amount_cents, split_method, created_at
		 FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.PayerID, &e.Description, &e.Amount.Cents, &method, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Method = core.SplitMethod(method)

	if e.Allocations, err = r.loadAllocations(ctx, e.ID); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpensesForUser returns every expense the user paid for or is
// allocated a share of, newest first.
func (r *SQLiteRepository) ListExpensesForUser(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, payer_id, description, amount_cents, split_method, created_at
		 FROM expenses
		 WHERE payer_id = ?
		    OR id IN (SELECT expense_id FROM expense_allocations WHERE user_id = ?)
		 ORDER BY created_at DESC, id`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			method string
		)
		if err := rows.Scan(&e.ID, &e.PayerID, &e.Description, &e.Amount.Cents, &method, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Method = core.SplitMethod(method)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range expenses {
		if expenses[i].Allocations, err = r.loadAllocations(ctx, expenses[i].ID); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (r *SQLiteRepository) loadAllocations(ctx context.Context, expenseID string) ([]core.Allocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, amount_cents, percent_bp FROM expense_allocations
		 WHERE expense_id = ? ORDER BY position`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	defer rows.Close()

	var allocations []core.Allocation
	for rows.Next() {
		var (
			a  core.Allocation
			bp int64
		)
		if err := rows.Scan(&a.UserID, &a.Amount.Cents, &bp); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.Percent = core.Percent(bp)
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// GetPendingSyncExpenses returns expenses that still need to be exported.
func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM expenses
		 WHERE synced = 0 AND sync_error = 0
		 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncExpense
	for rows.Next() {
		var p PendingSyncExpense
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks an expense as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET synced = 1, sync_error = 0, synced_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}

	slog.InfoContext(ctx, "Expense marked as synced", "expense_id", id)
	return nil
}

// MarkSyncError marks an expense as having export errors so the sweep
// stops retrying it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_error = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}

	slog.WarnContext(ctx, "Expense marked with sync error", "expense_id", id)
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnySlice(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
