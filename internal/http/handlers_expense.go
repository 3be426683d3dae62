package http

import (
	"encoding/csv"
	"log/slog"
	"net/http"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
	"github.com/Anshbajaj69/Expense-Sharing/internal/log"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/authn"
)

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req addExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondWithValidation(w, validationFields(err, s.translator))
		return
	}

	ctx := r.Context()
	payerID := authn.GetUserID(ctx)

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	method, err := core.ParseSplitMethod(req.SplitMethod)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := splitInputFrom(req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	known, err := s.store.CountUsersByID(ctx, req.Participants)
	if err != nil {
		slog.ErrorContext(ctx, "Participant check failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to verify participants")
		return
	}
	if known != len(req.Participants) {
		respondWithError(w, http.StatusBadRequest, "One or more participants do not exist")
		return
	}

	allocations, err := core.Allocate(core.Money{Cents: cents}, payerID, req.Participants, method, in)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense := &core.Expense{
		PayerID:     payerID,
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Method:      method,
		Allocations: allocations,
	}
	if err := expense.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.ErrorContext(ctx, "Expense creation failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpCreate,
			log.FieldPayerID, payerID,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save expense")
		return
	}

	// The pending sweep picks the expense up later if publishing fails.
	if s.publisher != nil {
		if err := s.publisher.PublishExpenseSync(ctx, expense.ID, 1); err != nil {
			slog.WarnContext(ctx, "Export publish failed, left for pending sweep",
				log.FieldComponent, log.ComponentExpense,
				log.FieldExpenseID, expense.ID,
				log.FieldError, err)
		}
	}

	s.balances.Invalidate(req.Participants...)
	expensesCreated.Inc()

	slog.InfoContext(ctx, "Expense recorded",
		log.FieldComponent, log.ComponentExpense,
		log.FieldOperation, log.OpCreate,
		log.FieldExpenseID, expense.ID,
		log.FieldPayerID, payerID,
		log.FieldAmountCents, cents,
		log.FieldSplitMethod, string(method),
		log.FieldParticipants, len(req.Participants))

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Expense added successfully",
		"expense": toExpenseResponse(expense),
	})
}

// handleGetExpenses lists the caller's expenses, newest first.
func (s *Server) handleGetExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()
	userID := authn.GetUserID(ctx)

	expenses, err := s.store.ListExpensesForUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Expense listing failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldOperation, log.OpList,
			log.FieldUserID, userID,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch expenses")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message":  "Expenses fetched successfully",
		"count":    len(out),
		"expenses": out,
	})
}

// handleBalanceSheet returns the caller's unnetted balance view.
func (s *Server) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()
	userID := authn.GetUserID(ctx)

	if view, ok := s.balances.Get(userID); ok {
		respondWithJSON(w, http.StatusOK, view)
		return
	}

	expenses, err := s.store.ListExpensesForUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Balance computation failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldUserID, userID,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to compute balance")
		return
	}

	view := core.BalanceFor(userID, expenses)
	s.balances.Set(userID, view)
	respondWithJSON(w, http.StatusOK, view)
}

// handleGenerateBalanceSheet streams the caller's debt edges as CSV,
// with usernames substituted for user ids.
func (s *Server) handleGenerateBalanceSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx := r.Context()
	userID := authn.GetUserID(ctx)

	expenses, err := s.store.ListExpensesForUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Balance sheet generation failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldUserID, userID,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to generate balance sheet")
		return
	}

	edges := core.DebtEdges(expenses)

	ids := make([]string, 0, len(edges)*2)
	seen := make(map[string]struct{})
	for _, e := range edges {
		for _, id := range []string{e.From, e.To} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	names, err := s.store.GetUsernames(ctx, ids)
	if err != nil {
		slog.ErrorContext(ctx, "Username resolution failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to generate balance sheet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="balance-sheet.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"From", "To", "Amount"})
	for _, e := range edges {
		_ = cw.Write([]string{displayName(names, e.From), displayName(names, e.To), e.Amount.String()})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.WarnContext(ctx, "CSV write failed",
			log.FieldComponent, log.ComponentExpense,
			log.FieldError, err)
	}
}

func displayName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
