package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
)

const maxRequestBody = 1 << 20 // 1 MiB

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type exactAmountInput struct {
	UserID string      `json:"userId" validate:"required"`
	Amount json.Number `json:"amount" validate:"required"`
}

type percentageInput struct {
	UserID  string      `json:"userId" validate:"required"`
	Percent json.Number `json:"percent" validate:"required"`
}

type addExpenseRequest struct {
	Description  string             `json:"description" validate:"required,max=200"`
	Amount       json.Number        `json:"amount" validate:"required"`
	SplitMethod  string             `json:"splitMethod" validate:"required"`
	Participants []string           `json:"participants" validate:"required,min=1,dive,required"`
	ExactAmounts []exactAmountInput `json:"exactAmounts,omitempty" validate:"omitempty,dive"`
	Percentages  []percentageInput  `json:"percentages,omitempty" validate:"omitempty,dive"`
}

// decodeJSON decodes a request body strictly: unknown fields are
// rejected and numbers are kept as json.Number so amounts never pass
// through float64.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

// validationFields translates validator errors into a field -> message map.
func validationFields(err error, translator ut.Translator) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
	}
	return fields
}

// splitInputFrom parses the method-specific detail lists into core types.
func splitInputFrom(req addExpenseRequest) (core.SplitInput, error) {
	var in core.SplitInput

	for _, ea := range req.ExactAmounts {
		cents, err := core.ParseDecimalToCents(ea.Amount.String())
		if err != nil {
			return core.SplitInput{}, fmt.Errorf("exact amount for %s: %w", ea.UserID, err)
		}
		in.ExactAmounts = append(in.ExactAmounts, core.ExactShare{
			UserID: ea.UserID,
			Amount: core.Money{Cents: cents},
		})
	}

	for _, ps := range req.Percentages {
		pct, err := core.ParsePercent(ps.Percent.String())
		if err != nil {
			return core.SplitInput{}, fmt.Errorf("percentage for %s: %w", ps.UserID, err)
		}
		in.Percentages = append(in.Percentages, core.PercentShare{
			UserID:  ps.UserID,
			Percent: pct,
		})
	}

	return in, nil
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type allocationResponse struct {
	UserID  string       `json:"userId"`
	Amount  core.Money   `json:"amount"`
	Percent core.Percent `json:"percent,omitempty"`
}

type expenseResponse struct {
	ID           string               `json:"id"`
	PayerID      string               `json:"payerId"`
	Description  string               `json:"description"`
	Amount       core.Money           `json:"amount"`
	SplitMethod  core.SplitMethod     `json:"splitMethod"`
	Participants []string             `json:"participants"`
	Allocations  []allocationResponse `json:"allocations"`
	CreatedAt    time.Time            `json:"createdAt"`
}

func toExpenseResponse(e *core.Expense) expenseResponse {
	allocations := make([]allocationResponse, 0, len(e.Allocations))
	for _, a := range e.Allocations {
		allocations = append(allocations, allocationResponse{
			UserID:  a.UserID,
			Amount:  a.Amount,
			Percent: a.Percent,
		})
	}
	return expenseResponse{
		ID:           e.ID,
		PayerID:      e.PayerID,
		Description:  e.Description,
		Amount:       e.Amount,
		SplitMethod:  e.Method,
		Participants: e.Participants(),
		Allocations:  allocations,
		CreatedAt:    e.CreatedAt,
	}
}
