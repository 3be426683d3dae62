package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	SplitEqual      SplitMethod = "EQUAL"
	SplitExact      SplitMethod = "EXACT"
	SplitPercentage SplitMethod = "PERCENTAGE"
)

// percentScale is the number of hundredths in one percent point;
// a full 100% is 100*percentScale.
const percentScale = 100

type (
	// SplitMethod selects the allocation policy for an expense.
	SplitMethod string

	Money struct {
		Cents int64
	}

	// Percent is a percentage in hundredths of a percent: 33.50% is 3350.
	Percent int64

	// Allocation records what one participant owes for an expense.
	// Percent is only set for percentage splits.
	Allocation struct {
		UserID  string
		Amount  Money
		Percent Percent
	}

	// Expense is an immutable record of a shared cost. The payer fronted
	// the full amount; Allocations say how it is divided among the
	// participants, payer included.
	Expense struct {
		ID          string
		PayerID     string
		Description string
		Amount      Money
		Method      SplitMethod
		Allocations []Allocation
		CreatedAt   time.Time
	}

	User struct {
		ID           string
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrEmptyParticipant     = errors.New("participant id cannot be empty")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrPayerNotParticipant  = errors.New("payer must be included in participants")
	ErrUnknownSplitMethod   = errors.New("invalid split method")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrInvalidEmail         = errors.New("invalid email")
)

// ParseSplitMethod accepts the wire form of a split method, case-insensitively.
func ParseSplitMethod(s string) (SplitMethod, error) {
	switch SplitMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case SplitEqual:
		return SplitEqual, nil
	case SplitExact:
		return SplitExact, nil
	case SplitPercentage:
		return SplitPercentage, nil
	default:
		return "", ErrUnknownSplitMethod
	}
}

// Participants returns the participant ids in allocation order.
func (e Expense) Participants() []string {
	ids := make([]string, 0, len(e.Allocations))
	for _, a := range e.Allocations {
		ids = append(ids, a.UserID)
	}
	return ids
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.PayerID) == "" {
		return ErrEmptyParticipant
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	switch e.Method {
	case SplitEqual, SplitExact, SplitPercentage:
	default:
		return ErrUnknownSplitMethod
	}
	if len(e.Allocations) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(e.Allocations))
	payerFound := false
	for _, a := range e.Allocations {
		if strings.TrimSpace(a.UserID) == "" {
			return ErrEmptyParticipant
		}
		if _, ok := seen[a.UserID]; ok {
			return ErrDuplicateParticipant
		}
		seen[a.UserID] = struct{}{}
		if a.UserID == e.PayerID {
			payerFound = true
		}
	}
	if !payerFound {
		return ErrPayerNotParticipant
	}
	return e.validateSums()
}

// validateSums checks allocation totals against the expense amount.
// EQUAL and EXACT allocations must conserve the total within a cent;
// PERCENTAGE allocations are rounded independently, so only the percent
// sum is bounded.
func (e Expense) validateSums() error {
	if e.Method == SplitPercentage {
		var pctSum int64
		for _, a := range e.Allocations {
			pctSum += int64(a.Percent)
		}
		if diff := pctSum - 100*percentScale; diff > percentTolerance || diff < -percentTolerance {
			return fmt.Errorf("%w: percentages (%s%%) do not add up to 100%%",
				ErrPercentSumMismatch, Percent(pctSum))
		}
		return nil
	}
	var sum int64
	for _, a := range e.Allocations {
		sum += a.Amount.Cents
	}
	if diff := sum - e.Amount.Cents; diff > exactTolerance || diff < -exactTolerance {
		return fmt.Errorf("%w: allocations (%s) do not sum up to total (%s)",
			ErrExactSumMismatch, Money{Cents: sum}, e.Amount)
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Username)) == 0 {
		return ErrInvalidUsername
	}
	if len(u.Username) > 50 {
		return ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
