package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSplitDetails = errors.New("missing split details for method")
	ErrSplitCoverage       = errors.New("split details must cover exactly the participants")
	ErrExactSumMismatch    = errors.New("exact amounts do not sum up to the total")
	ErrPercentSumMismatch  = errors.New("percentages do not add up to 100%")
)

type (
	// ExactShare is a caller-supplied amount for one participant.
	ExactShare struct {
		UserID string
		Amount Money
	}

	// PercentShare is a caller-supplied percentage for one participant.
	PercentShare struct {
		UserID  string
		Percent Percent
	}

	// SplitInput carries the method-specific details. Only the slice
	// matching the chosen method is consulted.
	SplitInput struct {
		ExactAmounts []ExactShare
		Percentages  []PercentShare
	}
)

// exactTolerance is the accepted drift between the sum of exact shares
// and the expense total, in cents.
const exactTolerance = 1

// percentTolerance is the accepted drift around 100%, in hundredths of
// a percent.
const percentTolerance = 1

// Allocate computes the per-participant allocations for an expense.
//
// Preconditions are checked in a fixed order so callers get stable
// errors: amount first, then participants, then payer membership, then
// the method-specific detail checks. The returned slice always conserves
// the total for EQUAL and EXACT splits; PERCENTAGE shares are rounded
// independently and may drift by a cent in aggregate.
func Allocate(amount Money, payerID string, participants []string, method SplitMethod, in SplitInput) ([]Allocation, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		if id == "" {
			return nil, ErrEmptyParticipant
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}
	if _, ok := seen[payerID]; !ok {
		return nil, ErrPayerNotParticipant
	}

	switch method {
	case SplitEqual:
		return splitEqual(amount, participants), nil
	case SplitExact:
		return splitExact(amount, seen, in.ExactAmounts)
	case SplitPercentage:
		return splitPercentage(amount, seen, in.Percentages)
	default:
		return nil, ErrUnknownSplitMethod
	}
}

// splitEqual gives every participant the half-up rounded share and puts
// the whole rounding residual on the first participant, so the shares
// always sum to the total. For 100.00 over three people that is 33.34,
// 33.33, 33.33.
func splitEqual(amount Money, participants []string) []Allocation {
	n := int64(len(participants))
	share := roundDiv(amount.Cents, n)
	allocations := make([]Allocation, 0, n)
	for _, id := range participants {
		allocations = append(allocations, Allocation{UserID: id, Amount: Money{Cents: share}})
	}
	residual := amount.Cents - share*n
	allocations[0].Amount.Cents += residual
	return allocations
}

// splitExact stores the supplied amounts verbatim after checking that
// they cover the participants and sum to the total within a cent.
func splitExact(amount Money, participants map[string]struct{}, shares []ExactShare) ([]Allocation, error) {
	if len(shares) == 0 {
		return nil, ErrMissingSplitDetails
	}
	if err := checkCoverage(participants, len(shares), func(i int) string { return shares[i].UserID }); err != nil {
		return nil, err
	}
	var sum int64
	for _, s := range shares {
		if s.Amount.Cents < 0 {
			return nil, ErrInvalidAmount
		}
		sum += s.Amount.Cents
	}
	if diff := sum - amount.Cents; diff > exactTolerance || diff < -exactTolerance {
		return nil, fmt.Errorf("%w: exact amounts (%s) do not sum up to total (%s)",
			ErrExactSumMismatch, Money{Cents: sum}, amount)
	}
	allocations := make([]Allocation, 0, len(shares))
	for _, s := range shares {
		allocations = append(allocations, Allocation{UserID: s.UserID, Amount: s.Amount})
	}
	return allocations, nil
}

// splitPercentage computes each share as the half-up rounded percentage
// of the total. Shares are rounded independently; no residual is moved.
func splitPercentage(amount Money, participants map[string]struct{}, shares []PercentShare) ([]Allocation, error) {
	if len(shares) == 0 {
		return nil, ErrMissingSplitDetails
	}
	if err := checkCoverage(participants, len(shares), func(i int) string { return shares[i].UserID }); err != nil {
		return nil, err
	}
	var sum int64
	for _, s := range shares {
		if s.Percent < 0 {
			return nil, ErrInvalidAmount
		}
		sum += int64(s.Percent)
	}
	if diff := sum - 100*percentScale; diff > percentTolerance || diff < -percentTolerance {
		return nil, fmt.Errorf("%w: percentages (%s%%) do not add up to 100%%",
			ErrPercentSumMismatch, Percent(sum))
	}
	allocations := make([]Allocation, 0, len(shares))
	for _, s := range shares {
		cents := roundDiv(amount.Cents*int64(s.Percent), 100*percentScale)
		allocations = append(allocations, Allocation{
			UserID:  s.UserID,
			Amount:  Money{Cents: cents},
			Percent: s.Percent,
		})
	}
	return allocations, nil
}

// checkCoverage verifies the detail entries name every participant
// exactly once and nobody else.
func checkCoverage(participants map[string]struct{}, n int, userID func(int) string) error {
	if n != len(participants) {
		return ErrSplitCoverage
	}
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := userID(i)
		if _, ok := participants[id]; !ok {
			return fmt.Errorf("%w: %s is not a participant", ErrSplitCoverage, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// roundDiv divides a by b with half-up rounding. Both must be positive.
func roundDiv(a, b int64) int64 {
	return (a + b/2) / b
}
