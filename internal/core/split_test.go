package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAllocateEqual(t *testing.T) {
	cases := []struct {
		name         string
		amount       int64
		participants []string
		want         []int64
	}{
		{"even split", 10000, []string{"a", "b"}, []int64{5000, 5000}},
		{"residual to first", 10000, []string{"a", "b", "c"}, []int64{3334, 3333, 3333}},
		{"negative residual to first", 20000, []string{"a", "b", "c"}, []int64{6666, 6667, 6667}},
		{"single participant", 500, []string{"a"}, []int64{500}},
		{"tiny amount", 1, []string{"a", "b", "c"}, []int64{1, 0, 0}},
		{"residual makes first share negative", 5,
			[]string{"a", "b", "c", "d", "e", "f", "g", "h"},
			[]int64{-2, 1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Allocate(Money{Cents: tc.amount}, tc.participants[0], tc.participants, SplitEqual, SplitInput{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d allocations, got %d", len(tc.want), len(got))
			}
			var sum int64
			for i, a := range got {
				if a.UserID != tc.participants[i] {
					t.Fatalf("allocation %d: expected user %s, got %s", i, tc.participants[i], a.UserID)
				}
				if a.Amount.Cents != tc.want[i] {
					t.Fatalf("allocation %d: expected %d cents, got %d", i, tc.want[i], a.Amount.Cents)
				}
				sum += a.Amount.Cents
			}
			if sum != tc.amount {
				t.Fatalf("allocations sum to %d, expected %d", sum, tc.amount)
			}
		})
	}
}

func TestAllocateEqualNegativeShareEncodes(t *testing.T) {
	participants := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	got, err := Allocate(Money{Cents: 5}, "a", participants, SplitEqual, SplitInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Amount.Cents != -2 {
		t.Fatalf("expected first share of -2 cents, got %d", got[0].Amount.Cents)
	}
	if s := got[0].Amount.String(); s != "-0.02" {
		t.Fatalf("expected -0.02, got %q", s)
	}
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal allocations: %v", err)
	}
	if !strings.Contains(string(b), `"Amount":-0.02`) {
		t.Fatalf("expected -0.02 in %s", b)
	}
}

func TestAllocateExact(t *testing.T) {
	participants := []string{"a", "b", "c"}

	t.Run("stored verbatim", func(t *testing.T) {
		in := SplitInput{ExactAmounts: []ExactShare{
			{"b", Money{Cents: 2000}},
			{"a", Money{Cents: 5000}},
			{"c", Money{Cents: 3000}},
		}}
		got, err := Allocate(Money{Cents: 10000}, "a", participants, SplitExact, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, s := range in.ExactAmounts {
			if got[i].UserID != s.UserID || got[i].Amount != s.Amount {
				t.Fatalf("allocation %d: expected %+v, got %+v", i, s, got[i])
			}
		}
	})

	t.Run("one cent drift accepted", func(t *testing.T) {
		in := SplitInput{ExactAmounts: []ExactShare{
			{"a", Money{Cents: 3333}},
			{"b", Money{Cents: 3333}},
			{"c", Money{Cents: 3333}},
		}}
		if _, err := Allocate(Money{Cents: 10000}, "a", participants, SplitExact, in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("sum mismatch names both totals", func(t *testing.T) {
		in := SplitInput{ExactAmounts: []ExactShare{
			{"a", Money{Cents: 4000}},
			{"b", Money{Cents: 3000}},
			{"c", Money{Cents: 1950}},
		}}
		_, err := Allocate(Money{Cents: 9000}, "a", participants, SplitExact, in)
		if !errors.Is(err, ErrExactSumMismatch) {
			t.Fatalf("expected ErrExactSumMismatch, got %v", err)
		}
		if !strings.Contains(err.Error(), "89.50") || !strings.Contains(err.Error(), "90.00") {
			t.Fatalf("error should name both totals, got %q", err.Error())
		}
	})

	t.Run("missing details", func(t *testing.T) {
		_, err := Allocate(Money{Cents: 9000}, "a", participants, SplitExact, SplitInput{})
		if !errors.Is(err, ErrMissingSplitDetails) {
			t.Fatalf("expected ErrMissingSplitDetails, got %v", err)
		}
	})

	t.Run("coverage gap", func(t *testing.T) {
		in := SplitInput{ExactAmounts: []ExactShare{
			{"a", Money{Cents: 4500}},
			{"b", Money{Cents: 4500}},
		}}
		_, err := Allocate(Money{Cents: 9000}, "a", participants, SplitExact, in)
		if !errors.Is(err, ErrSplitCoverage) {
			t.Fatalf("expected ErrSplitCoverage, got %v", err)
		}
	})

	t.Run("stranger in details", func(t *testing.T) {
		in := SplitInput{ExactAmounts: []ExactShare{
			{"a", Money{Cents: 3000}},
			{"b", Money{Cents: 3000}},
			{"d", Money{Cents: 3000}},
		}}
		_, err := Allocate(Money{Cents: 9000}, "a", participants, SplitExact, in)
		if !errors.Is(err, ErrSplitCoverage) {
			t.Fatalf("expected ErrSplitCoverage, got %v", err)
		}
	})
}

func TestAllocatePercentage(t *testing.T) {
	participants := []string{"a", "b"}

	t.Run("fifty fifty", func(t *testing.T) {
		in := SplitInput{Percentages: []PercentShare{
			{"a", 5000},
			{"b", 5000},
		}}
		got, err := Allocate(Money{Cents: 20000}, "a", participants, SplitPercentage, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, want := range []int64{10000, 10000} {
			if got[i].Amount.Cents != want {
				t.Fatalf("allocation %d: expected %d cents, got %d", i, want, got[i].Amount.Cents)
			}
		}
		if got[0].Percent != 5000 {
			t.Fatalf("expected percent carried on allocation, got %d", got[0].Percent)
		}
	})

	t.Run("half-up per share", func(t *testing.T) {
		// 33.33% of 100.00 is 33.33, 66.67% is 66.67
		in := SplitInput{Percentages: []PercentShare{
			{"a", 3333},
			{"b", 6667},
		}}
		got, err := Allocate(Money{Cents: 10000}, "a", participants, SplitPercentage, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got[0].Amount.Cents != 3333 || got[1].Amount.Cents != 6667 {
			t.Fatalf("expected 3333/6667, got %d/%d", got[0].Amount.Cents, got[1].Amount.Cents)
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		in := SplitInput{Percentages: []PercentShare{
			{"a", 5000},
			{"b", 4999},
		}}
		if _, err := Allocate(Money{Cents: 10000}, "a", participants, SplitPercentage, in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("sum mismatch", func(t *testing.T) {
		in := SplitInput{Percentages: []PercentShare{
			{"a", 5000},
			{"b", 4950},
		}}
		_, err := Allocate(Money{Cents: 10000}, "a", participants, SplitPercentage, in)
		if !errors.Is(err, ErrPercentSumMismatch) {
			t.Fatalf("expected ErrPercentSumMismatch, got %v", err)
		}
		if !strings.Contains(err.Error(), "99.50") {
			t.Fatalf("error should name the computed sum, got %q", err.Error())
		}
	})
}

func TestAllocatePreconditionOrder(t *testing.T) {
	cases := []struct {
		name         string
		amount       int64
		payer        string
		participants []string
		method       SplitMethod
		wantErr      error
	}{
		{"bad amount first", 0, "a", nil, SplitEqual, ErrInvalidAmount},
		{"no participants", 100, "a", nil, SplitEqual, ErrNoParticipants},
		{"empty participant id", 100, "a", []string{"a", ""}, SplitEqual, ErrEmptyParticipant},
		{"duplicate participant", 100, "a", []string{"a", "a"}, SplitEqual, ErrDuplicateParticipant},
		{"payer not listed", 100, "z", []string{"a", "b"}, SplitEqual, ErrPayerNotParticipant},
		{"unknown method", 100, "a", []string{"a", "b"}, "HALVES", ErrUnknownSplitMethod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Allocate(Money{Cents: tc.amount}, tc.payer, tc.participants, tc.method, SplitInput{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
