package core

import (
	"errors"
	"testing"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseSplitMethod(t *testing.T) {
	cases := []struct {
		in  string
		out SplitMethod
		ok  bool
	}{
		{"EQUAL", SplitEqual, true},
		{"exact", SplitExact, true},
		{" Percentage ", SplitPercentage, true},
		{"EVEN", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseSplitMethod(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		ID:          "e1",
		PayerID:     "alice",
		Description: "dinner",
		Amount:      Money{Cents: 10000},
		Method:      SplitEqual,
		Allocations: []Allocation{
			{UserID: "alice", Amount: Money{Cents: 5000}},
			{UserID: "bob", Amount: Money{Cents: 5000}},
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name   string
		mutate func(*Expense)
	}{
		{"empty payer", func(e *Expense) { e.PayerID = "" }},
		{"empty description", func(e *Expense) { e.Description = "  " }},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }},
		{"unknown method", func(e *Expense) { e.Method = "HALVES" }},
		{"no allocations", func(e *Expense) { e.Allocations = nil }},
		{"duplicate participant", func(e *Expense) { e.Allocations[1].UserID = "alice" }},
		{"payer missing", func(e *Expense) { e.PayerID = "carol" }},
		{"allocations undershoot total", func(e *Expense) { e.Allocations[1].Amount.Cents = 3000 }},
		{"allocations overshoot total", func(e *Expense) { e.Allocations[0].Amount.Cents = 9000 }},
	}
	for _, tc := range bads {
		e := good
		e.Allocations = append([]Allocation(nil), good.Allocations...)
		tc.mutate(&e)
		if err := e.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestExpenseValidateSums(t *testing.T) {
	exact := Expense{
		ID:          "e2",
		PayerID:     "alice",
		Description: "groceries",
		Amount:      Money{Cents: 8000},
		Method:      SplitExact,
		Allocations: []Allocation{
			{UserID: "alice", Amount: Money{Cents: 3000}},
			{UserID: "bob", Amount: Money{Cents: 5001}},
		},
	}
	// one cent of drift is tolerated
	if err := exact.Validate(); err != nil {
		t.Fatalf("expected ok within tolerance, got %v", err)
	}
	exact.Allocations[1].Amount.Cents = 5002
	if err := exact.Validate(); !errors.Is(err, ErrExactSumMismatch) {
		t.Fatalf("expected sum mismatch, got %v", err)
	}

	pct := Expense{
		ID:          "e3",
		PayerID:     "alice",
		Description: "rent",
		Amount:      Money{Cents: 100000},
		Method:      SplitPercentage,
		Allocations: []Allocation{
			{UserID: "alice", Amount: Money{Cents: 60000}, Percent: 6000},
			{UserID: "bob", Amount: Money{Cents: 40010}, Percent: 4001},
		},
	}
	// percentage shares round independently, only the percent sum is bounded
	if err := pct.Validate(); err != nil {
		t.Fatalf("expected ok within tolerance, got %v", err)
	}
	pct.Allocations[1].Percent = 4002
	if err := pct.Validate(); !errors.Is(err, ErrPercentSumMismatch) {
		t.Fatalf("expected percent mismatch, got %v", err)
	}
}

func TestUserValidate(t *testing.T) {
	good := User{ID: "u1", Username: "alice", Email: "alice@example.com"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []User{
		{Username: "", Email: "a@example.com"},
		{Username: "alice", Email: "not-an-email"},
		{Username: "alice", Email: ""},
	}
	for i, u := range bads {
		if err := u.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
