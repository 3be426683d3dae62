package core

import "sort"

type (
	// BalanceView is one user's standing against every counterparty.
	// Owes and OwedTo are kept separate on purpose: mutual debts are
	// reported in full, never netted against each other.
	BalanceView struct {
		UserID      string           `json:"userId"`
		Owes        map[string]Money `json:"owes"`
		OwedTo      map[string]Money `json:"owedTo"`
		TotalOwes   Money            `json:"totalOwes"`
		TotalOwedTo Money            `json:"totalOwedTo"`
	}

	// DebtEdge is one directed debt: From owes To the given amount,
	// summed over all expenses.
	DebtEdge struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount Money  `json:"amount"`
	}
)

// walkDebts visits every debt an expense creates: each non-payer
// participant owes the payer their allocated share. The payer's own
// allocation never produces a debt.
func walkDebts(e Expense, visit func(debtor, creditor string, amount Money)) {
	for _, a := range e.Allocations {
		if a.UserID == e.PayerID {
			continue
		}
		visit(a.UserID, e.PayerID, a.Amount)
	}
}

// BalanceFor aggregates the expenses into the subject's balance view.
// Expenses the subject is not part of contribute nothing. The input is
// never modified, so calling this twice yields the same view.
func BalanceFor(subject string, expenses []Expense) BalanceView {
	view := BalanceView{
		UserID: subject,
		Owes:   make(map[string]Money),
		OwedTo: make(map[string]Money),
	}
	for _, e := range expenses {
		walkDebts(e, func(debtor, creditor string, amount Money) {
			switch subject {
			case debtor:
				m := view.Owes[creditor]
				m.Cents += amount.Cents
				view.Owes[creditor] = m
				view.TotalOwes.Cents += amount.Cents
			case creditor:
				m := view.OwedTo[debtor]
				m.Cents += amount.Cents
				view.OwedTo[debtor] = m
				view.TotalOwedTo.Cents += amount.Cents
			}
		})
	}
	return view
}

// DebtEdges flattens the expenses into per-pair debt totals, sorted by
// debtor then creditor for stable output.
func DebtEdges(expenses []Expense) []DebtEdge {
	type pair struct{ from, to string }
	totals := make(map[pair]int64)
	for _, e := range expenses {
		walkDebts(e, func(debtor, creditor string, amount Money) {
			totals[pair{debtor, creditor}] += amount.Cents
		})
	}
	edges := make([]DebtEdge, 0, len(totals))
	for p, cents := range totals {
		edges = append(edges, DebtEdge{From: p.from, To: p.to, Amount: Money{Cents: cents}})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}
