package domain

import "github.com/shopspring/decimal"

// BalanceDelta is a signed change to one account's balance.
type BalanceDelta struct {
	AccountID string
	Amount    decimal.Decimal
}

// BalanceEffects lists the account balance changes a transaction causes.
// Income credits its account, expense debits it, and a transfer moves the
// amount from AccountID to ToAccountID. Unlinked transactions have no effect.
func (t Transaction) BalanceEffects() []BalanceDelta {
	var out []BalanceDelta
	switch t.Type {
	case TransactionIncome:
		if t.AccountID != nil {
			out = append(out, BalanceDelta{AccountID: *t.AccountID, Amount: t.Amount})
		}
	case TransactionExpense:
		if t.AccountID != nil {
			out = append(out, BalanceDelta{AccountID: *t.AccountID, Amount: t.Amount.Neg()})
		}
	case TransactionTransfer:
		if t.AccountID != nil {
			out = append(out, BalanceDelta{AccountID: *t.AccountID, Amount: t.Amount.Neg()})
		}
		if t.ToAccountID != nil {
			out = append(out, BalanceDelta{AccountID: *t.ToAccountID, Amount: t.Amount})
		}
	}
	return out
}

// Reverse negates every delta.
func Reverse(deltas []BalanceDelta) []BalanceDelta {
	out := make([]BalanceDelta, len(deltas))
	for i, d := range deltas {
		out[i] = BalanceDelta{AccountID: d.AccountID, Amount: d.Amount.Neg()}
	}
	return out
}

// MergeDeltas sums deltas per account, dropping accounts whose net change is
// zero. Account order follows first appearance.
func MergeDeltas(groups ...[]BalanceDelta) []BalanceDelta {
	sums := map[string]decimal.Decimal{}
	var order []string
	for _, g := range groups {
		for _, d := range g {
			if _, ok := sums[d.AccountID]; !ok {
				order = append(order, d.AccountID)
			}
			sums[d.AccountID] = sums[d.AccountID].Add(d.Amount)
		}
	}
	var out []BalanceDelta
	for _, id := range order {
		if sums[id].IsZero() {
			continue
		}
		out = append(out, BalanceDelta{AccountID: id, Amount: sums[id]})
	}
	return out
}
