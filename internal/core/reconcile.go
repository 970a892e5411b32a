package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Reconcile compares spent against an optional budget.
//
// An absent budget is reconciled as a zero budget; the Configured flag is the
// only place the two cases differ. The percentage is spent over
// (spent + remaining), so an overspent month reads 100, and it is rounded half
// away from zero.
func Reconcile(spent decimal.Decimal, budget decimal.NullDecimal) BudgetStatus {
	amount := decimal.Zero
	if budget.Valid {
		amount = budget.Decimal
	}

	remaining := decimal.Max(amount.Sub(spent), decimal.Zero)
	overspent := decimal.Max(spent.Sub(amount), decimal.Zero)

	var percent int64
	if denom := spent.Add(remaining); !denom.IsZero() {
		percent = spent.Mul(hundred).Div(denom).Round(0).IntPart()
	}

	return BudgetStatus{
		Spent:           spent,
		Budget:          amount,
		Configured:      budget.Valid,
		Remaining:       remaining,
		Overspent:       overspent,
		PercentConsumed: percent,
	}
}

// BudgetOf lifts an optional stored amount into the reconciliation input.
func BudgetOf(amount *decimal.Decimal) decimal.NullDecimal {
	if amount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *amount, Valid: true}
}
