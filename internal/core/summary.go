package core

import "github.com/shopspring/decimal"

// CategoryAmount is spending aggregated by category id. An empty CategoryID
// groups the uncategorized transactions.
type CategoryAmount struct {
	CategoryID string
	Amount     decimal.Decimal
}

// CategorySpending is a CategoryAmount resolved for display.
type CategorySpending struct {
	CategoryID string
	Name       string
	ColorHex   string
	Amount     decimal.Decimal
}

// SpendingReport is recomputed on every request.
type SpendingReport struct {
	Month      MonthKey
	Total      decimal.Decimal
	ByCategory []CategorySpending
}

// BudgetStatus is the reconciliation of spending against one budget ceiling.
// Configured is false when no budget exists; Budget is then zero.
type BudgetStatus struct {
	Spent           decimal.Decimal
	Budget          decimal.Decimal
	Configured      bool
	Remaining       decimal.Decimal
	Overspent       decimal.Decimal
	PercentConsumed int64
}

// CategoryBudgetStatus ties a per-category ceiling to its reconciliation.
type CategoryBudgetStatus struct {
	CategoryID string
	Name       string
	ColorHex   string
	Status     BudgetStatus
}

// Dashboard is everything the monthly overview shows for one user.
type Dashboard struct {
	Report          SpendingReport
	Budget          BudgetStatus
	CategoryBudgets []CategoryBudgetStatus
	Recent          []Transaction
	Categories      []Category
}
