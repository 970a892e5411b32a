package ledger

import (
	"kharcha/internal/core"
)

// Order selects how FindTransactions sorts its result.
type Order int

const (
	// BySpendingDate sorts oldest spending date first.
	BySpendingDate Order = iota
	// ByCreatedDesc sorts newest record first.
	ByCreatedDesc
)

// TransactionFilter narrows a transaction query. Zero fields match anything.
type TransactionFilter struct {
	ID            string
	Range         *core.DateRange
	CategoryID    *string // pointer to "" selects uncategorized
	PaymentMethod core.PaymentMethod
	OrderBy       Order
	Limit         int
}

// Matches reports whether t satisfies every set field of the filter.
func (f TransactionFilter) Matches(t core.Transaction) bool {
	if f.ID != "" && t.ID != f.ID {
		return false
	}
	if f.Range != nil && !f.Range.Contains(t.SpendingDate) {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.PaymentMethod != "" && t.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// InMonth is a filter for every transaction dated inside r.
func InMonth(r core.DateRange) TransactionFilter {
	return TransactionFilter{Range: &r}
}
