package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultCategoryLimit caps the ranked category breakdown.
const DefaultCategoryLimit = 10

// SumSpending adds the amounts of the transactions dated inside r.
// Transactions outside the range are ignored; no match yields zero.
func SumSpending(txs []Transaction, r DateRange) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if !r.Contains(t.SpendingDate) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total
}

// RankByCategory groups transactions by category, sums each group and returns
// the groups sorted by amount descending, truncated to limit. Equal sums are
// ordered by category id so the result is deterministic.
func RankByCategory(txs []Transaction, limit int) []CategoryAmount {
	if limit <= 0 {
		limit = DefaultCategoryLimit
	}
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if cur, ok := sums[t.CategoryID]; ok {
			sums[t.CategoryID] = cur.Add(t.Amount)
		} else {
			sums[t.CategoryID] = t.Amount
		}
	}

	out := make([]CategoryAmount, 0, len(sums))
	for id, amt := range sums {
		out = append(out, CategoryAmount{CategoryID: id, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RecentFirst orders transactions by creation time, newest first, and keeps
// at most limit of them.
func RecentFirst(txs []Transaction, limit int) []Transaction {
	out := append([]Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
