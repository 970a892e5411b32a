package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func budget(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		spent     string
		budget    decimal.NullDecimal
		remaining string
		overspent string
		percent   int64
	}{
		{"overspend", "1200", budget("1000"), "0", "200", 100},
		{"under budget", "400", budget("1000"), "600", "0", 40},
		{"exactly on budget", "1000", budget("1000"), "0", "0", 100},
		{"half rounds away from zero", "99", budget("200"), "101", "0", 50},
		{"rounds down below half", "1", budget("3"), "2", "0", 33},
		{"no budget configured", "250", decimal.NullDecimal{}, "0", "250", 100},
		{"nothing spent", "0", budget("500"), "500", "0", 0},
		{"nothing at all", "0", decimal.NullDecimal{}, "0", "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(decimal.RequireFromString(tt.spent), tt.budget)
			if !got.Remaining.Equal(decimal.RequireFromString(tt.remaining)) {
				t.Errorf("remaining = %s, want %s", got.Remaining, tt.remaining)
			}
			if !got.Overspent.Equal(decimal.RequireFromString(tt.overspent)) {
				t.Errorf("overspent = %s, want %s", got.Overspent, tt.overspent)
			}
			if got.PercentConsumed != tt.percent {
				t.Errorf("percent = %d, want %d", got.PercentConsumed, tt.percent)
			}
			if got.Configured != tt.budget.Valid {
				t.Errorf("configured = %v, want %v", got.Configured, tt.budget.Valid)
			}
		})
	}
}

func TestReconcileZeroBudgetVersusNone(t *testing.T) {
	spent := decimal.NewFromInt(50)
	none := Reconcile(spent, decimal.NullDecimal{})
	zero := Reconcile(spent, budget("0"))
	if !none.Overspent.Equal(zero.Overspent) || !none.Remaining.Equal(zero.Remaining) || none.PercentConsumed != zero.PercentConsumed {
		t.Fatalf("absent and zero budgets must reconcile identically: %+v vs %+v", none, zero)
	}
	if none.Configured || !zero.Configured {
		t.Fatalf("configured flag must tell them apart: none=%v zero=%v", none.Configured, zero.Configured)
	}
}

func TestBudgetOf(t *testing.T) {
	if BudgetOf(nil).Valid {
		t.Fatal("nil amount must be invalid")
	}
	amt := decimal.NewFromInt(10)
	if b := BudgetOf(&amt); !b.Valid || !b.Decimal.Equal(amt) {
		t.Fatalf("unexpected %+v", b)
	}
}
