package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

func TestMemoryStoreOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateTransaction(ctx, core.Transaction{
		UserID:        "user-b",
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: core.Cash,
		SpendingDate:  time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := s.DeleteTransaction(ctx, created.ID, "user-a")
	if err != nil || n != 0 {
		t.Fatalf("foreign delete: n=%d err=%v", n, err)
	}
	amt := decimal.NewFromInt(1)
	n, err = s.UpdateTransaction(ctx, created.ID, "user-a", core.TransactionPatch{Amount: &amt})
	if err != nil || n != 0 {
		t.Fatalf("foreign update: n=%d err=%v", n, err)
	}

	got, _ := s.FindTransactions(ctx, "user-b", ledger.TransactionFilter{})
	if len(got) != 1 || !got[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("transaction must survive foreign mutations: %+v", got)
	}

	n, _ = s.DeleteTransaction(ctx, created.ID, "user-b")
	if n != 1 {
		t.Fatalf("owner delete affected %d", n)
	}
}

func TestMemoryStoreBudgetUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := core.MonthlyBudget{UserID: "u", MonthKey: "2025-04", Amount: decimal.NewFromInt(1000)}

	first, _ := s.UpsertMonthlyBudget(ctx, b)
	second, _ := s.UpsertMonthlyBudget(ctx, b)
	if s.BudgetCount() != 1 || first.ID != second.ID {
		t.Fatalf("repeated upsert must keep one record: count=%d ids=%s,%s", s.BudgetCount(), first.ID, second.ID)
	}

	b.Amount = decimal.NewFromInt(1500)
	third, _ := s.UpsertMonthlyBudget(ctx, b)
	got, err := s.GetMonthlyBudget(ctx, "u", "2025-04")
	if err != nil || s.BudgetCount() != 1 || third.ID != first.ID || !got.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("upsert must overwrite in place: count=%d got=%+v err=%v", s.BudgetCount(), got, err)
	}

	if _, err := s.GetMonthlyBudget(ctx, "u", "2025-05"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteCategoryDetachesTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, _ := s.CreateCategory(ctx, core.Category{UserID: "u", Name: "Food"})
	_, _ = s.CreateTransaction(ctx, core.Transaction{UserID: "u", CategoryID: c.ID, Amount: decimal.NewFromInt(5), SpendingDate: time.Now()})
	_, _ = s.UpsertCategoryBudget(ctx, core.CategoryMonthlyBudget{UserID: "u", CategoryID: c.ID, MonthKey: "2025-01", Amount: decimal.NewFromInt(50)})

	if n, _ := s.DeleteCategory(ctx, c.ID, "u"); n != 1 {
		t.Fatalf("delete affected %d", n)
	}
	txs, _ := s.FindTransactions(ctx, "u", ledger.TransactionFilter{})
	if len(txs) != 1 || txs[0].CategoryID != "" {
		t.Fatalf("transaction should be uncategorized now: %+v", txs)
	}
	if bs, _ := s.ListCategoryBudgets(ctx, "u", "2025-01"); len(bs) != 0 {
		t.Fatalf("category budgets should be removed: %+v", bs)
	}
}

func TestMemoryStoreRecentOrdering(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	for i := 0; i < 3; i++ {
		_, _ = s.CreateTransaction(ctx, core.Transaction{UserID: "u", Description: string(rune('a' + i)), PaymentMethod: core.UPIPhone, SpendingDate: time.Now()})
	}
	got, _ := s.FindTransactions(ctx, "u", ledger.TransactionFilter{OrderBy: ledger.ByCreatedDesc, Limit: 2})
	if len(got) != 2 || got[0].Description != "c" || got[1].Description != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestMemoryStoreRecentOrderingTies(t *testing.T) {
	ctx := context.Background()
	same := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return same })
	var ids []string
	for i := 0; i < 3; i++ {
		tx, _ := s.CreateTransaction(ctx, core.Transaction{UserID: "u", PaymentMethod: core.Cash, SpendingDate: same})
		ids = append(ids, tx.ID)
	}
	got, _ := s.FindTransactions(ctx, "u", ledger.TransactionFilter{OrderBy: ledger.ByCreatedDesc})
	if len(got) != 3 || got[0].ID != ids[2] || got[1].ID != ids[1] || got[2].ID != ids[0] {
		t.Fatalf("ties should list the newest insert first: %+v", got)
	}

	byID, _ := s.FindTransactions(ctx, "u", ledger.TransactionFilter{ID: ids[1]})
	if len(byID) != 1 || byID[0].ID != ids[1] {
		t.Fatalf("id filter: %+v", byID)
	}
	if other, _ := s.FindTransactions(ctx, "someone-else", ledger.TransactionFilter{ID: ids[1]}); len(other) != 0 {
		t.Fatalf("id filter must stay owner scoped: %+v", other)
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.UpsertUserByExternalID(ctx, core.User{ExternalID: "ext", Email: "a@example.com"})
	again, _ := s.UpsertUserByExternalID(ctx, core.User{ExternalID: "ext", Email: "b@example.com"})
	if u.ID != again.ID || again.Email != "b@example.com" {
		t.Fatalf("upsert by external id should update in place: %+v %+v", u, again)
	}
	_, _ = s.CreateTransaction(ctx, core.Transaction{UserID: u.ID, Amount: decimal.NewFromInt(1), SpendingDate: time.Now()})
	if n, _ := s.DeleteUserByExternalID(ctx, "ext"); n != 1 {
		t.Fatal("expected user deletion")
	}
	if _, err := s.FindUserByExternalID(ctx, "ext"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if txs, _ := s.FindTransactions(ctx, u.ID, ledger.TransactionFilter{}); len(txs) != 0 {
		t.Fatalf("user data should be purged: %+v", txs)
	}
}
