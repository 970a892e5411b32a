package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "kharcha.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, external string) core.User {
	t.Helper()
	u, err := repo.UpsertUserByExternalID(context.Background(), core.User{ExternalID: external, Email: external + "@example.com"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestSQLiteMonthAggregation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "ext-a")

	day := func(d int) time.Time { return time.Date(2025, time.March, d, 12, 0, 0, 0, time.Local) }
	for i, amt := range []string{"100.50", "250.25", "49.25"} {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:        u.ID,
			Amount:        decimal.RequireFromString(amt),
			PaymentMethod: core.Cash,
			SpendingDate:  day(i + 1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	_, _ = repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, Amount: decimal.NewFromInt(999), PaymentMethod: core.Cash,
		SpendingDate: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.Local),
	})

	r, _ := core.RangeOf("2025-03")
	txs, err := repo.FindTransactions(ctx, u.ID, ledger.InMonth(r))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := core.SumSpending(txs, r); !got.Equal(decimal.RequireFromString("400")) {
		t.Fatalf("sum = %s, want 400.00", got)
	}
	if !txs[0].SpendingDate.Before(txs[1].SpendingDate) {
		t.Fatal("expected ascending spending date order")
	}
}

func TestSQLiteOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := seedUser(t, repo, "ext-a")
	b := seedUser(t, repo, "ext-b")

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: b.ID, Amount: decimal.NewFromInt(100), PaymentMethod: core.UPIPhone,
		ContactIdentifier: "9876543210", SpendingDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amt := decimal.NewFromInt(1)
	if n, err := repo.UpdateTransaction(ctx, tx.ID, a.ID, core.TransactionPatch{Amount: &amt}); err != nil || n != 0 {
		t.Fatalf("foreign update: n=%d err=%v", n, err)
	}
	if n, err := repo.DeleteTransaction(ctx, tx.ID, a.ID); err != nil || n != 0 {
		t.Fatalf("foreign delete: n=%d err=%v", n, err)
	}
	if n, err := repo.DeleteTransaction(ctx, "no-such-id", a.ID); err != nil || n != 0 {
		t.Fatalf("unknown delete: n=%d err=%v", n, err)
	}

	got, _ := repo.FindTransactions(ctx, b.ID, ledger.TransactionFilter{})
	if len(got) != 1 || !got[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("owner's transaction changed: %+v", got)
	}
	if mine, _ := repo.FindTransactions(ctx, a.ID, ledger.TransactionFilter{}); len(mine) != 0 {
		t.Fatalf("other user's transactions leaked: %+v", mine)
	}

	if byID, _ := repo.FindTransactions(ctx, a.ID, ledger.TransactionFilter{ID: tx.ID}); len(byID) != 0 {
		t.Fatalf("id lookup leaked across users: %+v", byID)
	}
	if byID, _ := repo.FindTransactions(ctx, b.ID, ledger.TransactionFilter{ID: tx.ID}); len(byID) != 1 || byID[0].ID != tx.ID {
		t.Fatalf("owner id lookup: %+v", byID)
	}

	if n, _ := repo.UpdateTransaction(ctx, tx.ID, b.ID, core.TransactionPatch{Amount: &amt}); n != 1 {
		t.Fatalf("owner update affected %d", n)
	}
}

func TestSQLiteBudgetUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "ext-a")

	b := core.MonthlyBudget{UserID: u.ID, MonthKey: "2025-04", Amount: decimal.NewFromInt(1000)}
	first, err := repo.UpsertMonthlyBudget(ctx, b)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b.Amount = decimal.NewFromInt(1500)
	second, err := repo.UpsertMonthlyBudget(ctx, b)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID || !second.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("upsert must overwrite in place: %+v %+v", first, second)
	}

	var n int
	if err := repo.db.QueryRow("SELECT COUNT(*) FROM monthly_budgets").Scan(&n); err != nil || n != 1 {
		t.Fatalf("budget rows = %d err=%v", n, err)
	}
	if _, err := repo.GetMonthlyBudget(ctx, u.ID, "2025-05"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "ext-a")

	food, _ := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "food", ColorHex: "#f00"})
	_, _ = repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Bills"})
	cats, err := repo.ListCategories(ctx, u.ID)
	if err != nil || len(cats) != 2 || cats[0].Name != "Bills" {
		t.Fatalf("categories should be name ordered: %+v err=%v", cats, err)
	}

	tx, _ := repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, CategoryID: food.ID, Amount: decimal.NewFromInt(20),
		PaymentMethod: core.Cash, SpendingDate: time.Now(),
	})
	_, err = repo.UpsertCategoryBudget(ctx, core.CategoryMonthlyBudget{
		UserID: u.ID, CategoryID: food.ID, MonthKey: "2025-01", Amount: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("category budget: %v", err)
	}

	name := "Groceries"
	if n, _ := repo.UpdateCategory(ctx, food.ID, u.ID, core.CategoryPatch{Name: &name}); n != 1 {
		t.Fatalf("rename affected %d", n)
	}
	if c, _ := repo.GetCategory(ctx, food.ID); c.Name != "Groceries" {
		t.Fatalf("rename not stored: %+v", c)
	}

	if n, _ := repo.DeleteCategory(ctx, food.ID, u.ID); n != 1 {
		t.Fatalf("delete affected %d", n)
	}
	uncategorized := ""
	txs, _ := repo.FindTransactions(ctx, u.ID, ledger.TransactionFilter{CategoryID: &uncategorized})
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Fatalf("transaction should survive as uncategorized: %+v", txs)
	}
	if bs, _ := repo.ListCategoryBudgets(ctx, u.ID, "2025-01"); len(bs) != 0 {
		t.Fatalf("category budgets should cascade: %+v", bs)
	}
	if _, err := repo.GetCategory(ctx, food.ID); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "ext-a")
	_, _ = repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, Amount: decimal.NewFromInt(1), PaymentMethod: core.Cash, SpendingDate: time.Now(),
	})

	if n, err := repo.DeleteUserByExternalID(ctx, "ext-a"); err != nil || n != 1 {
		t.Fatalf("delete user: n=%d err=%v", n, err)
	}
	if txs, _ := repo.FindTransactions(ctx, u.ID, ledger.TransactionFilter{}); len(txs) != 0 {
		t.Fatalf("transactions should cascade: %+v", txs)
	}
	if users, _ := repo.ListUsers(ctx); len(users) != 0 {
		t.Fatalf("users left: %+v", users)
	}
}
