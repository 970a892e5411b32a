package ledger

import (
	"context"

	"kharcha/internal/core"
)

// Ports for outbound adapters. Mutations are always scoped by owner: a
// foreign or unknown id affects zero rows and returns no error.
type (
	TransactionStore interface {
		FindTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id, userID string, p core.TransactionPatch) (affected int64, err error)
		DeleteTransaction(ctx context.Context, id, userID string) (affected int64, err error)
	}

	CategoryStore interface {
		// ListCategories returns the user's categories ordered by name.
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		// GetCategory returns core.ErrNotFound when the id does not exist.
		GetCategory(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, id, userID string, p core.CategoryPatch) (affected int64, err error)
		DeleteCategory(ctx context.Context, id, userID string) (affected int64, err error)
	}

	// BudgetStore upserts must be a single atomic create-or-overwrite.
	BudgetStore interface {
		// GetMonthlyBudget returns core.ErrNotFound when none is configured.
		GetMonthlyBudget(ctx context.Context, userID string, month core.MonthKey) (core.MonthlyBudget, error)
		UpsertMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error)
		ListCategoryBudgets(ctx context.Context, userID string, month core.MonthKey) ([]core.CategoryMonthlyBudget, error)
		UpsertCategoryBudget(ctx context.Context, b core.CategoryMonthlyBudget) (core.CategoryMonthlyBudget, error)
	}

	UserStore interface {
		// FindUserByExternalID returns core.ErrNotFound for unknown identities.
		FindUserByExternalID(ctx context.Context, externalID string) (core.User, error)
		UpsertUserByExternalID(ctx context.Context, u core.User) (core.User, error)
		DeleteUserByExternalID(ctx context.Context, externalID string) (affected int64, err error)
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	// Store is the full persistence surface a backend provides.
	Store interface {
		TransactionStore
		CategoryStore
		BudgetStore
		UserStore
	}
)
