package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

// Store keeps the whole ledger in process memory. A single mutex makes every
// upsert atomic.
type Store struct {
	mu              sync.Mutex
	now             func() time.Time
	users           []core.User
	categories      []core.Category
	transactions    []core.Transaction
	budgets         map[budgetKey]core.MonthlyBudget
	categoryBudgets map[categoryBudgetKey]core.CategoryMonthlyBudget
}

type budgetKey struct {
	userID string
	month  core.MonthKey
}

type categoryBudgetKey struct {
	userID     string
	categoryID string
	month      core.MonthKey
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:             time.Now,
		budgets:         make(map[budgetKey]core.MonthlyBudget),
		categoryBudgets: make(map[categoryBudgetKey]core.CategoryMonthlyBudget),
	}
}

// WithClock replaces the time source used for CreatedAt/UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) FindTransactions(_ context.Context, userID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	switch f.OrderBy {
	case ledger.ByCreatedDesc:
		// Equal CreatedAt keeps the later insert first.
		slices.Reverse(out)
		out = core.RecentFirst(out, 0)
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SpendingDate.Before(out[j].SpendingDate)
		})
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id, userID string, p core.TransactionPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		t := &s.transactions[i]
		if t.ID == id && t.UserID == userID {
			p.Apply(t)
			t.UpdatedAt = s.now()
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id && t.UserID == userID {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.now()
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, id, userID string, p core.CategoryPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		c := &s.categories[i]
		if c.ID == id && c.UserID == userID {
			p.Apply(c)
			return 1, nil
		}
	}
	return 0, nil
}

// DeleteCategory mirrors the SQL schema: transactions keep existing but lose
// their category, and the category's budgets go with it.
func (s *Store) DeleteCategory(_ context.Context, id, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, nil
	}
	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)
	for i := range s.transactions {
		if s.transactions[i].CategoryID == id {
			s.transactions[i].CategoryID = ""
		}
	}
	for k := range s.categoryBudgets {
		if k.categoryID == id {
			delete(s.categoryBudgets, k)
		}
	}
	return 1, nil
}

func (s *Store) GetMonthlyBudget(_ context.Context, userID string, month core.MonthKey) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetKey{userID, month}]
	if !ok {
		return core.MonthlyBudget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) UpsertMonthlyBudget(_ context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := budgetKey{b.UserID, b.MonthKey}
	if cur, ok := s.budgets[key]; ok {
		b.ID = cur.ID
	} else if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.UpdatedAt = s.now()
	s.budgets[key] = b
	return b, nil
}

func (s *Store) ListCategoryBudgets(_ context.Context, userID string, month core.MonthKey) ([]core.CategoryMonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryMonthlyBudget
	for k, b := range s.categoryBudgets {
		if k.userID == userID && k.month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) UpsertCategoryBudget(_ context.Context, b core.CategoryMonthlyBudget) (core.CategoryMonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := categoryBudgetKey{b.UserID, b.CategoryID, b.MonthKey}
	if cur, ok := s.categoryBudgets[key]; ok {
		b.ID = cur.ID
	} else if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.UpdatedAt = s.now()
	s.categoryBudgets[key] = b
	return b, nil
}

// BudgetCount reports how many monthly budget records exist.
func (s *Store) BudgetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.budgets)
}

func (s *Store) FindUserByExternalID(_ context.Context, externalID string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) UpsertUserByExternalID(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ExternalID == u.ExternalID {
			s.users[i].Email = u.Email
			s.users[i].Name = u.Name
			return s.users[i], nil
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) DeleteUserByExternalID(_ context.Context, externalID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ExternalID == externalID {
			s.users = append(s.users[:i], s.users[i+1:]...)
			s.purgeUser(u.ID)
			return 1, nil
		}
	}
	return 0, nil
}

// purgeUser drops everything owned by userID. Callers hold s.mu.
func (s *Store) purgeUser(userID string) {
	txs := s.transactions[:0]
	for _, t := range s.transactions {
		if t.UserID != userID {
			txs = append(txs, t)
		}
	}
	s.transactions = txs
	cats := s.categories[:0]
	for _, c := range s.categories {
		if c.UserID != userID {
			cats = append(cats, c)
		}
	}
	s.categories = cats
	for k := range s.budgets {
		if k.userID == userID {
			delete(s.budgets, k)
		}
	}
	for k := range s.categoryBudgets {
		if k.userID == userID {
			delete(s.categoryBudgets, k)
		}
	}
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.User(nil), s.users...), nil
}
