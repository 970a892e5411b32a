package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

const DefaultRecentLimit = 10

// ReportOptions tunes report presentation.
type ReportOptions struct {
	DefaultColor  string
	RecentLimit   int
	CategoryLimit int
	// Location is used to resolve month ranges; nil means time.Local.
	Location *time.Location
}

// ReportService computes spending summaries and budget reconciliation on
// demand. Nothing is cached; every call reads the store.
type ReportService struct {
	store ledger.Store
	opts  ReportOptions
}

func NewReportService(store ledger.Store, opts ReportOptions) *ReportService {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	if opts.CategoryLimit <= 0 {
		opts.CategoryLimit = core.DefaultCategoryLimit
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &ReportService{store: store, opts: opts}
}

func (s *ReportService) monthRange(month core.MonthKey) (core.DateRange, error) {
	if err := month.Validate(); err != nil {
		return core.DateRange{}, err
	}
	return month.Range(s.opts.Location), nil
}

func (s *ReportService) monthTransactions(ctx context.Context, userID string, month core.MonthKey) ([]core.Transaction, core.DateRange, error) {
	r, err := s.monthRange(month)
	if err != nil {
		return nil, r, err
	}
	txs, err := s.store.FindTransactions(ctx, userID, ledger.InMonth(r))
	if err != nil {
		return nil, r, fmt.Errorf("fetch transactions for %s: %w", month, err)
	}
	return txs, r, nil
}

// TotalSpending sums the user's transactions dated inside month.
func (s *ReportService) TotalSpending(ctx context.Context, userID string, month core.MonthKey) (decimal.Decimal, error) {
	txs, r, err := s.monthTransactions(ctx, userID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return core.SumSpending(txs, r), nil
}

// SpendingByCategory ranks the month's spending per category. limit <= 0
// falls back to the configured category limit.
func (s *ReportService) SpendingByCategory(ctx context.Context, userID string, month core.MonthKey, limit int) ([]core.CategoryAmount, error) {
	txs, _, err := s.monthTransactions(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.CategoryLimit
	}
	return core.RankByCategory(txs, limit), nil
}

// RecentByMethod returns the user's latest transactions paid with method,
// newest first.
func (s *ReportService) RecentByMethod(ctx context.Context, userID string, method core.PaymentMethod, limit int) ([]core.Transaction, error) {
	if err := method.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.RecentLimit
	}
	txs, err := s.store.FindTransactions(ctx, userID, ledger.TransactionFilter{
		PaymentMethod: method,
		OrderBy:       ledger.ByCreatedDesc,
		Limit:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch recent %s transactions: %w", method, err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// ResolveCategoryLabel looks up categoryID for display. An empty or unknown
// id resolves to the uncategorized label.
func (s *ReportService) ResolveCategoryLabel(ctx context.Context, categoryID, defaultColor string) (string, string, error) {
	if categoryID == "" {
		name, color := core.ResolveCategoryLabel(nil, defaultColor)
		return name, color, nil
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if errors.Is(err, core.ErrNotFound) {
		name, color := core.ResolveCategoryLabel(nil, defaultColor)
		return name, color, nil
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve category %s: %w", categoryID, err)
	}
	name, color := core.ResolveCategoryLabel(&c, defaultColor)
	return name, color, nil
}

func (s *ReportService) MonthlyBudgetStatus(ctx context.Context, userID string, month core.MonthKey) (core.BudgetStatus, error) {
	txs, r, err := s.monthTransactions(ctx, userID, month)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	budget, err := s.monthlyBudget(ctx, userID, month)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return core.Reconcile(core.SumSpending(txs, r), budget), nil
}

// CategoryBudgetStatuses reconciles every category budget configured for
// month, including categories without spending.
func (s *ReportService) CategoryBudgetStatuses(ctx context.Context, userID string, month core.MonthKey) ([]core.CategoryBudgetStatus, error) {
	txs, _, err := s.monthTransactions(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	budgets, err := s.store.ListCategoryBudgets(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("fetch category budgets: %w", err)
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return s.categoryStatuses(txs, budgets, cats), nil
}

// SpendingReport is the month total plus the resolved category ranking.
func (s *ReportService) SpendingReport(ctx context.Context, userID string, month core.MonthKey) (core.SpendingReport, error) {
	txs, r, err := s.monthTransactions(ctx, userID, month)
	if err != nil {
		return core.SpendingReport{}, err
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return core.SpendingReport{}, fmt.Errorf("fetch categories: %w", err)
	}
	return s.report(month, txs, r, cats), nil
}

// Dashboard assembles the monthly overview. The independent reads run
// concurrently and the first failure cancels the rest.
func (s *ReportService) Dashboard(ctx context.Context, userID string, month core.MonthKey) (core.Dashboard, error) {
	r, err := s.monthRange(month)
	if err != nil {
		return core.Dashboard{}, err
	}

	var (
		txs     []core.Transaction
		cats    []core.Category
		recent  []core.Transaction
		budget  decimal.NullDecimal
		budgets []core.CategoryMonthlyBudget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.FindTransactions(gctx, userID, ledger.InMonth(r))
		if err != nil {
			return fmt.Errorf("fetch transactions for %s: %w", month, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = s.RecentByMethod(gctx, userID, core.UPIPhone, s.opts.RecentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		budget, err = s.monthlyBudget(gctx, userID, month)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListCategoryBudgets(gctx, userID, month)
		if err != nil {
			return fmt.Errorf("fetch category budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}

	if cats == nil {
		cats = []core.Category{}
	}
	report := s.report(month, txs, r, cats)
	return core.Dashboard{
		Report:          report,
		Budget:          core.Reconcile(report.Total, budget),
		CategoryBudgets: s.categoryStatuses(txs, budgets, cats),
		Recent:          recent,
		Categories:      cats,
	}, nil
}

func (s *ReportService) monthlyBudget(ctx context.Context, userID string, month core.MonthKey) (decimal.NullDecimal, error) {
	b, err := s.store.GetMonthlyBudget(ctx, userID, month)
	if errors.Is(err, core.ErrNotFound) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("fetch monthly budget: %w", err)
	}
	return core.BudgetOf(&b.Amount), nil
}

func (s *ReportService) report(month core.MonthKey, txs []core.Transaction, r core.DateRange, cats []core.Category) core.SpendingReport {
	byID := indexCategories(cats)
	ranked := core.RankByCategory(txs, s.opts.CategoryLimit)
	out := core.SpendingReport{
		Month:      month,
		Total:      core.SumSpending(txs, r),
		ByCategory: make([]core.CategorySpending, 0, len(ranked)),
	}
	for i, ca := range ranked {
		name, color := core.ResolveCategoryLabel(byID[ca.CategoryID], core.PaletteColor(i))
		out.ByCategory = append(out.ByCategory, core.CategorySpending{
			CategoryID: ca.CategoryID,
			Name:       name,
			ColorHex:   color,
			Amount:     ca.Amount,
		})
	}
	return out
}

func (s *ReportService) categoryStatuses(txs []core.Transaction, budgets []core.CategoryMonthlyBudget, cats []core.Category) []core.CategoryBudgetStatus {
	byID := indexCategories(cats)
	spent := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.CategoryID == "" {
			continue
		}
		spent[t.CategoryID] = spent[t.CategoryID].Add(t.Amount)
	}

	out := make([]core.CategoryBudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		name, color := core.ResolveCategoryLabel(byID[b.CategoryID], s.opts.DefaultColor)
		out = append(out, core.CategoryBudgetStatus{
			CategoryID: b.CategoryID,
			Name:       name,
			ColorHex:   color,
			Status:     core.Reconcile(spent[b.CategoryID], core.BudgetOf(&b.Amount)),
		})
	}
	// Same order as ListCategories: name, case-insensitive.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

func indexCategories(cats []core.Category) map[string]*core.Category {
	byID := make(map[string]*core.Category, len(cats))
	for i := range cats {
		byID[cats[i].ID] = &cats[i]
	}
	return byID
}
