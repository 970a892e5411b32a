package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, evt *amqp.LedgerEvent) error
}

// LedgerService validates and stores user mutations, then publishes a
// ledger event for each one that changed something.
type LedgerService struct {
	store       ledger.Store
	events      EventPublisher
	strictPatch bool
}

// CreatedTransaction is a stored transaction plus the upi://pay link the
// client opens for UPI methods.
type CreatedTransaction struct {
	core.Transaction
	PaymentLink string
}

// NewLedgerService wires the service. events may be nil. With strictPatch
// set, partial updates are validated like new records.
func NewLedgerService(store ledger.Store, events EventPublisher, strictPatch bool) *LedgerService {
	return &LedgerService{
		store:       store,
		events:      events,
		strictPatch: strictPatch,
	}
}

func (s *LedgerService) ListTransactions(ctx context.Context, user core.User, f ledger.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.store.FindTransactions(ctx, user.ID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *LedgerService) CreateTransaction(ctx context.Context, user core.User, nt core.NewTransaction) (CreatedTransaction, error) {
	nt.Amount = nt.Amount.Round(2)
	if err := nt.Validate(); err != nil {
		return CreatedTransaction{}, err
	}
	if err := s.checkCategory(ctx, user, nt.CategoryID); err != nil {
		return CreatedTransaction{}, err
	}

	t, err := s.store.CreateTransaction(ctx, core.Transaction{
		UserID:            user.ID,
		Amount:            nt.Amount,
		CategoryID:        nt.CategoryID,
		Description:       strings.TrimSpace(nt.Description),
		PaymentMethod:     nt.PaymentMethod,
		SpendingDate:      nt.SpendingDate,
		ContactIdentifier: strings.TrimSpace(nt.ContactIdentifier),
		RecipientName:     strings.TrimSpace(nt.RecipientName),
	})
	if err != nil {
		return CreatedTransaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.TransactionCreated, user.ID, t.ID, monthOf(t.SpendingDate))

	out := CreatedTransaction{Transaction: t}
	if t.PaymentMethod.IsUPI() {
		out.PaymentLink = core.PaymentLink(t.ContactIdentifier, t.Amount)
	}
	return out, nil
}

// UpdateTransaction applies p to the caller's transaction id. A foreign or
// unknown id affects nothing and is not an error. The update event names the
// month the transaction was in, and a second event names its new month when
// the spending date moves across months.
func (s *LedgerService) UpdateTransaction(ctx context.Context, user core.User, id string, p core.TransactionPatch) (int64, error) {
	if s.strictPatch {
		if err := p.Validate(); err != nil {
			return 0, err
		}
	}
	if p.IsEmpty() {
		return 0, nil
	}
	if p.CategoryID != nil {
		if err := s.checkCategory(ctx, user, *p.CategoryID); err != nil {
			return 0, err
		}
	}

	before, ok, err := s.ownedTransaction(ctx, user, id)
	if err != nil || !ok {
		return 0, err
	}
	n, err := s.store.UpdateTransaction(ctx, id, user.ID, p)
	if err != nil {
		return 0, fmt.Errorf("update transaction %s: %w", id, err)
	}
	if n > 0 {
		month := monthOf(before.SpendingDate)
		s.publish(ctx, amqp.TransactionUpdated, user.ID, id, month)
		if p.SpendingDate != nil {
			if moved := monthOf(*p.SpendingDate); moved != month {
				s.publish(ctx, amqp.TransactionUpdated, user.ID, id, moved)
			}
		}
	}
	return n, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, user core.User, id string) (int64, error) {
	before, ok, err := s.ownedTransaction(ctx, user, id)
	if err != nil || !ok {
		return 0, err
	}
	n, err := s.store.DeleteTransaction(ctx, id, user.ID)
	if err != nil {
		return 0, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n > 0 {
		s.publish(ctx, amqp.TransactionDeleted, user.ID, id, monthOf(before.SpendingDate))
	}
	return n, nil
}

// ownedTransaction loads the caller's transaction id. ok is false when the
// id is empty, unknown or owned by someone else.
func (s *LedgerService) ownedTransaction(ctx context.Context, user core.User, id string) (core.Transaction, bool, error) {
	if id == "" {
		return core.Transaction{}, false, nil
	}
	txs, err := s.store.FindTransactions(ctx, user.ID, ledger.TransactionFilter{ID: id, Limit: 1})
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("look up transaction %s: %w", id, err)
	}
	if len(txs) == 0 {
		return core.Transaction{}, false, nil
	}
	return txs[0], true, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, user core.User) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, user core.User, name, colorHex string) (core.Category, error) {
	c := core.Category{UserID: user.ID, Name: strings.TrimSpace(name), ColorHex: colorHex}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.publish(ctx, amqp.CategoryCreated, user.ID, c.ID, "")
	return c, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, user core.User, id string, p core.CategoryPatch) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	n, err := s.store.UpdateCategory(ctx, id, user.ID, p)
	if err != nil {
		return 0, fmt.Errorf("update category %s: %w", id, err)
	}
	if n > 0 {
		s.publish(ctx, amqp.CategoryUpdated, user.ID, id, "")
	}
	return n, nil
}

// DeleteCategory removes the caller's category. Its transactions stay and
// become uncategorized; its category budgets are removed.
func (s *LedgerService) DeleteCategory(ctx context.Context, user core.User, id string) (int64, error) {
	n, err := s.store.DeleteCategory(ctx, id, user.ID)
	if err != nil {
		return 0, fmt.Errorf("delete category %s: %w", id, err)
	}
	if n > 0 {
		s.publish(ctx, amqp.CategoryDeleted, user.ID, id, "")
	}
	return n, nil
}

func (s *LedgerService) UpsertMonthlyBudget(ctx context.Context, user core.User, month core.MonthKey, amount decimal.Decimal) (core.MonthlyBudget, error) {
	b := core.MonthlyBudget{UserID: user.ID, MonthKey: month, Amount: amount.Round(2)}
	if err := b.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}
	b, err := s.store.UpsertMonthlyBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("upsert monthly budget: %w", err)
	}
	s.publish(ctx, amqp.BudgetUpserted, user.ID, b.ID, string(month))
	return b, nil
}

func (s *LedgerService) UpsertCategoryBudget(ctx context.Context, user core.User, categoryID string, month core.MonthKey, amount decimal.Decimal) (core.CategoryMonthlyBudget, error) {
	b := core.CategoryMonthlyBudget{UserID: user.ID, CategoryID: categoryID, MonthKey: month, Amount: amount.Round(2)}
	if err := b.Validate(); err != nil {
		return core.CategoryMonthlyBudget{}, err
	}
	if err := s.checkCategory(ctx, user, categoryID); err != nil {
		return core.CategoryMonthlyBudget{}, err
	}
	b, err := s.store.UpsertCategoryBudget(ctx, b)
	if err != nil {
		return core.CategoryMonthlyBudget{}, fmt.Errorf("upsert category budget: %w", err)
	}
	s.publish(ctx, amqp.CategoryBudgetUpdated, user.ID, b.ID, string(month))
	return b, nil
}

// checkCategory rejects category ids the user does not own. Empty means
// uncategorized and is always allowed.
func (s *LedgerService) checkCategory(ctx context.Context, user core.User, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && c.UserID != user.ID) {
		return core.ErrUnknownCategory
	}
	if err != nil {
		return fmt.Errorf("look up category: %w", err)
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, eventType, userID, entityID, month string) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event", "type", eventType)
		return
	}
	// The write already succeeded; a lost event only delays the report export.
	if err := s.events.PublishEvent(ctx, amqp.NewLedgerEvent(eventType, userID, entityID, month)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType,
			"user_id", userID,
			"entity_id", entityID,
			"error", err)
	}
}

func monthOf(t time.Time) string {
	return string(core.MonthKeyOf(t.In(time.Local)))
}
