package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
)

const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLiteRepository implements ledger.Store on a single SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}

const transactionColumns = `id, user_id, amount, category_id, description, payment_method,
	spending_date, contact_identifier, recipient_name, created_at, updated_at`

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                       core.Transaction
		amount, method          string
		category                sql.NullString
		spent, created, updated int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &amount, &category, &t.Description, &method,
		&spent, &t.ContactIdentifier, &t.RecipientName, &created, &updated); err != nil {
		return t, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return t, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Amount = d
	t.CategoryID = category.String
	t.PaymentMethod = core.PaymentMethod(method)
	t.SpendingDate = fromMillis(spent)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (r *SQLiteRepository) FindTransactions(ctx context.Context, userID string, f ledger.TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.ID != "" {
		where = append(where, "id = ?")
		args = append(args, f.ID)
	}
	if f.Range != nil {
		where = append(where, "spending_date BETWEEN ? AND ?")
		args = append(args, millis(f.Range.Start), millis(f.Range.End))
	}
	if f.CategoryID != nil {
		if *f.CategoryID == "" {
			where = append(where, "category_id IS NULL")
		} else {
			where = append(where, "category_id = ?")
			args = append(args, *f.CategoryID)
		}
	}
	if f.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, string(f.PaymentMethod))
	}

	q := "SELECT " + transactionColumns + " FROM transactions WHERE " + strings.Join(where, " AND ")
	switch f.OrderBy {
	case ledger.ByCreatedDesc:
		q += " ORDER BY created_at DESC, rowid DESC"
	default:
		q += " ORDER BY spending_date ASC, rowid ASC"
	}
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.now()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount.String(), nullable(t.CategoryID), t.Description, string(t.PaymentMethod),
		millis(t.SpendingDate), t.ContactIdentifier, t.RecipientName, millis(now), millis(now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"amount", t.Amount.String(),
		"method", t.PaymentMethod)
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id, userID string, p core.TransactionPatch) (int64, error) {
	var (
		set  []string
		args []any
	)
	if p.Amount != nil {
		set = append(set, "amount = ?")
		args = append(args, p.Amount.String())
	}
	if p.CategoryID != nil {
		set = append(set, "category_id = ?")
		args = append(args, nullable(*p.CategoryID))
	}
	if p.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *p.Description)
	}
	if p.PaymentMethod != nil {
		set = append(set, "payment_method = ?")
		args = append(args, string(*p.PaymentMethod))
	}
	if p.SpendingDate != nil {
		set = append(set, "spending_date = ?")
		args = append(args, millis(*p.SpendingDate))
	}
	if p.ContactIdentifier != nil {
		set = append(set, "contact_identifier = ?")
		args = append(args, *p.ContactIdentifier)
	}
	if p.RecipientName != nil {
		set = append(set, "recipient_name = ?")
		args = append(args, *p.RecipientName)
	}
	set = append(set, "updated_at = ?")
	args = append(args, millis(r.now()), id, userID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	return res.RowsAffected()
}

func scanCategory(row scanner) (core.Category, error) {
	var (
		c       core.Category
		created int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.ColorHex, &created); err != nil {
		return c, err
	}
	c.CreatedAt = fromMillis(created)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, name, color_hex, created_at
		FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, color_hex, created_at FROM categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (id, user_id, name, color_hex, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.UserID, c.Name, c.ColorHex, millis(c.CreatedAt))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id, userID string, p core.CategoryPatch) (int64, error) {
	var (
		set  []string
		args []any
	)
	if p.Name != nil {
		set = append(set, "name = ?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.ColorHex != nil {
		set = append(set, "color_hex = ?")
		args = append(args, *p.ColorHex)
	}
	if len(set) == 0 {
		// Nothing to write; still report whether the caller owns the row.
		var n int64
		err := r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM categories WHERE id = ? AND user_id = ?", id, userID).Scan(&n)
		return n, err
	}
	args = append(args, id, userID)
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("update category: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete category: %w", err)
	}
	return res.RowsAffected()
}

func scanMonthlyBudget(row scanner) (core.MonthlyBudget, error) {
	var (
		b       core.MonthlyBudget
		month   string
		amount  string
		updated int64
	)
	if err := row.Scan(&b.ID, &b.UserID, &month, &amount, &updated); err != nil {
		return b, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return b, fmt.Errorf("parse budget %q: %w", amount, err)
	}
	b.MonthKey = core.MonthKey(month)
	b.Amount = d
	b.UpdatedAt = fromMillis(updated)
	return b, nil
}

func (r *SQLiteRepository) GetMonthlyBudget(ctx context.Context, userID string, month core.MonthKey) (core.MonthlyBudget, error) {
	b, err := scanMonthlyBudget(r.db.QueryRowContext(ctx, `SELECT id, user_id, month_key, amount, updated_at
		FROM monthly_budgets WHERE user_id = ? AND month_key = ?`, userID, string(month)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudget{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("get monthly budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpsertMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	out, err := scanMonthlyBudget(r.db.QueryRowContext(ctx, `INSERT INTO monthly_budgets (id, user_id, month_key, amount, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, month_key) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
		RETURNING id, user_id, month_key, amount, updated_at`,
		b.ID, b.UserID, string(b.MonthKey), b.Amount.String(), millis(r.now())))
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("upsert monthly budget: %w", err)
	}
	return out, nil
}

func scanCategoryBudget(row scanner) (core.CategoryMonthlyBudget, error) {
	var (
		b       core.CategoryMonthlyBudget
		month   string
		amount  string
		updated int64
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &month, &amount, &updated); err != nil {
		return b, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return b, fmt.Errorf("parse budget %q: %w", amount, err)
	}
	b.MonthKey = core.MonthKey(month)
	b.Amount = d
	b.UpdatedAt = fromMillis(updated)
	return b, nil
}

func (r *SQLiteRepository) ListCategoryBudgets(ctx context.Context, userID string, month core.MonthKey) ([]core.CategoryMonthlyBudget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, category_id, month_key, amount, updated_at
		FROM category_monthly_budgets WHERE user_id = ? AND month_key = ? ORDER BY category_id`,
		userID, string(month))
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryMonthlyBudget
	for rows.Next() {
		b, err := scanCategoryBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertCategoryBudget(ctx context.Context, b core.CategoryMonthlyBudget) (core.CategoryMonthlyBudget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	out, err := scanCategoryBudget(r.db.QueryRowContext(ctx, `INSERT INTO category_monthly_budgets
		(id, user_id, category_id, month_key, amount, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, month_key) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
		RETURNING id, user_id, category_id, month_key, amount, updated_at`,
		b.ID, b.UserID, b.CategoryID, string(b.MonthKey), b.Amount.String(), millis(r.now())))
	if err != nil {
		return core.CategoryMonthlyBudget{}, fmt.Errorf("upsert category budget: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) FindUserByExternalID(ctx context.Context, externalID string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, external_id, email, name FROM users WHERE external_id = ?", externalID).
		Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpsertUserByExternalID(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	var out core.User
	err := r.db.QueryRowContext(ctx, `INSERT INTO users (id, external_id, email, name) VALUES (?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET email = excluded.email, name = excluded.name
		RETURNING id, external_id, email, name`,
		u.ID, u.ExternalID, u.Email, u.Name).
		Scan(&out.ID, &out.ExternalID, &out.Email, &out.Name)
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

// DeleteUserByExternalID removes the user; foreign keys cascade to the
// rest of their ledger.
func (r *SQLiteRepository) DeleteUserByExternalID(ctx context.Context, externalID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE external_id = ?", externalID)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, external_id, email, name FROM users ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
