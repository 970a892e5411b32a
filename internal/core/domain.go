package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	UPIPhone PaymentMethod = "UPI_PHONE"
	UPIQR    PaymentMethod = "UPI_QR"
	Cash     PaymentMethod = "CASH"
)

type (
	PaymentMethod string

	User struct {
		ID         string
		ExternalID string // identity provider subject
		Email      string
		Name       string
	}

	Transaction struct {
		ID                string
		UserID            string
		Amount            decimal.Decimal
		CategoryID        string // empty when uncategorized
		Description       string
		PaymentMethod     PaymentMethod
		SpendingDate      time.Time
		ContactIdentifier string // phone number or VPA, may be empty for cash
		RecipientName     string
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// NewTransaction is the caller supplied part of a transaction.
	NewTransaction struct {
		Amount            decimal.Decimal
		CategoryID        string
		Description       string
		PaymentMethod     PaymentMethod
		SpendingDate      time.Time
		ContactIdentifier string
		RecipientName     string
	}

	// TransactionPatch holds the fields of a partial update; nil fields are left untouched.
	TransactionPatch struct {
		Amount            *decimal.Decimal
		CategoryID        *string
		Description       *string
		PaymentMethod     *PaymentMethod
		SpendingDate      *time.Time
		ContactIdentifier *string
		RecipientName     *string
	}

	Category struct {
		ID        string
		UserID    string
		Name      string
		ColorHex  string
		CreatedAt time.Time
	}

	CategoryPatch struct {
		Name     *string
		ColorHex *string
	}

	MonthlyBudget struct {
		ID        string
		UserID    string
		MonthKey  MonthKey
		Amount    decimal.Decimal
		UpdatedAt time.Time
	}

	CategoryMonthlyBudget struct {
		ID         string
		UserID     string
		CategoryID string
		MonthKey   MonthKey
		Amount     decimal.Decimal
		UpdatedAt  time.Time
	}
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotProvisioned = errors.New("user not provisioned")
	ErrNotFound           = errors.New("not found")

	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: invalid payment method", ErrValidation)
	ErrMissingContact       = fmt.Errorf("%w: contact identifier required for UPI payments", ErrValidation)
	ErrMissingSpendingDate  = fmt.Errorf("%w: spending date required", ErrValidation)
	ErrEmptyCategoryName    = fmt.Errorf("%w: empty category name", ErrValidation)
	ErrInvalidColor         = fmt.Errorf("%w: color must be #RGB or #RRGGBB", ErrValidation)
	ErrMissingCategory      = fmt.Errorf("%w: category id required", ErrValidation)
	ErrMissingUserID        = fmt.Errorf("%w: user id required", ErrValidation)
	ErrUnknownCategory      = fmt.Errorf("%w: unknown category", ErrValidation)
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func (m PaymentMethod) Validate() error {
	switch m {
	case UPIPhone, UPIQR, Cash:
		return nil
	default:
		return ErrInvalidPaymentMethod
	}
}

// IsUPI reports whether the method settles over the UPI rail.
func (m PaymentMethod) IsUPI() bool {
	return m == UPIPhone || m == UPIQR
}

func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (t NewTransaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.PaymentMethod.Validate(); err != nil {
		return err
	}
	if t.SpendingDate.IsZero() {
		return ErrMissingSpendingDate
	}
	if t.PaymentMethod.IsUPI() && strings.TrimSpace(t.ContactIdentifier) == "" {
		return ErrMissingContact
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (p TransactionPatch) Validate() error {
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.PaymentMethod != nil {
		if err := p.PaymentMethod.Validate(); err != nil {
			return err
		}
	}
	if p.SpendingDate != nil && p.SpendingDate.IsZero() {
		return ErrMissingSpendingDate
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.CategoryID == nil && p.Description == nil &&
		p.PaymentMethod == nil && p.SpendingDate == nil &&
		p.ContactIdentifier == nil && p.RecipientName == nil
}

// Apply copies the patched fields onto t.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.SpendingDate != nil {
		t.SpendingDate = *p.SpendingDate
	}
	if p.ContactIdentifier != nil {
		t.ContactIdentifier = *p.ContactIdentifier
	}
	if p.RecipientName != nil {
		t.RecipientName = *p.RecipientName
	}
}

func ValidateColor(c string) error {
	if c == "" {
		return nil
	}
	if !colorPattern.MatchString(c) {
		return ErrInvalidColor
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return ValidateColor(c.ColorHex)
}

func (p CategoryPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyCategoryName
	}
	if p.ColorHex != nil {
		return ValidateColor(*p.ColorHex)
	}
	return nil
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.ColorHex != nil {
		c.ColorHex = *p.ColorHex
	}
}

func (b MonthlyBudget) Validate() error {
	if b.UserID == "" {
		return ErrMissingUserID
	}
	if _, err := ParseMonthKey(string(b.MonthKey)); err != nil {
		return err
	}
	return ValidateAmount(b.Amount)
}

func (b CategoryMonthlyBudget) Validate() error {
	if b.UserID == "" {
		return ErrMissingUserID
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrMissingCategory
	}
	if _, err := ParseMonthKey(string(b.MonthKey)); err != nil {
		return err
	}
	return ValidateAmount(b.Amount)
}
