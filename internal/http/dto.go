package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
	"kharcha/internal/services"
)

// Amounts travel as strings with two decimals so clients never see a
// binary float.

type transactionDTO struct {
	ID                string `json:"id"`
	Amount            string `json:"amount"`
	CategoryID        string `json:"category_id,omitempty"`
	Description       string `json:"description"`
	PaymentMethod     string `json:"payment_method"`
	SpendingDate      string `json:"spending_date"`
	ContactIdentifier string `json:"contact_identifier,omitempty"`
	RecipientName     string `json:"recipient_name,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	PaymentLink       string `json:"payment_link,omitempty"`
}

type categoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ColorHex  string `json:"color_hex,omitempty"`
	CreatedAt string `json:"created_at"`
}

type categorySpendingDTO struct {
	CategoryID string `json:"category_id,omitempty"`
	Name       string `json:"name"`
	ColorHex   string `json:"color_hex"`
	Amount     string `json:"amount"`
}

type budgetStatusDTO struct {
	Spent           string  `json:"spent"`
	Budget          *string `json:"budget"`
	Configured      bool    `json:"configured"`
	Remaining       string  `json:"remaining"`
	Overspent       string  `json:"overspent"`
	PercentConsumed int64   `json:"percent_consumed"`
}

type categoryBudgetStatusDTO struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	ColorHex   string          `json:"color_hex"`
	Status     budgetStatusDTO `json:"status"`
}

type spendingDTO struct {
	Month string `json:"month"`
	Total string `json:"total"`
}

type budgetStatusesDTO struct {
	Month      string                    `json:"month"`
	Monthly    budgetStatusDTO           `json:"monthly"`
	Categories []categoryBudgetStatusDTO `json:"categories"`
}

type dashboardDTO struct {
	Month           string                    `json:"month"`
	Total           string                    `json:"total"`
	ByCategory      []categorySpendingDTO     `json:"by_category"`
	Budget          budgetStatusDTO           `json:"budget"`
	CategoryBudgets []categoryBudgetStatusDTO `json:"category_budgets"`
	Recent          []transactionDTO          `json:"recent"`
	Categories      []categoryDTO             `json:"categories"`
}

type monthlyBudgetDTO struct {
	ID        string `json:"id"`
	Month     string `json:"month"`
	Amount    string `json:"amount"`
	UpdatedAt string `json:"updated_at"`
}

type categoryBudgetDTO struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Month      string `json:"month"`
	Amount     string `json:"amount"`
	UpdatedAt  string `json:"updated_at"`
}

// Request bodies. Amount accepts a JSON number or a numeric string.

type createTransactionRequest struct {
	Amount            json.Number `json:"amount"`
	CategoryID        string      `json:"category_id"`
	Description       string      `json:"description"`
	PaymentMethod     string      `json:"payment_method"`
	SpendingDate      string      `json:"spending_date"`
	ContactIdentifier string      `json:"contact_identifier"`
	RecipientName     string      `json:"recipient_name"`
	// QRPayload is the decoded text of a scanned UPI QR code.
	QRPayload string `json:"qr_payload"`
}

type updateTransactionRequest struct {
	Amount            *json.Number `json:"amount"`
	CategoryID        *string      `json:"category_id"`
	Description       *string      `json:"description"`
	PaymentMethod     *string      `json:"payment_method"`
	SpendingDate      *string      `json:"spending_date"`
	ContactIdentifier *string      `json:"contact_identifier"`
	RecipientName     *string      `json:"recipient_name"`
}

type createCategoryRequest struct {
	Name     string `json:"name"`
	ColorHex string `json:"color_hex"`
}

type updateCategoryRequest struct {
	Name     *string `json:"name"`
	ColorHex *string `json:"color_hex"`
}

type monthlyBudgetRequest struct {
	Month  string      `json:"month"`
	Amount json.Number `json:"amount"`
}

type categoryBudgetRequest struct {
	CategoryID string      `json:"category_id"`
	Month      string      `json:"month"`
	Amount     json.Number `json:"amount"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:                t.ID,
		Amount:            money(t.Amount),
		CategoryID:        t.CategoryID,
		Description:       t.Description,
		PaymentMethod:     string(t.PaymentMethod),
		SpendingDate:      timestamp(t.SpendingDate),
		ContactIdentifier: t.ContactIdentifier,
		RecipientName:     t.RecipientName,
		CreatedAt:         timestamp(t.CreatedAt),
		UpdatedAt:         timestamp(t.UpdatedAt),
	}
}

func toCreatedTransactionDTO(t services.CreatedTransaction) transactionDTO {
	dto := toTransactionDTO(t.Transaction)
	dto.PaymentLink = t.PaymentLink
	return dto
}

func toTransactionDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionDTO(t))
	}
	return out
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, ColorHex: c.ColorHex, CreatedAt: timestamp(c.CreatedAt)}
}

func toCategoryDTOs(cats []core.Category) []categoryDTO {
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryDTO(c))
	}
	return out
}

func toBudgetStatusDTO(s core.BudgetStatus) budgetStatusDTO {
	dto := budgetStatusDTO{
		Spent:           money(s.Spent),
		Configured:      s.Configured,
		Remaining:       money(s.Remaining),
		Overspent:       money(s.Overspent),
		PercentConsumed: s.PercentConsumed,
	}
	if s.Configured {
		b := money(s.Budget)
		dto.Budget = &b
	}
	return dto
}

func toCategoryBudgetStatusDTOs(statuses []core.CategoryBudgetStatus) []categoryBudgetStatusDTO {
	out := make([]categoryBudgetStatusDTO, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, categoryBudgetStatusDTO{
			CategoryID: s.CategoryID,
			Name:       s.Name,
			ColorHex:   s.ColorHex,
			Status:     toBudgetStatusDTO(s.Status),
		})
	}
	return out
}

func toCategorySpendingDTOs(rows []core.CategorySpending) []categorySpendingDTO {
	out := make([]categorySpendingDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, categorySpendingDTO{
			CategoryID: r.CategoryID,
			Name:       r.Name,
			ColorHex:   r.ColorHex,
			Amount:     money(r.Amount),
		})
	}
	return out
}

func toDashboardDTO(d core.Dashboard) dashboardDTO {
	return dashboardDTO{
		Month:           string(d.Report.Month),
		Total:           money(d.Report.Total),
		ByCategory:      toCategorySpendingDTOs(d.Report.ByCategory),
		Budget:          toBudgetStatusDTO(d.Budget),
		CategoryBudgets: toCategoryBudgetStatusDTOs(d.CategoryBudgets),
		Recent:          toTransactionDTOs(d.Recent),
		Categories:      toCategoryDTOs(d.Categories),
	}
}
