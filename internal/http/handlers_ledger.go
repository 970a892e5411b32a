package http

import (
	"net/http"
	"strings"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/log"
)

// handleListTransactions filters by ?month=, ?method= and ?category=. An
// empty category value selects uncategorized transactions; without month
// every transaction is listed.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, user core.User) {
	q := r.URL.Query()
	var f ledger.TransactionFilter

	if strings.TrimSpace(q.Get("month")) != "" {
		month, err := monthParam(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f = ledger.InMonth(month.Range(time.Local))
	}
	method, err := methodParam(r, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f.PaymentMethod = method
	if q.Has("category") {
		category := strings.TrimSpace(q.Get("category"))
		f.CategoryID = &category
	}

	txs, err := s.ledger.ListTransactions(r.Context(), user, f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// handleRecentTransactions lists the latest transactions of one method,
// UPI_PHONE unless ?method= says otherwise.
func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request, user core.User) {
	method, err := methodParam(r, core.UPIPhone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txs, err := s.reports.RecentByMethod(r.Context(), user.ID, method, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	date, err := parseDate(req.SpendingDate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contact := sanitizeInput(req.ContactIdentifier)
	if contact == "" && req.QRPayload != "" {
		if vpa, ok := core.ExtractVPA(req.QRPayload); ok {
			contact = vpa
		}
	}

	created, err := s.ledger.CreateTransaction(r.Context(), user, core.NewTransaction{
		Amount:            amount,
		CategoryID:        strings.TrimSpace(req.CategoryID),
		Description:       sanitizeInput(req.Description),
		PaymentMethod:     core.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod))),
		SpendingDate:      date,
		ContactIdentifier: contact,
		RecipientName:     sanitizeInput(req.RecipientName),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogTransactionCreated(r.Context(),
		user.ID, created.ID, core.FormatRupees(created.Amount), string(created.PaymentMethod))
	writeJSON(w, http.StatusCreated, toCreatedTransactionDTO(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, user core.User) {
	var req updateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	patch := core.TransactionPatch{
		CategoryID:        sanitizePtr(req.CategoryID),
		Description:       sanitizePtr(req.Description),
		ContactIdentifier: sanitizePtr(req.ContactIdentifier),
		RecipientName:     sanitizePtr(req.RecipientName),
	}
	if req.Amount != nil {
		amount, err := parseDecimal(*req.Amount)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		patch.Amount = &amount
	}
	if req.PaymentMethod != nil {
		m := core.PaymentMethod(strings.ToUpper(strings.TrimSpace(*req.PaymentMethod)))
		if err := m.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}
		patch.PaymentMethod = &m
	}
	if req.SpendingDate != nil {
		date, err := parseDate(*req.SpendingDate)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		patch.SpendingDate = &date
	}

	n, err := s.ledger.UpdateTransaction(r.Context(), user, r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user core.User) {
	n, err := s.ledger.DeleteTransaction(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, user core.User) {
	cats, err := s.ledger.ListCategories(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTOs(cats))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.ledger.CreateCategory(r.Context(), user, sanitizeInput(req.Name), strings.TrimSpace(req.ColorHex))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	var req updateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.ledger.UpdateCategory(r.Context(), user, r.PathValue("id"), core.CategoryPatch{
		Name:     sanitizePtr(req.Name),
		ColorHex: sanitizePtr(req.ColorHex),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	n, err := s.ledger.DeleteCategory(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
}

func (s *Server) handleUpsertMonthlyBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	var req monthlyBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := core.ParseMonthKey(strings.TrimSpace(req.Month))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.ledger.UpsertMonthlyBudget(r.Context(), user, month, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthlyBudgetDTO{
		ID:        b.ID,
		Month:     string(b.MonthKey),
		Amount:    money(b.Amount),
		UpdatedAt: timestamp(b.UpdatedAt),
	})
}

func (s *Server) handleUpsertCategoryBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	var req categoryBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := core.ParseMonthKey(strings.TrimSpace(req.Month))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.ledger.UpsertCategoryBudget(r.Context(), user, strings.TrimSpace(req.CategoryID), month, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryBudgetDTO{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Month:      string(b.MonthKey),
		Amount:     money(b.Amount),
		UpdatedAt:  timestamp(b.UpdatedAt),
	})
}
