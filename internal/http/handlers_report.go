package http

import (
	"fmt"
	"net/http"
	"time"

	"kharcha/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleMetrics exposes request, rate limit and security counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.startedAt).Seconds()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user core.User) {
	month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.reports.Dashboard(r.Context(), user.ID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request, user core.User) {
	month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.reports.TotalSpending(r.Context(), user.ID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spendingDTO{Month: string(month), Total: money(total)})
}

// handleSpendingByCategory ranks the month's categories and labels each one;
// entries without a stored color take the chart palette by rank.
func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ranked, err := s.reports.SpendingByCategory(r.Context(), user.ID, month, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rows := make([]core.CategorySpending, 0, len(ranked))
	for i, ca := range ranked {
		name, color, err := s.reports.ResolveCategoryLabel(r.Context(), ca.CategoryID, core.PaletteColor(i))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		rows = append(rows, core.CategorySpending{CategoryID: ca.CategoryID, Name: name, ColorHex: color, Amount: ca.Amount})
	}
	writeJSON(w, http.StatusOK, toCategorySpendingDTOs(rows))
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request, user core.User) {
	month, err := monthParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	monthly, err := s.reports.MonthlyBudgetStatus(r.Context(), user.ID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	categories, err := s.reports.CategoryBudgetStatuses(r.Context(), user.ID, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetStatusesDTO{
		Month:      string(month),
		Monthly:    toBudgetStatusDTO(monthly),
		Categories: toCategoryBudgetStatusDTOs(categories),
	})
}
