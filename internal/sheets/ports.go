package sheets

import (
	"context"
	"strings"
	"time"

	"kharcha/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter appends report rows to an external sheet.
	ReportExporter interface {
		ExportReport(ctx context.Context, rows []ReportRow) error
	}
)

// ReportRow is one line of an exported monthly report.
type ReportRow struct {
	GeneratedAt time.Time
	UserID      string
	Month       core.MonthKey
	Label       string
	Status      core.BudgetStatus
}

// TotalLabel marks the row that reconciles the whole month.
const TotalLabel = "Total"

// Values renders the row as sheet cells:
// generated_at, user_id, month, label, spent, budget, remaining, overspent, percent.
// The budget cell is empty when no budget is configured. Text cells are
// quoted so a label is never parsed as a formula.
func (r ReportRow) Values() []any {
	budget := ""
	if r.Status.Configured {
		budget = r.Status.Budget.StringFixed(2)
	}
	return []any{
		r.GeneratedAt.UTC().Format(time.RFC3339),
		textCell(r.UserID),
		string(r.Month),
		textCell(r.Label),
		r.Status.Spent.StringFixed(2),
		budget,
		r.Status.Remaining.StringFixed(2),
		r.Status.Overspent.StringFixed(2),
		r.Status.PercentConsumed,
	}
}

// textCell prefixes user supplied text that a sheet would evaluate.
func textCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// BuildReportRows flattens a dashboard into export rows: the month total
// first, then each budgeted category, then ranked categories without a budget.
func BuildReportRows(generatedAt time.Time, userID string, d core.Dashboard) []ReportRow {
	row := func(label string, s core.BudgetStatus) ReportRow {
		return ReportRow{GeneratedAt: generatedAt, UserID: userID, Month: d.Report.Month, Label: label, Status: s}
	}

	rows := []ReportRow{row(TotalLabel, d.Budget)}
	budgeted := make(map[string]bool, len(d.CategoryBudgets))
	for _, cb := range d.CategoryBudgets {
		budgeted[cb.CategoryID] = true
		rows = append(rows, row(cb.Name, cb.Status))
	}
	for _, cs := range d.Report.ByCategory {
		if budgeted[cs.CategoryID] {
			continue
		}
		rows = append(rows, row(cs.Name, core.Reconcile(cs.Amount, core.BudgetOf(nil))))
	}
	return rows
}
