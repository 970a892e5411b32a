package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/services"
	"kharcha/internal/sheets"
)

// ReportWorker recomputes monthly reports and exports them. It reacts to
// ledger events and runs a scheduled snapshot of the previous month.
type ReportWorker struct {
	users    ledger.UserStore
	reports  *services.ReportService
	exporter sheets.ReportExporter
	now      func() time.Time
}

func NewReportWorker(users ledger.UserStore, reports *services.ReportService, exporter sheets.ReportExporter) *ReportWorker {
	return &ReportWorker{
		users:    users,
		reports:  reports,
		exporter: exporter,
		now:      time.Now,
	}
}

// HandleEvent exports the report of the month the event touched, or the
// current month when the event carries none.
func (w *ReportWorker) HandleEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	if evt.UserID == "" {
		slog.WarnContext(ctx, "Ledger event without user, skipping", "type", evt.Type)
		return nil
	}

	month := core.MonthKey(evt.MonthKey)
	if month == "" {
		month = core.CurrentMonthKey(w.now())
	}
	if err := month.Validate(); err != nil {
		// Redelivery cannot fix a malformed key.
		slog.ErrorContext(ctx, "Dropping ledger event with bad month", "type", evt.Type, "month", evt.MonthKey)
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger event",
		"type", evt.Type,
		"user_id", evt.UserID,
		"month", month)
	return w.export(ctx, evt.UserID, month)
}

// Snapshot exports month for every user. One user's failure does not stop
// the others; all failures are returned together.
func (w *ReportWorker) Snapshot(ctx context.Context, month core.MonthKey) error {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.export(ctx, u.ID, month); err != nil {
			slog.ErrorContext(ctx, "Snapshot export failed", "user_id", u.ID, "month", month, "error", err)
			errs = append(errs, err)
		}
	}

	slog.InfoContext(ctx, "Monthly snapshot finished",
		"month", month,
		"users", len(users),
		"failed", len(errs))
	return errors.Join(errs...)
}

// Schedule registers the previous-month snapshot on spec (standard five
// field cron syntax). The caller starts and stops the returned scheduler.
func (w *ReportWorker) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		month := core.CurrentMonthKey(w.now()).Prev()
		slog.InfoContext(ctx, "Executing monthly snapshot", "month", month)
		if err := w.Snapshot(ctx, month); err != nil {
			slog.ErrorContext(ctx, "Monthly snapshot incomplete", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add snapshot job %q: %w", spec, err)
	}
	return c, nil
}

func (w *ReportWorker) export(ctx context.Context, userID string, month core.MonthKey) error {
	d, err := w.reports.Dashboard(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("build report for %s: %w", month, err)
	}
	rows := sheets.BuildReportRows(w.now(), userID, d)
	if err := w.exporter.ExportReport(ctx, rows); err != nil {
		return fmt.Errorf("export report for %s: %w", month, err)
	}
	return nil
}
