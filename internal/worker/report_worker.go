// Package worker consumes report messages and fans them out to the archive,
// Slack, and Google Sheets.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"worktime/internal/amqp"
	"worktime/internal/core"
	"worktime/internal/report"
	"worktime/internal/slack"
)

// RecordArchiver mirrors records into durable storage.
type RecordArchiver interface {
	UpsertRecord(ctx context.Context, date string, rec core.DayRecord) error
}

// Notifier posts rendered report messages to a chat channel.
type Notifier interface {
	PostMessage(ctx context.Context, text string, blocks []slack.Block) error
}

// ReportAppender writes monthly summaries to a spreadsheet.
type ReportAppender interface {
	AppendMonthReport(ctx context.Context, year, month int, project string, rows []report.DayMinutes) error
}

// RecordSource reads the full record set, used by the periodic re-archive
// pass to recover from missed messages.
type RecordSource interface {
	Records() (map[string]core.DayRecord, error)
}

// ReportWorker handles consumed report messages. Notifier and appender are
// optional; a nil dependency skips that output.
type ReportWorker struct {
	archive  RecordArchiver
	notifier Notifier
	appender ReportAppender
	source   RecordSource
}

func NewReportWorker(archive RecordArchiver, notifier Notifier, appender ReportAppender, source RecordSource) *ReportWorker {
	return &ReportWorker{
		archive:  archive,
		notifier: notifier,
		appender: appender,
		source:   source,
	}
}

// Handlers returns the consume dispatch table for this worker.
func (w *ReportWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		RecordSaved:   w.HandleRecordSaved,
		DailyReport:   w.HandleDailyReport,
		MonthlyReport: w.HandleMonthlyReport,
	}
}

// HandleRecordSaved mirrors one saved record into the archive.
func (w *ReportWorker) HandleRecordSaved(ctx context.Context, msg *amqp.RecordSavedMessage) error {
	slog.InfoContext(ctx, "Processing record saved message", "date", msg.Date)

	if err := w.archive.UpsertRecord(ctx, msg.Date, msg.Record); err != nil {
		return fmt.Errorf("archive record: %w", err)
	}
	return nil
}

// HandleDailyReport posts one day's closing report to the channel.
func (w *ReportWorker) HandleDailyReport(ctx context.Context, msg *amqp.DailyReportMessage) error {
	slog.InfoContext(ctx, "Processing daily report message",
		"date", msg.Date,
		"worked_minutes", msg.Record.WorkedMinutes)

	if w.notifier == nil {
		slog.WarnContext(ctx, "No notifier configured, skipping daily report", "date", msg.Date)
		return nil
	}

	text, blocks := slack.DailyReportMessage(msg.Date, msg.Record, msg.OvertimeThresholdMinutes)
	if err := w.notifier.PostMessage(ctx, text, blocks); err != nil {
		return fmt.Errorf("post daily report: %w", err)
	}
	return nil
}

// HandleMonthlyReport posts the month summary and appends it to the sheet.
func (w *ReportWorker) HandleMonthlyReport(ctx context.Context, msg *amqp.MonthlyReportMessage) error {
	slog.InfoContext(ctx, "Processing monthly report message",
		"year", msg.Year,
		"month", msg.Month,
		"project", msg.Project,
		"days", len(msg.Rows))

	if w.notifier != nil {
		text, blocks := slack.MonthlyReportMessage(msg.Year, msg.Month, msg.Project, msg.Rows)
		if err := w.notifier.PostMessage(ctx, text, blocks); err != nil {
			return fmt.Errorf("post monthly report: %w", err)
		}
	}

	if w.appender != nil {
		if err := w.appender.AppendMonthReport(ctx, msg.Year, msg.Month, msg.Project, msg.Rows); err != nil {
			return fmt.Errorf("append monthly report: %w", err)
		}
	}

	return nil
}

// RearchiveAll mirrors every record from the source into the archive.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ReportWorker) RearchiveAll(ctx context.Context) error {
	if w.source == nil {
		return nil
	}

	records, err := w.source.Records()
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	archived := 0
	for date, rec := range records {
		if err := w.archive.UpsertRecord(ctx, date, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to re-archive record", "date", date, "error", err)
			continue
		}
		archived++
	}

	slog.InfoContext(ctx, "Re-archive pass completed",
		"total", len(records),
		"archived", archived)

	return nil
}

// RunPeriodicRearchive repeats RearchiveAll on the given interval until the
// context is cancelled.
func (w *ReportWorker) RunPeriodicRearchive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RearchiveAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic re-archive failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
