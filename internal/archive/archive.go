// Package archive mirrors the durable record file into SQLite so reporting
// consumers can query months without touching the primary data file.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"worktime/internal/core"

	_ "modernc.org/sqlite"
)

type Archive struct {
	db *sql.DB
}

func Open(dbPath string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// UpsertRecord writes one day's record, replacing any previously archived
// version for the same date.
func (a *Archive) UpsertRecord(ctx context.Context, date string, rec core.DayRecord) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO work_records (date, start_time, break_start, break_end, end_time, location, worked_minutes, project, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			start_time = excluded.start_time,
			break_start = excluded.break_start,
			break_end = excluded.break_end,
			end_time = excluded.end_time,
			location = excluded.location,
			worked_minutes = excluded.worked_minutes,
			project = excluded.project,
			memo = excluded.memo,
			archived_at = CURRENT_TIMESTAMP`,
		date, rec.Start, rec.BreakStart, rec.BreakEnd, rec.End,
		rec.Location, rec.WorkedMinutes, rec.Project, rec.Memo)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	slog.InfoContext(ctx, "Record archived",
		"date", date,
		"location", rec.Location,
		"worked_minutes", rec.WorkedMinutes)

	return nil
}

// Record reads back one archived day. The second return is false when the
// date has never been archived.
func (a *Archive) Record(ctx context.Context, date string) (core.DayRecord, bool, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT start_time, break_start, break_end, end_time, location, worked_minutes, project, memo
		FROM work_records WHERE date = ?`, date)

	var rec core.DayRecord
	err := row.Scan(&rec.Start, &rec.BreakStart, &rec.BreakEnd, &rec.End,
		&rec.Location, &rec.WorkedMinutes, &rec.Project, &rec.Memo)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DayRecord{}, false, nil
	}
	if err != nil {
		return core.DayRecord{}, false, fmt.Errorf("get record by date: %w", err)
	}
	return rec, true, nil
}

// MonthRecords returns all archived records for one month keyed by date.
func (a *Archive) MonthRecords(ctx context.Context, year, month int) (map[string]core.DayRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT date, start_time, break_start, break_end, end_time, location, worked_minutes, project, memo
		FROM work_records WHERE date LIKE ? ORDER BY date`,
		core.MonthPrefix(year, month)+"%")
	if err != nil {
		return nil, fmt.Errorf("get records by month: %w", err)
	}
	defer rows.Close()

	records := make(map[string]core.DayRecord)
	for rows.Next() {
		var date string
		var rec core.DayRecord
		if err := rows.Scan(&date, &rec.Start, &rec.BreakStart, &rec.BreakEnd, &rec.End,
			&rec.Location, &rec.WorkedMinutes, &rec.Project, &rec.Memo); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records[date] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// MonthTotalMinutes sums the archived worked minutes for one month.
func (a *Archive) MonthTotalMinutes(ctx context.Context, year, month int) (int, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(worked_minutes), 0)
		FROM work_records WHERE date LIKE ?`,
		core.MonthPrefix(year, month)+"%")

	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("get month total: %w", err)
	}
	return total, nil
}

// Count returns the number of archived records.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	row := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_records`)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}
