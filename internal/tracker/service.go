// Package tracker orchestrates record registration, punching, reporting
// reads and retroactive recalculation over the store. It serializes all
// store access within the process; the store itself does not.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"worktime/internal/core"
	"worktime/internal/report"
	"worktime/internal/store"
)

// Publisher is the outbound messaging port. All publishing is best-effort:
// a failed publish never fails the operation that triggered it.
type Publisher interface {
	PublishRecordSaved(ctx context.Context, date string, rec core.DayRecord) error
	PublishDailyReport(ctx context.Context, date string, rec core.DayRecord, overtimeThreshold int) error
	PublishMonthlyReport(ctx context.Context, year, month int, project string, rows []report.DayMinutes) error
}

// Service owns the in-process view of the record store.
type Service struct {
	mu        sync.Mutex
	store     *store.Store
	publisher Publisher

	// overtimeThreshold (minutes) rides along on daily report messages;
	// duration math never consumes it.
	overtimeThreshold int

	now func() time.Time
}

func New(st *store.Store, publisher Publisher, overtimeThresholdMinutes int) *Service {
	return &Service{
		store:             st,
		publisher:         publisher,
		overtimeThreshold: overtimeThresholdMinutes,
		now:               time.Now,
	}
}

// RegisterInput is one day's manual entry.
type RegisterInput struct {
	Date       string
	Location   string
	Project    string
	Start      string
	BreakStart string
	BreakEnd   string
	End        string
	Memo       string
}

// RegisterManual normalizes the four times, computes the manual-entry
// duration under the given rules and writes the record for the date. An
// inconsistent break window that computes to a negative duration is
// rejected rather than stored.
func (s *Service) RegisterManual(ctx context.Context, in RegisterInput, rules core.Rules) (core.DayRecord, error) {
	if _, err := core.ParseDate(in.Date); err != nil {
		return core.DayRecord{}, err
	}
	if strings.TrimSpace(in.Location) == "" {
		return core.DayRecord{}, core.ErrEmptyLocation
	}

	var mins [4]int
	for i, hhmm := range []string{in.Start, in.BreakStart, in.BreakEnd, in.End} {
		m, err := core.ParseClock(hhmm)
		if err != nil {
			return core.DayRecord{}, err
		}
		mins[i] = m
	}

	n := core.NormalizeMonotonic(mins[0], mins[1], mins[2], mins[3])
	worked := core.ManualDuration(n)
	if worked < 0 {
		return core.DayRecord{}, fmt.Errorf("%w: %d minutes", core.ErrNegativeDuration, worked)
	}
	worked = core.RoundDuration(worked, rules.RoundingMinutes)

	rec := core.DayRecord{
		Start:         core.FormatClock(n[0]),
		BreakStart:    core.FormatClock(n[1]),
		BreakEnd:      core.FormatClock(n[2]),
		End:           core.FormatClock(n[3]),
		Location:      strings.TrimSpace(in.Location),
		WorkedMinutes: worked,
		Project:       strings.TrimSpace(in.Project),
		Memo:          strings.TrimSpace(in.Memo),
	}

	s.mu.Lock()
	s.store.Put(in.Date, rec)
	err := s.store.Save()
	s.mu.Unlock()
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("persist record: %w", err)
	}

	s.publishSaved(ctx, in.Date, rec)
	s.publishDaily(ctx, in.Date, rec)

	slog.InfoContext(ctx, "Registered manual record",
		"date", in.Date, "location", rec.Location, "worked_minutes", worked)
	return rec, nil
}

// PunchIn creates or resets the record for the given date with the current
// time as start and all break/end fields cleared. An empty date means
// today. Note that a shift is recorded entirely under its start date: a
// punch-in on the following calendar date opens an independent record even
// if the previous day's shift is still open.
func (s *Service) PunchIn(ctx context.Context, date, location, project, memo string) (core.DayRecord, error) {
	now := s.now()
	if date == "" {
		date = now.Format(core.DateLayout)
	} else if _, err := core.ParseDate(date); err != nil {
		return core.DayRecord{}, err
	}
	if strings.TrimSpace(location) == "" {
		return core.DayRecord{}, core.ErrEmptyLocation
	}

	rec := core.DayRecord{
		Start:    now.Format(core.ClockLayout),
		Location: strings.TrimSpace(location),
		Project:  strings.TrimSpace(project),
		Memo:     strings.TrimSpace(memo),
	}

	s.mu.Lock()
	s.store.Put(date, rec)
	err := s.store.Save()
	s.mu.Unlock()
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("persist record: %w", err)
	}

	s.publishSaved(ctx, date, rec)

	slog.InfoContext(ctx, "Punched in", "date", date, "start", rec.Start, "location", rec.Location)
	return rec, nil
}

// PunchOut closes the most recent open record (start set, end unset),
// regardless of its calendar date, so a shift that crossed midnight is
// closed on its start date. The punch-derived duration is elapsed time
// minus the fixed break, clamped at zero.
func (s *Service) PunchOut(ctx context.Context, rules core.Rules) (string, core.DayRecord, error) {
	now := s.now()

	s.mu.Lock()
	date, rec, ok := s.openRecordLocked()
	if !ok {
		s.mu.Unlock()
		return "", core.DayRecord{}, core.ErrNoOpenRecord
	}

	startAt, err := core.ClockOn(date, rec.Start)
	if err != nil {
		s.mu.Unlock()
		return "", core.DayRecord{}, fmt.Errorf("open record %s: %w", date, err)
	}
	elapsed := int(now.Sub(startAt).Minutes())
	if elapsed < 0 {
		// System clock moved backwards since punch-in.
		elapsed = 0
	}
	worked := core.PunchDuration(elapsed, rules.FixedBreakMinutes)
	worked = core.RoundDuration(worked, rules.RoundingMinutes)

	rec.End = now.Format(core.ClockLayout)
	rec.WorkedMinutes = worked
	s.store.Put(date, rec)
	err = s.store.Save()
	s.mu.Unlock()
	if err != nil {
		return "", core.DayRecord{}, fmt.Errorf("persist record: %w", err)
	}

	s.publishSaved(ctx, date, rec)
	s.publishDaily(ctx, date, rec)

	slog.InfoContext(ctx, "Punched out",
		"date", date, "end", rec.End, "worked_minutes", worked)
	return date, rec, nil
}

// openRecordLocked returns the most recent record by date with a start and
// no end. Callers hold s.mu.
func (s *Service) openRecordLocked() (string, core.DayRecord, bool) {
	dates := s.store.Dates()
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	for _, d := range dates {
		rec, _ := s.store.Get(d)
		if rec.Start != "" && rec.End == "" {
			return d, rec, true
		}
	}
	return "", core.DayRecord{}, false
}

// Record returns one day's record.
func (s *Service) Record(date string) (core.DayRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(date)
}

// LoadStatus reports how the store obtained its data at startup.
// Records returns a copy of every stored record keyed by date.
func (s *Service) Records() map[string]core.DayRecord {
	return s.snapshot()
}

func (s *Service) LoadStatus() store.LoadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Status()
}

// TotalsByLocation aggregates all records per location.
func (s *Service) TotalsByLocation() map[string]int {
	return report.TotalsByLocation(s.snapshot())
}

// TotalsByProject aggregates all records per project.
func (s *Service) TotalsByProject() map[string]int {
	return report.TotalsByProject(s.snapshot())
}

// MonthlyTotalsByLocation aggregates one month per location.
func (s *Service) MonthlyTotalsByLocation(year, month int) map[string]int {
	return report.MonthlyTotalsByLocation(s.snapshot(), year, month)
}

// MonthlyTotalsByProject aggregates one month per project.
func (s *Service) MonthlyTotalsByProject(year, month int) map[string]int {
	return report.MonthlyTotalsByProject(s.snapshot(), year, month)
}

// MonthProjectRows lists one project's (date, minutes) rows for a month.
func (s *Service) MonthProjectRows(year, month int, project string) []report.DayMinutes {
	return report.MonthProjectRows(s.snapshot(), year, month, project)
}

// ShareMonthlyReport publishes a month/project listing for delivery. Unlike
// the publishes piggybacking on writes, this one is the caller's explicit
// request, so failures are returned.
func (s *Service) ShareMonthlyReport(ctx context.Context, year, month int, project string) error {
	if s.publisher == nil {
		return fmt.Errorf("no message publisher configured")
	}
	rows := s.MonthProjectRows(year, month, project)
	if err := s.publisher.PublishMonthlyReport(ctx, year, month, project, rows); err != nil {
		return fmt.Errorf("publish monthly report: %w", err)
	}
	return nil
}

func (s *Service) snapshot() map[string]core.DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Records()
}

func (s *Service) publishSaved(ctx context.Context, date string, rec core.DayRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordSaved(ctx, date, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record-saved message",
			"date", date, "error", err)
	}
}

func (s *Service) publishDaily(ctx context.Context, date string, rec core.DayRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDailyReport(ctx, date, rec, s.overtimeThreshold); err != nil {
		slog.ErrorContext(ctx, "Failed to publish daily report message",
			"date", date, "error", err)
	}
}
