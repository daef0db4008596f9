package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"worktime/internal/core"
)

// RecalcResult reports one recalculation batch.
type RecalcResult struct {
	Changed int `json:"changed"`
	Skipped int `json:"skipped"`
}

// RecalcMonth recomputes worked minutes for every record in the given
// month under the current rules, not the rules in effect when each record
// was written. Records that cannot be recomputed (unparsable times, punch
// records missing start or end, manual records computing negative) are
// counted as skipped and never abort the batch. The store is saved once,
// and only when something changed, which makes a re-run under the same
// rules report zero changes.
func (s *Service) RecalcMonth(ctx context.Context, year, month int, rules core.Rules) (RecalcResult, error) {
	if month < 1 || month > 12 {
		return RecalcResult{}, fmt.Errorf("%w: month %d", core.ErrMalformedDate, month)
	}
	prefix := core.MonthPrefix(year, month)

	s.mu.Lock()
	defer s.mu.Unlock()

	var res RecalcResult
	for _, date := range s.store.Dates() {
		if !strings.HasPrefix(date, prefix) {
			continue
		}
		rec, _ := s.store.Get(date)

		worked, err := recompute(rec, rules)
		if err != nil {
			slog.WarnContext(ctx, "Skipping record during recalculation",
				"date", date, "error", err)
			res.Skipped++
			continue
		}
		if worked != rec.WorkedMinutes {
			rec.WorkedMinutes = worked
			s.store.Put(date, rec)
			res.Changed++
		}
	}

	if res.Changed > 0 {
		if err := s.store.Save(); err != nil {
			return res, fmt.Errorf("persist recalculated records: %w", err)
		}
	}

	slog.InfoContext(ctx, "Recalculated month",
		"month", prefix, "changed", res.Changed, "skipped", res.Skipped)
	return res, nil
}

// recompute re-derives worked minutes from a record's own shape: an
// explicit break window selects the manual-entry formula, otherwise the
// record is punch-derived and uses the fixed break.
func recompute(rec core.DayRecord, rules core.Rules) (int, error) {
	var worked int
	if rec.IsManual() {
		var mins [4]int
		for i, hhmm := range []string{rec.Start, rec.BreakStart, rec.BreakEnd, rec.End} {
			m, err := core.ParseClock(hhmm)
			if err != nil {
				return 0, err
			}
			mins[i] = m
		}
		n := core.NormalizeMonotonic(mins[0], mins[1], mins[2], mins[3])
		worked = core.ManualDuration(n)
		if worked < 0 {
			return 0, fmt.Errorf("%w: %d minutes", core.ErrNegativeDuration, worked)
		}
	} else {
		if rec.Start == "" || rec.End == "" {
			return 0, core.ErrIncompleteRecord
		}
		start, err := core.ParseClock(rec.Start)
		if err != nil {
			return 0, err
		}
		end, err := core.ParseClock(rec.End)
		if err != nil {
			return 0, err
		}
		worked = core.PunchDuration(core.PunchElapsed(start, end), rules.FixedBreakMinutes)
	}
	return core.RoundDuration(worked, rules.RoundingMinutes), nil
}
