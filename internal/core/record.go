package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the record key format used across the store and reports.
	DateLayout = "2006-01-02"
	// ClockLayout is the wall-clock format persisted for every time field.
	ClockLayout = "15:04"

	minutesPerDay = 24 * 60
)

var (
	ErrMalformedTime    = errors.New("malformed time value")
	ErrMalformedDate    = errors.New("malformed date value")
	ErrEmptyLocation    = errors.New("empty location")
	ErrNegativeDuration = errors.New("negative duration: break window outside work window")
	ErrNoOpenRecord     = errors.New("no open record found")
	ErrIncompleteRecord = errors.New("punch record missing start or end")
)

// DayRecord is the persisted unit of state for one calendar date's work
// interval. Time fields hold "HH:MM" or the empty string for unset; the
// JSON field names are the on-disk format and must not change.
type DayRecord struct {
	Start         string `json:"start"`
	BreakStart    string `json:"break_start"`
	BreakEnd      string `json:"break_end"`
	End           string `json:"end"`
	Location      string `json:"location"`
	WorkedMinutes int    `json:"worked_minutes"`
	Project       string `json:"project"`
	Memo          string `json:"memo"`
}

// IsManual reports whether the record was entered with an explicit break
// window. Records without one are punch-derived and use the fixed break.
func (r DayRecord) IsManual() bool {
	return r.BreakStart != "" && r.BreakEnd != ""
}

// WorkedTime returns the authoritative worked duration.
func (r DayRecord) WorkedTime() time.Duration {
	return time.Duration(r.WorkedMinutes) * time.Minute
}

// ParseClock converts an "HH:MM" value to minutes since midnight.
func ParseClock(hhmm string) (int, error) {
	t, err := time.Parse(ClockLayout, hhmm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM". Values past a day
// boundary (from normalization) fold back to wall-clock time.
func FormatClock(minutes int) string {
	minutes %= minutesPerDay
	if minutes < 0 {
		minutes += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate validates a "YYYY-MM-DD" record key.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return t, nil
}

// ClockOn combines a record key and an "HH:MM" value into a naive local
// timestamp on that date.
func ClockOn(dateKey, hhmm string) (time.Time, error) {
	day, err := ParseDate(dateKey)
	if err != nil {
		return time.Time{}, err
	}
	min, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(min) * time.Minute), nil
}

// MonthPrefix returns the "YYYY-MM" prefix that selects a month's record keys.
func MonthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
