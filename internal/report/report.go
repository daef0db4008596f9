// Package report computes category and month aggregations over the record
// map. It only ever reads copies handed out by the store.
package report

import (
	"fmt"
	"sort"
	"strings"

	"worktime/internal/core"
)

// UnsetProject is the bucket for records without a project. Locations have
// no such bucket: a record without a location is skipped entirely.
const UnsetProject = "(unset)"

// DayMinutes is one row of a month/project listing.
type DayMinutes struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

// MonthSummary condenses a month/project row listing for report delivery.
type MonthSummary struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Project        string  `json:"project"`
	Days           int     `json:"days"`
	TotalMinutes   int     `json:"total_minutes"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
}

// TotalsByLocation sums worked minutes per location over all records.
func TotalsByLocation(records map[string]core.DayRecord) map[string]int {
	totals := make(map[string]int)
	for _, rec := range records {
		if rec.Location == "" {
			continue
		}
		totals[rec.Location] += rec.WorkedMinutes
	}
	return totals
}

// TotalsByProject sums worked minutes per project over all records, with
// projectless records collected under UnsetProject.
func TotalsByProject(records map[string]core.DayRecord) map[string]int {
	totals := make(map[string]int)
	for _, rec := range records {
		totals[projectKey(rec.Project)] += rec.WorkedMinutes
	}
	return totals
}

// MonthlyTotalsByLocation is TotalsByLocation restricted to one month.
func MonthlyTotalsByLocation(records map[string]core.DayRecord, year, month int) map[string]int {
	return TotalsByLocation(monthRecords(records, year, month))
}

// MonthlyTotalsByProject is TotalsByProject restricted to one month.
func MonthlyTotalsByProject(records map[string]core.DayRecord, year, month int) map[string]int {
	return TotalsByProject(monthRecords(records, year, month))
}

// MonthProjectRows lists (date, minutes) for one project in one month,
// ascending by date. Pass an empty project to select projectless records.
func MonthProjectRows(records map[string]core.DayRecord, year, month int, project string) []DayMinutes {
	prefix := core.MonthPrefix(year, month)
	want := projectKey(project)
	rows := make([]DayMinutes, 0)
	for date, rec := range records {
		if strings.HasPrefix(date, prefix) && projectKey(rec.Project) == want {
			rows = append(rows, DayMinutes{Date: date, Minutes: rec.WorkedMinutes})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

// SummarizeMonthProject rolls up a row listing into totals for delivery.
func SummarizeMonthProject(rows []DayMinutes, year, month int, project string) MonthSummary {
	sum := MonthSummary{Year: year, Month: month, Project: projectKey(project), Days: len(rows)}
	for _, r := range rows {
		sum.TotalMinutes += r.Minutes
	}
	if sum.Days > 0 {
		sum.AvgHoursPerDay = float64(sum.TotalMinutes) / float64(sum.Days) / 60.0
	}
	return sum
}

// SplitOvertime divides an already-computed total at the overtime threshold.
// This is purely a presentation split; it never feeds back into stored
// durations.
func SplitOvertime(totalMinutes, thresholdMinutes int) (normal, overtime int) {
	if thresholdMinutes <= 0 || totalMinutes <= thresholdMinutes {
		return totalMinutes, 0
	}
	return thresholdMinutes, totalMinutes - thresholdMinutes
}

// FormatMinutes renders a minute total as "HH:MM"; totals beyond a day keep
// accumulating hours.
func FormatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func projectKey(project string) string {
	if project == "" {
		return UnsetProject
	}
	return project
}

func monthRecords(records map[string]core.DayRecord, year, month int) map[string]core.DayRecord {
	prefix := core.MonthPrefix(year, month)
	out := make(map[string]core.DayRecord)
	for date, rec := range records {
		if strings.HasPrefix(date, prefix) {
			out[date] = rec
		}
	}
	return out
}
