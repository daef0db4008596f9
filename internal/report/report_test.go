package report

import (
	"testing"

	"worktime/internal/core"
)

func sampleRecords() map[string]core.DayRecord {
	return map[string]core.DayRecord{
		"2025-03-10": {Location: "Office", Project: "Alpha", WorkedMinutes: 480},
		"2025-03-11": {Location: "Remote", Project: "Alpha", WorkedMinutes: 450},
		"2025-03-12": {Location: "Office", Project: "", WorkedMinutes: 300},
		"2025-03-13": {Location: "", Project: "Beta", WorkedMinutes: 120},
		"2025-04-01": {Location: "Office", Project: "Alpha", WorkedMinutes: 495},
	}
}

func TestTotalsByLocationSkipsEmptyLocation(t *testing.T) {
	totals := TotalsByLocation(sampleRecords())
	if got := totals["Office"]; got != 1275 {
		t.Fatalf("Office expected 1275, got %d", got)
	}
	if got := totals["Remote"]; got != 450 {
		t.Fatalf("Remote expected 450, got %d", got)
	}
	if _, ok := totals[""]; ok {
		t.Fatal("empty location must not appear in totals")
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(totals))
	}
}

func TestTotalsByProjectUsesUnsetBucket(t *testing.T) {
	totals := TotalsByProject(sampleRecords())
	if got := totals["Alpha"]; got != 1425 {
		t.Fatalf("Alpha expected 1425, got %d", got)
	}
	if got := totals[UnsetProject]; got != 300 {
		t.Fatalf("%s expected 300, got %d", UnsetProject, got)
	}
	if got := totals["Beta"]; got != 120 {
		t.Fatalf("Beta expected 120, got %d", got)
	}
}

func TestMonthlyTotalsFilterByPrefix(t *testing.T) {
	byLoc := MonthlyTotalsByLocation(sampleRecords(), 2025, 3)
	if got := byLoc["Office"]; got != 780 {
		t.Fatalf("Office expected 780 for March, got %d", got)
	}
	byProj := MonthlyTotalsByProject(sampleRecords(), 2025, 4)
	if got := byProj["Alpha"]; got != 495 {
		t.Fatalf("Alpha expected 495 for April, got %d", got)
	}
	if len(byProj) != 1 {
		t.Fatalf("expected only Alpha in April, got %v", byProj)
	}
}

func TestMonthProjectRowsSortedAscending(t *testing.T) {
	rows := MonthProjectRows(sampleRecords(), 2025, 3, "Alpha")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Date != "2025-03-10" || rows[1].Date != "2025-03-11" {
		t.Fatalf("rows out of order: %v", rows)
	}
	if rows[0].Minutes != 480 || rows[1].Minutes != 450 {
		t.Fatalf("unexpected minutes: %v", rows)
	}

	// Empty project selects the unset bucket.
	unset := MonthProjectRows(sampleRecords(), 2025, 3, "")
	if len(unset) != 1 || unset[0].Date != "2025-03-12" {
		t.Fatalf("unset project rows wrong: %v", unset)
	}
}

func TestSummarizeMonthProject(t *testing.T) {
	rows := MonthProjectRows(sampleRecords(), 2025, 3, "Alpha")
	sum := SummarizeMonthProject(rows, 2025, 3, "Alpha")
	if sum.TotalMinutes != 930 || sum.Days != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.AvgHoursPerDay != 7.75 {
		t.Fatalf("expected 7.75 avg hours, got %v", sum.AvgHoursPerDay)
	}

	empty := SummarizeMonthProject(nil, 2025, 5, "")
	if empty.Days != 0 || empty.TotalMinutes != 0 || empty.AvgHoursPerDay != 0 {
		t.Fatalf("empty summary should be zero: %+v", empty)
	}
	if empty.Project != UnsetProject {
		t.Fatalf("empty project should map to %s, got %q", UnsetProject, empty.Project)
	}
}

func TestSplitOvertime(t *testing.T) {
	cases := []struct {
		total, threshold, normal, overtime int
	}{
		{540, 480, 480, 60},
		{480, 480, 480, 0},
		{300, 480, 300, 0},
		{540, 0, 540, 0}, // threshold disabled
	}
	for _, tc := range cases {
		n, o := SplitOvertime(tc.total, tc.threshold)
		if n != tc.normal || o != tc.overtime {
			t.Fatalf("SplitOvertime(%d, %d) expected (%d, %d), got (%d, %d)",
				tc.total, tc.threshold, tc.normal, tc.overtime, n, o)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		in  int
		out string
	}{
		{0, "00:00"},
		{480, "08:00"},
		{485, "08:05"},
		{1500, "25:00"}, // totals keep accumulating hours
	}
	for _, tc := range cases {
		if got := FormatMinutes(tc.in); got != tc.out {
			t.Fatalf("FormatMinutes(%d) expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
