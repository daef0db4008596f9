package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"worktime/internal/core"
	"worktime/internal/report"
)

// MonthCSV writes one month of records as CSV, one row per day in date order.
func MonthCSV(w io.Writer, records map[string]core.DayRecord, year, month int) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	// Header
	if err := cw.Write([]string{"Date", "Start", "Break Start", "Break End", "End", "Location", "Project", "Worked (min)", "Worked", "Memo"}); err != nil {
		return err
	}

	prefix := core.MonthPrefix(year, month)
	dates := make([]string, 0, len(records))
	for date := range records {
		if strings.HasPrefix(date, prefix) {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	for _, date := range dates {
		rec := records[date]
		row := []string{
			date,
			rec.Start,
			rec.BreakStart,
			rec.BreakEnd,
			rec.End,
			rec.Location,
			rec.Project,
			fmt.Sprintf("%d", rec.WorkedMinutes),
			report.FormatMinutes(rec.WorkedMinutes),
			rec.Memo,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return cw.Error()
}
