package slack

import (
	"fmt"
	"strings"

	"worktime/internal/core"
	"worktime/internal/report"
)

// DailyReportMessage builds the fallback text and Block Kit layout for one
// day's closing report.
func DailyReportMessage(date string, rec core.DayRecord, overtimeThresholdMinutes int) (string, []Block) {
	text := fmt.Sprintf("Work report %s: %s worked", date, report.FormatMinutes(rec.WorkedMinutes))

	blocks := []Block{
		{
			Type: "header",
			Text: &TextObject{Type: "plain_text", Text: "Work report " + date},
		},
		{
			Type: "section",
			Fields: []TextObject{
				{Type: "mrkdwn", Text: "*Location:*\n" + orDash(rec.Location)},
				{Type: "mrkdwn", Text: "*Project:*\n" + orDash(rec.Project)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Hours:*\n%s - %s", orDash(rec.Start), orDash(rec.End))},
				{Type: "mrkdwn", Text: "*Break:*\n" + breakText(rec)},
			},
		},
	}

	normal, overtime := report.SplitOvertime(rec.WorkedMinutes, overtimeThresholdMinutes)
	worked := fmt.Sprintf("*Worked:* %s", report.FormatMinutes(rec.WorkedMinutes))
	if overtime > 0 {
		worked += fmt.Sprintf(" (%s regular + %s overtime)",
			report.FormatMinutes(normal), report.FormatMinutes(overtime))
	}
	blocks = append(blocks, Block{
		Type: "section",
		Text: &TextObject{Type: "mrkdwn", Text: worked},
	})

	if rec.Memo != "" {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &TextObject{Type: "mrkdwn", Text: "_" + rec.Memo + "_"},
		})
	}

	return text, blocks
}

// MonthlyReportMessage builds the fallback text and Block Kit layout for a
// month/project summary.
func MonthlyReportMessage(year, month int, project string, rows []report.DayMinutes) (string, []Block) {
	sum := report.SummarizeMonthProject(rows, year, month, project)
	title := fmt.Sprintf("Monthly report %04d-%02d - %s", year, month, sum.Project)
	text := fmt.Sprintf("%s: %s over %d days", title, report.FormatMinutes(sum.TotalMinutes), sum.Days)

	var table strings.Builder
	table.WriteString("```\n")
	for _, row := range rows {
		fmt.Fprintf(&table, "%s  %s\n", row.Date, report.FormatMinutes(row.Minutes))
	}
	fmt.Fprintf(&table, "Total       %s\n", report.FormatMinutes(sum.TotalMinutes))
	table.WriteString("```")

	blocks := []Block{
		{
			Type: "header",
			Text: &TextObject{Type: "plain_text", Text: title},
		},
		{
			Type: "section",
			Fields: []TextObject{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Days:*\n%d", sum.Days)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Avg hours/day:*\n%.2f", sum.AvgHoursPerDay)},
			},
		},
		{
			Type: "section",
			Text: &TextObject{Type: "mrkdwn", Text: table.String()},
		},
	}

	return text, blocks
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func breakText(rec core.DayRecord) string {
	if rec.BreakStart != "" && rec.BreakEnd != "" {
		return rec.BreakStart + " - " + rec.BreakEnd
	}
	return "fixed deduction"
}
