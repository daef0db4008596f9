// Package sheets appends monthly work reports to a Google Spreadsheet
// using service account credentials.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"worktime/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Hours").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Hours"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	var err error

	switch {
	case credentialsJSON != "":
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		creds, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// AppendMonthReport appends one row per worked day plus a total row to the
// configured sheet.
func (c *Client) AppendMonthReport(ctx context.Context, year, month int, project string, rows []report.DayMinutes) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sum := report.SummarizeMonthProject(rows, year, month, project)

	values := make([][]any, 0, len(rows)+1)
	for _, row := range rows {
		values = append(values, []any{row.Date, sum.Project, row.Minutes, report.FormatMinutes(row.Minutes)})
	}
	values = append(values, []any{
		fmt.Sprintf("%04d-%02d total", year, month),
		sum.Project,
		sum.TotalMinutes,
		report.FormatMinutes(sum.TotalMinutes),
	})

	rng := fmt.Sprintf("%s!A:D", c.sheetName)
	vr := &gsheet.ValueRange{Values: values}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append month report to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Monthly report appended to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName,
		"year", year,
		"month", month,
		"project", sum.Project,
		"days", sum.Days)

	return nil
}
