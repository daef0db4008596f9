package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"worktime/internal/core"
	"worktime/internal/report"
	"worktime/internal/store"
	"worktime/internal/tracker"
)

type noopPublisher struct{}

func (noopPublisher) PublishRecordSaved(context.Context, string, core.DayRecord) error { return nil }
func (noopPublisher) PublishDailyReport(context.Context, string, core.DayRecord, int) error {
	return nil
}
func (noopPublisher) PublishMonthlyReport(context.Context, int, int, string, []report.DayMinutes) error {
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "work_data.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := tracker.New(st, noopPublisher{}, 480)
	return NewServer(":0", svc, core.Rules{RoundingMinutes: 15, FixedBreakMinutes: 60})
}

func doJSON(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, req)
	return w
}

func TestRegisterAndFetchRecord(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/records", `{
		"date": "2025-03-10", "location": "Office", "project": "Alpha",
		"start": "09:00", "break_start": "12:00", "break_end": "13:00", "end": "18:00"
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created recordResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Record.WorkedMinutes != 480 {
		t.Fatalf("expected 480 minutes, got %d", created.Record.WorkedMinutes)
	}

	w = doJSON(t, s, http.MethodGet, "/records?date=2025-03-10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/records?date=2025-03-11", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown date, got %d", w.Code)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/records", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/records", `{
		"date": "2025-03-10", "location": "Office",
		"start": "nine", "break_start": "12:00", "break_end": "13:00", "end": "18:00"
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed time, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/records", `{
		"date": "2025-03-10", "location": "",
		"start": "09:00", "break_start": "12:00", "break_end": "13:00", "end": "18:00"
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty location, got %d", w.Code)
	}
}

func TestPunchFlow(t *testing.T) {
	s := newTestServer(t)

	// Punching out with nothing open conflicts.
	w := doJSON(t, s, http.MethodPost, "/punch/out", `{}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/punch/in", `{"location": "Office"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/punch/out", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var closed recordResponse
	if err := json.Unmarshal(w.Body.Bytes(), &closed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if closed.Record.End == "" {
		t.Fatalf("expected a closed record, got %+v", closed.Record)
	}
}

func TestTotalsAndMonthReport(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/records", `{
		"date": "2025-03-10", "location": "Office", "project": "Alpha",
		"start": "09:00", "break_start": "12:00", "break_end": "13:00", "end": "18:00"
	}`)

	w := doJSON(t, s, http.MethodGet, "/totals?by=location", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var totals struct {
		By     string         `json:"by"`
		Totals map[string]int `json:"totals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &totals); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if totals.Totals["Office"] != 480 {
		t.Fatalf("expected Office total 480, got %+v", totals)
	}

	w = doJSON(t, s, http.MethodGet, "/totals?by=weekday", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown grouping, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/reports/month?year=2025&month=3&project=Alpha", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rep monthReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Rows) != 1 || rep.Summary.TotalMinutes != 480 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	w = doJSON(t, s, http.MethodGet, "/reports/month?year=2025&month=13", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for month 13, got %d", w.Code)
	}
}

func TestRecalcEndpoint(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/records", `{
		"date": "2025-03-10", "location": "Office",
		"start": "09:00", "break_start": "12:00", "break_end": "13:00", "end": "18:00"
	}`)

	w := doJSON(t, s, http.MethodPost, "/recalc", `{"year": 2025, "month": 3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result tracker.RecalcResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	// Rules are unchanged since registration, so nothing moves.
	if result.Changed != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	w = doJSON(t, s, http.MethodPost, "/recalc", `{"year": 2025, "month": 13}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for month 13, got %d", w.Code)
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/records", `{
		"date": "2025-03-10", "location": "Office",
		"start": "09:00", "break_start": "12:00", "break_end": "13:00", "end": "18:00"
	}`)

	w := doJSON(t, s, http.MethodGet, "/export/csv?year=2025&month=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "2025-03-10") {
		t.Fatalf("CSV missing record row: %s", w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodDelete, "/records", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
