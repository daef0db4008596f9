package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"worktime/internal/core"
	"worktime/internal/report"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("xoxb-test", "#work-log")
	c.baseURL = srv.URL
	return c
}

func TestPostMessage(t *testing.T) {
	var got postMessageRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer xoxb-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(postMessageResponse{OK: true})
	})

	blocks := []Block{{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: "hello"}}}
	if err := c.PostMessage(context.Background(), "fallback", blocks); err != nil {
		t.Fatalf("post: %v", err)
	}
	if got.Channel != "#work-log" || got.Text != "fallback" || len(got.Blocks) != 1 {
		t.Fatalf("unexpected request payload: %+v", got)
	}
}

func TestPostMessageAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(postMessageResponse{OK: false, Error: "channel_not_found"})
	})
	err := c.PostMessage(context.Background(), "fallback", nil)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}

func TestPostMessageHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ratelimited", http.StatusTooManyRequests)
	})
	err := c.PostMessage(context.Background(), "fallback", nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestDailyReportMessage(t *testing.T) {
	rec := core.DayRecord{
		Start: "09:00", End: "19:00", Location: "Office",
		WorkedMinutes: 540, Project: "Alpha", Memo: "release day",
	}
	text, blocks := DailyReportMessage("2025-03-10", rec, 480)
	if !strings.Contains(text, "09:00") {
		t.Errorf("fallback text should mention worked time, got %q", text)
	}
	if blocks[0].Type != "header" {
		t.Fatalf("expected header block first, got %+v", blocks[0])
	}

	// Punch record with no explicit break window notes the fixed deduction,
	// and hours past the threshold appear as a split.
	var foundSplit, foundBreak bool
	for _, b := range blocks {
		if b.Text != nil && strings.Contains(b.Text.Text, "overtime") {
			foundSplit = true
		}
		for _, f := range b.Fields {
			if strings.Contains(f.Text, "fixed deduction") {
				foundBreak = true
			}
		}
	}
	if !foundSplit {
		t.Error("expected an overtime split in the worked section")
	}
	if !foundBreak {
		t.Error("expected a fixed deduction note for the break field")
	}
}

func TestMonthlyReportMessage(t *testing.T) {
	rows := []report.DayMinutes{
		{Date: "2025-03-03", Minutes: 480},
		{Date: "2025-03-04", Minutes: 450},
	}
	text, blocks := MonthlyReportMessage(2025, 3, "", rows)
	if !strings.Contains(text, "2025-03") || !strings.Contains(text, "(unset)") {
		t.Errorf("unexpected fallback text %q", text)
	}

	var table string
	for _, b := range blocks {
		if b.Text != nil && strings.HasPrefix(b.Text.Text, "```") {
			table = b.Text.Text
		}
	}
	if !strings.Contains(table, "2025-03-03  08:00") {
		t.Errorf("table missing day row: %q", table)
	}
	if !strings.Contains(table, "15:30") {
		t.Errorf("table missing total: %q", table)
	}
}
