package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseYearMonth extracts year and month from query parameters.
// Defaults to the current year/month when a parameter is absent.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %d", month)
	}

	return year, month, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
