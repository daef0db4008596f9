package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"worktime/internal/core"
	"worktime/internal/export"
	"worktime/internal/report"
	"worktime/internal/tracker"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "ready",
		"load_status": s.svc.LoadStatus().String(),
	})
}

type registerRequest struct {
	Date       string `json:"date"`
	Location   string `json:"location"`
	Project    string `json:"project"`
	Memo       string `json:"memo"`
	Start      string `json:"start"`
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
	End        string `json:"end"`
}

type recordResponse struct {
	Date   string         `json:"date"`
	Record core.DayRecord `json:"record"`
}

// handleRecords creates a manual record on POST and looks one up on GET.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}

		rec, err := s.svc.RegisterManual(r.Context(), tracker.RegisterInput{
			Date:       req.Date,
			Location:   req.Location,
			Project:    req.Project,
			Memo:       req.Memo,
			Start:      req.Start,
			BreakStart: req.BreakStart,
			BreakEnd:   req.BreakEnd,
			End:        req.End,
		}, s.rules)
		if err != nil {
			respondError(w, statusFor(err), err)
			return
		}
		respondJSON(w, http.StatusCreated, recordResponse{Date: req.Date, Record: rec})

	case http.MethodGet:
		date := r.URL.Query().Get("date")
		if _, err := core.ParseDate(date); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		rec, ok := s.svc.Record(date)
		if !ok {
			respondError(w, http.StatusNotFound, fmt.Errorf("no record for %s", date))
			return
		}
		respondJSON(w, http.StatusOK, recordResponse{Date: date, Record: rec})

	default:
		w.Header().Set("Allow", "GET, POST")
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

type punchInRequest struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Project  string `json:"project"`
	Memo     string `json:"memo"`
}

func (s *Server) handlePunchIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var req punchInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	rec, err := s.svc.PunchIn(r.Context(), req.Date, req.Location, req.Project, req.Memo)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, recordResponse{Date: req.Date, Record: rec})
}

func (s *Server) handlePunchOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	date, rec, err := s.svc.PunchOut(r.Context(), s.rules)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, recordResponse{Date: date, Record: rec})
}

// handleTotals returns worked minutes grouped by location or project,
// either all-time or scoped to one month.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	by := r.URL.Query().Get("by")
	if by == "" {
		by = "location"
	}
	if by != "location" && by != "project" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown grouping %q", by))
		return
	}

	var totals map[string]int
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		year, month, err := parseYearMonth(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		if by == "location" {
			totals = s.svc.MonthlyTotalsByLocation(year, month)
		} else {
			totals = s.svc.MonthlyTotalsByProject(year, month)
		}
	} else {
		if by == "location" {
			totals = s.svc.TotalsByLocation()
		} else {
			totals = s.svc.TotalsByProject()
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"by": by, "totals": totals})
}

type monthReportResponse struct {
	Rows    []report.DayMinutes `json:"rows"`
	Summary report.MonthSummary `json:"summary"`
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	project := r.URL.Query().Get("project")

	rows := s.svc.MonthProjectRows(year, month, project)
	respondJSON(w, http.StatusOK, monthReportResponse{
		Rows:    rows,
		Summary: report.SummarizeMonthProject(rows, year, month, project),
	})
}

type shareRequest struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Project string `json:"project"`
}

func (s *Server) handleShareMonthReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Month < 1 || req.Month > 12 {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid month %d", req.Month))
		return
	}

	if err := s.svc.ShareMonthlyReport(r.Context(), req.Year, req.Month, req.Project); err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "shared"})
}

type recalcRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (s *Server) handleRecalc(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var req recalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	result, err := s.svc.RecalcMonth(r.Context(), req.Year, req.Month, s.rules)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"worktime-%04d-%02d.csv\"", year, month))

	if err := export.MonthCSV(w, s.svc.Records(), year, month); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMalformedTime),
		errors.Is(err, core.ErrMalformedDate),
		errors.Is(err, core.ErrEmptyLocation),
		errors.Is(err, core.ErrNegativeDuration):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoOpenRecord):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
