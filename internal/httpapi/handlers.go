package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/recordsapi"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/sheets"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = report.DefaultFeedLimit
	maxPageLimit     = 500
)

var errBadQuery = errors.New("bad query")

type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

// ReportRow is one named row of month amounts. Months with no value are
// absent from Values.
type ReportRow struct {
	Name   string                     `json:"name"`
	ARR    *decimal.Decimal           `json:"ARR,omitempty"`
	Values map[string]decimal.Decimal `json:"values"`
}

// ReportResponse is the visible window of the report.
type ReportResponse struct {
	Columns    []string    `json:"columns"`
	Currency   string      `json:"currency"`
	Rows       []ReportRow `json:"rows"`
	Aggregates []ReportRow `json:"aggregates"`
	TotalPages int         `json:"totalPages"`
	Start      string      `json:"start,omitempty"`
	End        string      `json:"end,omitempty"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, recordsapi.PingResponse{Status: "ok"})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.store.AllRecords(r.Context())
	if err != nil {
		s.internalError(w, "load records", err)
		return
	}
	writeJSON(w, http.StatusOK, recordsapi.FromContracts(contracts))
}

func (s *Server) handleRecordsPage(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPageLimit)
	if err == nil && (limit <= 0 || limit > maxPageLimit) {
		err = errBadQuery
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageLimit))
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	contracts, err := s.store.PagedRecords(r.Context(), limit, offset)
	if err != nil {
		s.internalError(w, "load record page", err)
		return
	}
	writeJSON(w, http.StatusOK, recordsapi.FromContracts(contracts))
}

func (s *Server) handleRecordsCount(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.TotalRecords(r.Context())
	if err != nil {
		s.internalError(w, "count records", err)
		return
	}
	writeJSON(w, http.StatusOK, recordsapi.CountResponse{Total: total})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	state, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.reportResponse(state))
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	state, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tabreport.xlsx"`)
	if err := sheets.ExportReport(w, state); err != nil {
		s.log.Error("export report", zap.Error(err))
	}
}

// buildReport loads every contract and applies the optional start/end range.
// It writes the error response itself and reports whether to continue.
func (s *Server) buildReport(w http.ResponseWriter, r *http.Request) (report.State, bool) {
	contracts, err := s.store.AllRecords(r.Context())
	if err != nil {
		s.internalError(w, "load records", err)
		return report.State{}, false
	}
	state := report.Build(contracts, s.cfg.Now(), report.Options{
		Currency: s.cfg.Currency,
		Logger:   s.log.Named("aggregate"),
	})

	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" && end == "" {
		return state, true
	}
	sel := selectionFromLabels(start, end)
	applied, err := state.ApplyRange(sel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:      "invalid range",
			Violations: report.Violations(err),
		})
		return report.State{}, false
	}
	return applied, true
}

func (s *Server) reportResponse(state report.State) ReportResponse {
	visible := state.VisibleColumns()
	resp := ReportResponse{
		Columns:    make([]string, len(visible)),
		Currency:   s.cfg.Currency.Code,
		Rows:       []ReportRow{},
		Aggregates: []ReportRow{},
		TotalPages: state.TotalPages(),
	}
	for i, col := range visible {
		resp.Columns[i] = col.FieldName
	}
	if sel := state.Selection(); !sel.IsZero() {
		resp.Start = sel.StartLabel()
		resp.End = sel.EndLabel()
	}
	for _, row := range state.Rows() {
		resp.Rows = append(resp.Rows, ReportRow{
			Name:   row.Name,
			ARR:    row.ARR,
			Values: pick(visible, row.Value),
		})
	}
	for _, agg := range state.Aggregates() {
		resp.Aggregates = append(resp.Aggregates, ReportRow{
			Name:   agg.Name,
			Values: pick(visible, agg.Value),
		})
	}
	return resp
}

func pick(columns []revenue.Column, value func(string) (decimal.Decimal, bool)) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, col := range columns {
		if v, ok := value(col.FieldName); ok {
			out[col.FieldName] = v
		}
	}
	return out
}

// selectionFromLabels splits "Jan-2021" style labels into picklist values.
// Malformed labels become unresolvable selections so the range check
// reports them.
func selectionFromLabels(start, end string) report.Selection {
	sm, sy, _ := strings.Cut(start, "-")
	em, ey, _ := strings.Cut(end, "-")
	return report.Selection{StartMonth: sm, StartYear: sy, EndMonth: em, EndYear: ey}
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadQuery
	}
	return v, nil
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
