package handlers

import (
	"net/http"
	"strings"

	"taxledger/internal/services"
)

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	dashboard, err := h.dashboard.Get(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// TaxReport builds the report for the organization's current tax period, a
// preset window, or an explicit date pair, in that order of precedence.
func (h *Handler) TaxReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	useOrg, err := queryBool(r, "use_org_tax_period")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	req := services.ReportRequest{
		UserID:          userID,
		UseOrgTaxPeriod: useOrg != nil && *useOrg,
		Preset:          services.DatePreset(strings.TrimSpace(r.URL.Query().Get("preset"))),
	}
	if !req.UseOrgTaxPeriod && req.Preset == "" {
		if req.DateFrom, err = queryDate(r, "date_from"); err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		if req.DateTo, err = queryDate(r, "date_to"); err != nil {
			h.respondServiceError(w, r, err)
			return
		}
	}
	report, err := h.reports.Build(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type unifiedTaxRequest struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// UnifiedTaxReport computes the quarterly unified tax declaration.
func (h *Handler) UnifiedTaxReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req unifiedTaxRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := h.reports.UnifiedQuarter(r.Context(), userID, req.Year, req.Quarter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"report_data": report})
}

func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	entries, err := h.audit.ListByActor(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
