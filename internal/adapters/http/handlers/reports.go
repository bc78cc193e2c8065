package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"retail-service/internal/domain/report"
	"retail-service/internal/service/access"
	"retail-service/internal/service/reporting"
	"retail-service/pkg/server/response"
)

type ReportHandler struct {
	reporting *reporting.Service
}

func NewReportHandler(reportingService *reporting.Service) *ReportHandler {
	return &ReportHandler{reporting: reportingService}
}

func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/dashboard", h.dashboard)
	r.Get("/price-variance", h.priceVariance)
	return r
}

func (h *ReportHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}

	branchID := optionalQuery(r, "branch_id")
	if !authorize(w, r, principal, access.ActionDashboardView, sessionTenant, branchID) {
		return
	}

	from, to, err := dateRange(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	dashboard, err := h.reporting.Dashboard(r.Context(), principal, from, to, branchID)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, dashboard)
}

func (h *ReportHandler) priceVariance(w http.ResponseWriter, r *http.Request) {
	principal, sessionTenant, ok := requestContext(w, r)
	if !ok {
		return
	}

	branchID := optionalQuery(r, "branch_id")
	if !authorize(w, r, principal, access.ActionReportsView, sessionTenant, branchID) {
		return
	}

	from, to, err := dateRange(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	dimension := report.DimensionBranch
	if raw := optionalQuery(r, "dimension"); raw != nil {
		dimension = report.Dimension(*raw)
	}

	rows, err := h.reporting.PriceVariance(r.Context(), principal, from, to, branchID, dimension)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, r, rows)
}
