package api

import (
	"context"
	"net/http"

	"github.com/okian/powerwatch/internal/domain/dashboard"
	"github.com/okian/powerwatch/internal/domain/model"
)

// DashboardDependencies defines what the dashboard handlers read.
type DashboardDependencies interface {
	Dates(ctx context.Context) ([]model.Date, error)
	Dashboard(ctx context.Context, date model.Date) (dashboard.View, error)
}

// DashboardHandler serves the dated dashboard views.
type DashboardHandler struct {
	deps DashboardDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps DashboardDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

type datesResponse struct {
	Dates []model.Date `json:"dates"`
}

// HandleDates handles GET /dates requests.
func (h *DashboardHandler) HandleDates(w http.ResponseWriter, r *http.Request) {
	const op = "api.dates"
	dates, err := h.deps.Dates(r.Context())
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, datesResponse{Dates: dates})
}

// HandleDashboard handles GET /dashboard?date= requests.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	date, err := queryDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.Dashboard(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
