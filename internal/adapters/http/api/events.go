package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/powerwatch/internal/app"
	"github.com/okian/powerwatch/internal/domain/growth"
	"github.com/okian/powerwatch/internal/domain/model"
)

// EventDependencies defines the event and report operations.
type EventDependencies interface {
	Events(ctx context.Context) ([]service.EventView, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	EventReport(ctx context.Context, id int64) (service.EventReport, error)
	RangeReport(ctx context.Context, start, end model.Date) ([]growth.RankedRow, error)
}

// EventsHandler serves event CRUD and growth reports.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventsResponse struct {
	Events []service.EventView `json:"events"`
}

type reportResponse struct {
	Start model.Date         `json:"start"`
	End   model.Date         `json:"end"`
	Rows  []growth.RankedRow `json:"rows"`
}

// HandleList handles GET /events requests.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	events, err := h.deps.Events(r.Context())
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// HandleCreate handles POST /events requests.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev.ID = 0
	created, err := h.deps.CreateEvent(r.Context(), ev)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /events/{id} requests.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_event"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev.ID = id
	updated, err := h.deps.UpdateEvent(r.Context(), ev)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /events/{id} requests.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_event"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReport handles GET /events/{id}/report requests.
func (h *EventsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.event_report"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	report, err := h.deps.EventReport(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleRangeReport handles GET /report?start=&end= requests.
func (h *EventsHandler) HandleRangeReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.range_report"
	start, err := queryDate(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := queryDate(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if start.IsZero() || end.IsZero() {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("start and end are required")))
		return
	}
	rows, err := h.deps.RangeReport(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Start: start, End: end, Rows: rows})
}
