// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/powerwatch/internal/app"
	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/domain/dashboard"
	"github.com/okian/powerwatch/internal/domain/growth"
	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Dates(ctx context.Context) ([]model.Date, error)
	Dashboard(ctx context.Context, date model.Date) (dashboard.View, error)

	Targets(ctx context.Context, status model.Status) ([]service.Target, error)
	EntityDetail(ctx context.Context, id int64) (service.EntityDetail, error)
	Change(ctx context.Context, id int64, date model.Date, lookback int) (service.Change, error)
	UpdateEntity(ctx context.Context, id int64, patch service.EntityPatch) (model.Entity, error)

	SubmitImport(ctx context.Context, batch model.ImportBatch) (service.Submission, error)
	DeleteSnapshot(ctx context.Context, id int64) error
	DeleteSnapshotsByDate(ctx context.Context, date model.Date) (int, error)

	Events(ctx context.Context) ([]service.EventView, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	EventReport(ctx context.Context, id int64) (service.EventReport, error)
	RangeReport(ctx context.Context, start, end model.Date) ([]growth.RankedRow, error)
}

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	dashboardHandler *DashboardHandler
	entitiesHandler  *EntitiesHandler
	importsHandler   *ImportsHandler
	eventsHandler    *EventsHandler

	auth *Authorizer
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		dashboardHandler: NewDashboardHandler(deps),
		entitiesHandler:  NewEntitiesHandler(deps),
		importsHandler:   NewImportsHandler(deps),
		eventsHandler:    NewEventsHandler(deps),
		auth:             &Authorizer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	recruiter := s.auth.Require(CapRecruiter)
	admin := s.auth.Require(CapAdmin)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/dates", MetricsMiddleware(s.dashboardHandler.HandleDates, "dates"))
	r.Get("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	r.Get("/report", MetricsMiddleware(s.eventsHandler.HandleRangeReport, "report"))

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.entitiesHandler.HandleList, "entities"))
		r.Get("/{id}", MetricsMiddleware(s.entitiesHandler.HandleDetail, "entity"))
		r.Get("/{id}/change", MetricsMiddleware(s.entitiesHandler.HandleChange, "entity_change"))
		r.With(recruiter).Patch("/{id}", MetricsMiddleware(s.entitiesHandler.HandlePatch, "entity_patch"))
	})

	r.With(admin).Post("/imports", MetricsMiddleware(s.importsHandler.HandleSubmit, "imports"))
	r.With(admin).Delete("/snapshots", MetricsMiddleware(s.importsHandler.HandleDeleteByDate, "snapshots_delete"))
	r.With(admin).Delete("/snapshots/{id}", MetricsMiddleware(s.importsHandler.HandleDelete, "snapshot_delete"))

	r.Route("/events", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.eventsHandler.HandleList, "events"))
		r.Get("/{id}/report", MetricsMiddleware(s.eventsHandler.HandleReport, "event_report"))
		r.With(admin).Post("/", MetricsMiddleware(s.eventsHandler.HandleCreate, "event_create"))
		r.With(admin).Put("/{id}", MetricsMiddleware(s.eventsHandler.HandleUpdate, "event_update"))
		r.With(admin).Delete("/{id}", MetricsMiddleware(s.eventsHandler.HandleDelete, "event_delete"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service and store errors to HTTP statuses.
// Unclassified errors are logged and answered with the bare status text.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (model.Date, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return "", nil
	}
	if _, err := model.ParseDate(raw); err != nil {
		return "", errors.New("invalid " + key + "; must be YYYY-MM-DD")
	}
	return model.Date(raw), nil
}
