package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/powerwatch/internal/app"
	"github.com/okian/powerwatch/internal/domain/history"
	"github.com/okian/powerwatch/internal/domain/model"
)

// EntityDependencies defines the entity operations used by the handlers.
type EntityDependencies interface {
	Targets(ctx context.Context, status model.Status) ([]service.Target, error)
	EntityDetail(ctx context.Context, id int64) (service.EntityDetail, error)
	Change(ctx context.Context, id int64, date model.Date, lookback int) (service.Change, error)
	UpdateEntity(ctx context.Context, id int64, patch service.EntityPatch) (model.Entity, error)
}

// EntitiesHandler serves alliance listings, details and classification.
type EntitiesHandler struct {
	deps EntityDependencies
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(deps EntityDependencies) *EntitiesHandler {
	return &EntitiesHandler{deps: deps}
}

type entitiesResponse struct {
	Entities []service.Target `json:"entities"`
}

// HandleList handles GET /entities?status= requests.
func (h *EntitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_entities"
	var status model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("unknown status")))
			return
		}
		status = st
	}
	targets, err := h.deps.Targets(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entitiesResponse{Entities: targets})
}

// HandleDetail handles GET /entities/{id} requests.
func (h *EntitiesHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.entity_detail"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	detail, err := h.deps.EntityDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleChange handles GET /entities/{id}/change?date=&lookback= requests.
func (h *EntitiesHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	const op = "api.entity_change"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	lookback := 0
	if raw := r.URL.Query().Get("lookback"); raw != "" {
		lookback, err = strconv.Atoi(raw)
		if err != nil || !history.ValidLookback(lookback) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("lookback must be 0, 7 or 30")))
			return
		}
	}
	change, err := h.deps.Change(r.Context(), id, date, lookback)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// HandlePatch handles PATCH /entities/{id} requests.
func (h *EntitiesHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_entity"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var patch service.EntityPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entity, err := h.deps.UpdateEntity(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}
