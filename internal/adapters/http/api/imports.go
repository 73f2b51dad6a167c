package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/powerwatch/internal/app"
	"github.com/okian/powerwatch/internal/domain/model"
)

// ImportDependencies defines the write operations on snapshots.
type ImportDependencies interface {
	SubmitImport(ctx context.Context, batch model.ImportBatch) (service.Submission, error)
	DeleteSnapshot(ctx context.Context, id int64) error
	DeleteSnapshotsByDate(ctx context.Context, date model.Date) (int, error)
}

// ImportsHandler accepts import batches and snapshot deletions.
type ImportsHandler struct {
	deps ImportDependencies
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(deps ImportDependencies) *ImportsHandler {
	return &ImportsHandler{deps: deps}
}

// importRequest mirrors the OpenAPI schema for POST /imports.
type importRequest struct {
	BatchID string            `json:"batch_id,omitempty"`
	Date    string            `json:"date"`
	Rows    []model.ImportRow `json:"rows"`
}

func (req importRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Date) == "":
		return errors.New("missing date")
	case len(req.Rows) == 0:
		return errors.New("missing rows")
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		return errors.New("invalid date; must be YYYY-MM-DD")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Duplicate bool   `json:"duplicate"`
	Rows      int    `json:"rows"`
}

// HandleSubmit handles POST /imports requests.
func (h *ImportsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_import"
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.SubmitImport(r.Context(), model.ImportBatch{
		ID:   strings.TrimSpace(req.BatchID),
		Date: model.Date(req.Date),
		Rows: req.Rows,
	})
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", BatchID: sub.BatchID, Duplicate: true, Rows: sub.Rows})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", BatchID: sub.BatchID, Rows: sub.Rows})
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
}

// HandleDelete handles DELETE /snapshots/{id} requests.
func (h *ImportsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_snapshot"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.DeleteSnapshot(r.Context(), id); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: 1})
}

// HandleDeleteByDate handles DELETE /snapshots?date= requests.
func (h *ImportsHandler) HandleDeleteByDate(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_snapshots"
	date, err := queryDate(r, "date")
	if err == nil && date.IsZero() {
		err = errors.New("missing date")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	n, err := h.deps.DeleteSnapshotsByDate(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}
