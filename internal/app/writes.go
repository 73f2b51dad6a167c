package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/powerwatch/internal/adapters/mq/queue"
	"github.com/okian/powerwatch/internal/domain/ingest"
	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/logger"
	"github.com/okian/powerwatch/pkg/metrics"
)

// EntityPatch carries optional classification changes.
type EntityPatch struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// UpdateEntity applies a classification patch.
func (s *Service) UpdateEntity(ctx context.Context, id int64, patch EntityPatch) (model.Entity, error) {
	if err := s.running(); err != nil {
		return model.Entity{}, err
	}
	current, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return model.Entity{}, fmt.Errorf("update entity: %w", err)
	}

	status, notes := current.Status, current.Notes
	if patch.Status != nil {
		st, ok := model.ParseStatus(*patch.Status)
		if !ok {
			return model.Entity{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
		}
		status = st
	}
	if patch.Notes != nil {
		notes = strings.TrimSpace(*patch.Notes)
	}

	updated, err := s.store.UpdateEntityClassification(ctx, id, status, notes)
	if err != nil {
		return model.Entity{}, fmt.Errorf("update entity: %w", err)
	}
	s.logger.Info(ctx, "entity classified",
		logger.Int64("entity_id", id),
		logger.String("status", string(updated.Status)),
	)
	return updated, nil
}

// DeleteSnapshot removes one snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, id int64) error {
	if err := s.running(); err != nil {
		return err
	}
	if err := s.store.DeleteSnapshot(ctx, id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	s.refreshGauges(ctx)
	return nil
}

// DeleteSnapshotsByDate removes every snapshot recorded on date.
func (s *Service) DeleteSnapshotsByDate(ctx context.Context, date model.Date) (int, error) {
	if err := s.running(); err != nil {
		return 0, err
	}
	if _, err := model.ParseDate(string(date)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n, err := s.store.DeleteSnapshotsByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	s.logger.Info(ctx, "snapshots deleted", logger.String("date", date.String()), logger.Int("count", n))
	s.refreshGauges(ctx)
	return n, nil
}

// Submission reports what happened to a submitted batch.
type Submission struct {
	BatchID   string `json:"batch_id"`
	Duplicate bool   `json:"duplicate"`
	Rows      int    `json:"rows"`
}

// SubmitImport queues a batch for background application. A batch
// without an id gets one derived from its content. Batches already seen
// are reported as duplicates and not queued again.
func (s *Service) SubmitImport(ctx context.Context, batch model.ImportBatch) (Submission, error) {
	if err := s.running(); err != nil {
		return Submission{}, err
	}
	if _, err := model.ParseDate(string(batch.Date)); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(batch.Rows) == 0 {
		return Submission{}, fmt.Errorf("%w: no rows", ErrInvalidInput)
	}
	if strings.TrimSpace(batch.ID) == "" {
		batch.ID = ingest.BatchID(batch.Date, batch.Rows)
	}
	batch.SubmittedAt = s.clock.Now()
	sub := Submission{BatchID: batch.ID, Rows: len(batch.Rows)}

	if s.deduper.SeenAndRecord(ctx, batch.ID) {
		metrics.RecordImportDuplicate()
		s.logger.Debug(ctx, "duplicate batch, skipping", logger.String("batch_id", batch.ID))
		sub.Duplicate = true
		return sub, nil
	}

	if err := s.queue.Enqueue(ctx, batch); err != nil {
		s.deduper.Unrecord(ctx, batch.ID)
		if errors.Is(err, queue.ErrFull) {
			metrics.RecordImportRejected()
			return Submission{}, ErrBackpressure
		}
		return Submission{}, fmt.Errorf("enqueue batch: %w", err)
	}

	metrics.RecordImportSubmitted()
	s.logger.Info(ctx, "batch queued",
		logger.String("batch_id", batch.ID),
		logger.String("date", batch.Date.String()),
		logger.Int("rows", len(batch.Rows)),
	)
	return sub, nil
}

func normalizeEvent(e model.Event) (model.Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	typ, ok := model.ParseEventType(string(e.Type))
	if !ok {
		return e, fmt.Errorf("%w: unknown event_type %q", ErrInvalidInput, e.Type)
	}
	e.Type = typ
	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return e, nil
}

// CreateEvent validates and stores a new event.
func (s *Service) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if err := s.running(); err != nil {
		return model.Event{}, err
	}
	e, err := normalizeEvent(e)
	if err != nil {
		return model.Event{}, err
	}
	created, err := s.store.CreateEvent(ctx, e)
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

// UpdateEvent replaces an existing event.
func (s *Service) UpdateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if err := s.running(); err != nil {
		return model.Event{}, err
	}
	e, err := normalizeEvent(e)
	if err != nil {
		return model.Event{}, err
	}
	updated, err := s.store.UpdateEvent(ctx, e)
	if err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.running(); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
