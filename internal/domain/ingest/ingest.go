// Package ingest applies import batches to a store, keeping at most one
// snapshot per entity and date.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/domain/model"
)

// UnknownName is used for entities first seen without a name.
const UnknownName = "Unknown"

// ErrInvalidBatch is returned when the batch itself is unusable.
var ErrInvalidBatch = errors.New("invalid import batch")

// Store is the subset of the repository the importer needs.
type Store interface {
	FindEntityByTag(ctx context.Context, tag string) (model.Entity, error)
	CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error)
	FindSnapshot(ctx context.Context, entityID int64, date model.Date) (model.Snapshot, error)
	InsertSnapshot(ctx context.Context, s model.Snapshot) (model.Snapshot, error)
	UpdateSnapshotMagnitude(ctx context.Context, id int64, magnitude int64) error
}

// Result counts what a batch did.
type Result struct {
	CreatedEntities int `json:"created_entities"`
	Inserted        int `json:"inserted"`
	Updated         int `json:"updated"`
	Skipped         int `json:"skipped"`
}

// Importer applies batches.
type Importer struct {
	store Store
}

// NewImporter returns an importer writing to store.
func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Apply records every usable row of batch. Rows without a tag or with a
// non-positive power are skipped. A row for a known (entity, date)
// overwrites the stored magnitude.
func (im *Importer) Apply(ctx context.Context, batch model.ImportBatch) (Result, error) {
	var res Result
	if _, err := model.ParseDate(string(batch.Date)); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}

	for _, row := range batch.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tag := strings.TrimSpace(row.Tag)
		if tag == "" || row.Power <= 0 {
			res.Skipped++
			continue
		}

		entity, created, err := im.entity(ctx, tag, row.Name)
		if err != nil {
			return res, err
		}
		if created {
			res.CreatedEntities++
		}

		updated, err := im.record(ctx, entity.ID, tag, batch.Date, row.Power)
		if err != nil {
			return res, err
		}
		if updated {
			res.Updated++
		} else {
			res.Inserted++
		}
	}
	return res, nil
}

// record writes magnitude for (entityID, date), overwriting an existing
// snapshot. It reports whether an existing snapshot was updated.
func (im *Importer) record(ctx context.Context, entityID int64, tag string, date model.Date, magnitude int64) (bool, error) {
	existing, err := im.store.FindSnapshot(ctx, entityID, date)
	switch {
	case err == nil:
		if err := im.store.UpdateSnapshotMagnitude(ctx, existing.ID, magnitude); err != nil {
			return false, fmt.Errorf("update %s@%s: %w", tag, date, err)
		}
		return true, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("find %s@%s: %w", tag, date, err)
	}

	snap := model.Snapshot{EntityID: entityID, Magnitude: magnitude, Date: date}
	_, err = im.store.InsertSnapshot(ctx, snap)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return false, fmt.Errorf("insert %s@%s: %w", tag, date, err)
	}

	// another worker inserted the same (entity, date) first
	existing, err = im.store.FindSnapshot(ctx, entityID, date)
	if err != nil {
		return false, fmt.Errorf("find %s@%s: %w", tag, date, err)
	}
	if err := im.store.UpdateSnapshotMagnitude(ctx, existing.ID, magnitude); err != nil {
		return false, fmt.Errorf("update %s@%s: %w", tag, date, err)
	}
	return true, nil
}

func (im *Importer) entity(ctx context.Context, tag, name string) (model.Entity, bool, error) {
	e, err := im.store.FindEntityByTag(ctx, tag)
	if err == nil {
		return e, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Entity{}, false, fmt.Errorf("find entity %s: %w", tag, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownName
	}
	e, err = im.store.CreateEntity(ctx, model.Entity{Tag: tag, Name: name, Status: model.StatusNeutral})
	if errors.Is(err, repository.ErrAlreadyExists) {
		// another worker created it first
		e, err = im.store.FindEntityByTag(ctx, tag)
		if err != nil {
			return model.Entity{}, false, fmt.Errorf("find entity %s: %w", tag, err)
		}
		return e, false, nil
	}
	if err != nil {
		return model.Entity{}, false, fmt.Errorf("create entity %s: %w", tag, err)
	}
	return e, true, nil
}
