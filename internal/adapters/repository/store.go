// Package repository defines the alliance store interfaces and errors.
package repository

import (
	"context"

	"github.com/okian/powerwatch/internal/domain/model"
)

// EntityStore persists tracked alliances.
type EntityStore interface {
	// ListEntities returns all entities ordered by id.
	ListEntities(ctx context.Context) ([]model.Entity, error)
	// GetEntity returns ErrNotFound if id is unknown.
	GetEntity(ctx context.Context, id int64) (model.Entity, error)
	// FindEntityByTag returns ErrNotFound if no entity carries tag.
	FindEntityByTag(ctx context.Context, tag string) (model.Entity, error)
	// CreateEntity assigns an id. Returns ErrAlreadyExists on a duplicate tag.
	CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error)
	// UpdateEntityClassification sets status and notes.
	UpdateEntityClassification(ctx context.Context, id int64, status model.Status, notes string) (model.Entity, error)
}

// SnapshotStore persists dated power measurements.
type SnapshotStore interface {
	// ListSnapshots returns every snapshot ordered by date then id.
	ListSnapshots(ctx context.Context) ([]model.Snapshot, error)
	// ListEntitySnapshots returns one entity's snapshots ordered by date.
	ListEntitySnapshots(ctx context.Context, entityID int64) ([]model.Snapshot, error)
	// FindSnapshot returns ErrNotFound if the entity has nothing on date.
	FindSnapshot(ctx context.Context, entityID int64, date model.Date) (model.Snapshot, error)
	// InsertSnapshot returns ErrAlreadyExists if (entity, date) is taken.
	InsertSnapshot(ctx context.Context, s model.Snapshot) (model.Snapshot, error)
	UpdateSnapshotMagnitude(ctx context.Context, id int64, magnitude int64) error
	DeleteSnapshot(ctx context.Context, id int64) error
	// DeleteSnapshotsByDate removes every snapshot on date and reports how many.
	DeleteSnapshotsByDate(ctx context.Context, date model.Date) (int, error)
}

// EventStore persists named date ranges.
type EventStore interface {
	// ListEvents returns events ordered by start date.
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) (model.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	EntityStore
	SnapshotStore
	EventStore
	Close() error
}
