package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/metrics"
)

type snapshotKey struct {
	entityID int64
	date     model.Date
}

// MemStore is an in-memory Store guarded by a single RWMutex.
// Snapshots are unique per (entity, date) and tags are unique.
type MemStore struct {
	mu        sync.RWMutex
	entities  map[int64]model.Entity
	byTag     map[string]int64
	snapshots map[int64]model.Snapshot
	byKey     map[snapshotKey]int64
	events    map[int64]model.Event

	nextEntity, nextSnapshot, nextEvent int64

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	closed   bool
}

var _ Store = (*MemStore)(nil)

// NewMemStore constructs an empty store and starts its metrics updater.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		entities:              make(map[int64]model.Entity),
		byTag:                 make(map[string]int64),
		snapshots:             make(map[int64]model.Snapshot),
		byKey:                 make(map[snapshotKey]int64),
		events:                make(map[int64]model.Event),
		metricsUpdateInterval: metrics.RefreshInterval(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemStore) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemStore) updateMetrics() {
	s.mu.RLock()
	entities, snapshots := len(s.entities), len(s.snapshots)
	s.mu.RUnlock()
	metrics.UpdateTrackedEntities(entities)
	metrics.UpdateTrackedSnapshots(snapshots)
}

func observeQuery(op string, start time.Time) {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func observeUpdate(op string, start time.Time) {
	metrics.RecordStoreUpdateLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// ListEntities implements EntityStore.
func (s *MemStore) ListEntities(ctx context.Context) ([]model.Entity, error) {
	defer observeQuery("list_entities", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetEntity implements EntityStore.
func (s *MemStore) GetEntity(ctx context.Context, id int64) (model.Entity, error) {
	defer observeQuery("get_entity", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return model.Entity{}, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	return e, nil
}

// FindEntityByTag implements EntityStore.
func (s *MemStore) FindEntityByTag(ctx context.Context, tag string) (model.Entity, error) {
	defer observeQuery("find_entity_by_tag", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTag[tag]
	if !ok {
		return model.Entity{}, fmt.Errorf("entity tag %q: %w", tag, ErrNotFound)
	}
	return s.entities[id], nil
}

// CreateEntity implements EntityStore.
func (s *MemStore) CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	defer observeUpdate("create_entity", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTag[e.Tag]; ok {
		return model.Entity{}, fmt.Errorf("entity tag %q: %w", e.Tag, ErrAlreadyExists)
	}
	if e.Status == "" {
		e.Status = model.StatusNeutral
	}
	s.nextEntity++
	e.ID = s.nextEntity
	s.entities[e.ID] = e
	s.byTag[e.Tag] = e.ID
	return e, nil
}

// UpdateEntityClassification implements EntityStore.
func (s *MemStore) UpdateEntityClassification(ctx context.Context, id int64, status model.Status, notes string) (model.Entity, error) {
	defer observeUpdate("update_entity", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return model.Entity{}, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	e.Status = status
	e.Notes = notes
	s.entities[id] = e
	return e, nil
}

// ListSnapshots implements SnapshotStore.
func (s *MemStore) ListSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	defer observeQuery("list_snapshots", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sortSnapshots(out)
	return out, nil
}

// ListEntitySnapshots implements SnapshotStore.
func (s *MemStore) ListEntitySnapshots(ctx context.Context, entityID int64) ([]model.Snapshot, error) {
	defer observeQuery("list_entity_snapshots", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Snapshot
	for _, snap := range s.snapshots {
		if snap.EntityID == entityID {
			out = append(out, snap)
		}
	}
	sortSnapshots(out)
	return out, nil
}

// FindSnapshot implements SnapshotStore.
func (s *MemStore) FindSnapshot(ctx context.Context, entityID int64, date model.Date) (model.Snapshot, error) {
	defer observeQuery("find_snapshot", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[snapshotKey{entityID, date}]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("snapshot %d@%s: %w", entityID, date, ErrNotFound)
	}
	return s.snapshots[id], nil
}

// InsertSnapshot implements SnapshotStore.
func (s *MemStore) InsertSnapshot(ctx context.Context, snap model.Snapshot) (model.Snapshot, error) {
	defer observeUpdate("insert_snapshot", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[snap.EntityID]; !ok {
		return model.Snapshot{}, fmt.Errorf("entity %d: %w", snap.EntityID, ErrNotFound)
	}
	key := snapshotKey{snap.EntityID, snap.Date}
	if _, ok := s.byKey[key]; ok {
		return model.Snapshot{}, fmt.Errorf("snapshot %d@%s: %w", snap.EntityID, snap.Date, ErrAlreadyExists)
	}
	s.nextSnapshot++
	snap.ID = s.nextSnapshot
	s.snapshots[snap.ID] = snap
	s.byKey[key] = snap.ID
	return snap, nil
}

// UpdateSnapshotMagnitude implements SnapshotStore.
func (s *MemStore) UpdateSnapshotMagnitude(ctx context.Context, id int64, magnitude int64) error {
	defer observeUpdate("update_snapshot", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	snap.Magnitude = magnitude
	s.snapshots[id] = snap
	return nil
}

// DeleteSnapshot implements SnapshotStore.
func (s *MemStore) DeleteSnapshot(ctx context.Context, id int64) error {
	defer observeUpdate("delete_snapshot", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[id]
	if !ok {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	delete(s.snapshots, id)
	delete(s.byKey, snapshotKey{snap.EntityID, snap.Date})
	return nil
}

// DeleteSnapshotsByDate implements SnapshotStore.
func (s *MemStore) DeleteSnapshotsByDate(ctx context.Context, date model.Date) (int, error) {
	defer observeUpdate("delete_snapshots_by_date", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, snap := range s.snapshots {
		if snap.Date != date {
			continue
		}
		delete(s.snapshots, id)
		delete(s.byKey, snapshotKey{snap.EntityID, snap.Date})
		n++
	}
	return n, nil
}

// ListEvents implements EventStore.
func (s *MemStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	defer observeQuery("list_events", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate < out[j].StartDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetEvent implements EventStore.
func (s *MemStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	defer observeQuery("get_event", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return e, nil
}

// CreateEvent implements EventStore.
func (s *MemStore) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	defer observeUpdate("create_event", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEvent++
	e.ID = s.nextEvent
	s.events[e.ID] = e
	return e, nil
}

// UpdateEvent implements EventStore.
func (s *MemStore) UpdateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	defer observeUpdate("update_event", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return model.Event{}, fmt.Errorf("event %d: %w", e.ID, ErrNotFound)
	}
	s.events[e.ID] = e
	return e, nil
}

// DeleteEvent implements EventStore.
func (s *MemStore) DeleteEvent(ctx context.Context, id int64) error {
	defer observeUpdate("delete_event", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

func sortSnapshots(out []model.Snapshot) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
}
