// Package sqlite provides a SQLite-backed repository.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/logger"
	"github.com/okian/powerwatch/pkg/metrics"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store persists alliances, snapshots and events in SQLite.
type Store struct {
	db          *sql.DB
	log         logger.Logger
	busyTimeout time.Duration
}

var _ repository.Store = (*Store)(nil)

// Open opens the database at path, creating parent directories, and
// applies embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	s := &Store{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	if path != MemoryPath {
		path = filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, s.busyTimeout.Milliseconds())
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, db, s.log); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(op string, write bool, start time.Time, err error) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	if write {
		metrics.RecordStoreUpdateLatency(op, ms)
	} else {
		metrics.RecordStoreQueryLatency(op, ms)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

// mapErr converts driver constraint failures into repository sentinels.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", what, repository.ErrAlreadyExists)
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}

const entityColumns = "id, tag, name, status, notes"

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (model.Entity, error) {
	var e model.Entity
	var status string
	if err := row.Scan(&e.ID, &e.Tag, &e.Name, &status, &e.Notes); err != nil {
		return model.Entity{}, err
	}
	e.Status = model.Status(status)
	return e, nil
}

// ListEntities implements repository.EntityStore.
func (s *Store) ListEntities(ctx context.Context) (out []model.Entity, err error) {
	defer func(start time.Time) { observe("list_entities", false, start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, "SELECT "+entityColumns+" FROM entities ORDER BY id")
	if err != nil {
		return nil, mapErr(err, "list entities")
	}
	defer rows.Close()

	out = []model.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, mapErr(err, "scan entity")
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err(), "list entities")
}

// GetEntity implements repository.EntityStore.
func (s *Store) GetEntity(ctx context.Context, id int64) (e model.Entity, err error) {
	defer func(start time.Time) { observe("get_entity", false, start, err) }(time.Now())

	e, err = scanEntity(s.db.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE id = ?", id))
	return e, mapErr(err, fmt.Sprintf("entity %d", id))
}

// FindEntityByTag implements repository.EntityStore.
func (s *Store) FindEntityByTag(ctx context.Context, tag string) (e model.Entity, err error) {
	defer func(start time.Time) { observe("find_entity_by_tag", false, start, err) }(time.Now())

	e, err = scanEntity(s.db.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE tag = ?", tag))
	return e, mapErr(err, fmt.Sprintf("entity tag %q", tag))
}

// CreateEntity implements repository.EntityStore.
func (s *Store) CreateEntity(ctx context.Context, e model.Entity) (_ model.Entity, err error) {
	defer func(start time.Time) { observe("create_entity", true, start, err) }(time.Now())

	if e.Status == "" {
		e.Status = model.StatusNeutral
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO entities (tag, name, status, notes) VALUES (?, ?, ?, ?)",
		e.Tag, e.Name, string(e.Status), e.Notes)
	if err != nil {
		return model.Entity{}, mapErr(err, fmt.Sprintf("entity tag %q", e.Tag))
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return model.Entity{}, fmt.Errorf("entity id: %w", err)
	}
	return e, nil
}

// UpdateEntityClassification implements repository.EntityStore.
func (s *Store) UpdateEntityClassification(ctx context.Context, id int64, status model.Status, notes string) (_ model.Entity, err error) {
	defer func(start time.Time) { observe("update_entity", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, "UPDATE entities SET status = ?, notes = ? WHERE id = ?", string(status), notes, id)
	if err != nil {
		return model.Entity{}, mapErr(err, fmt.Sprintf("entity %d", id))
	}
	if err = affected(res, fmt.Sprintf("entity %d", id)); err != nil {
		return model.Entity{}, err
	}
	return s.GetEntity(ctx, id)
}

const snapshotColumns = "id, entity_id, magnitude, recorded_on"

func scanSnapshot(row scanner) (model.Snapshot, error) {
	var snap model.Snapshot
	var date string
	if err := row.Scan(&snap.ID, &snap.EntityID, &snap.Magnitude, &date); err != nil {
		return model.Snapshot{}, err
	}
	snap.Date = model.Date(date)
	return snap, nil
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "list snapshots")
	}
	defer rows.Close()

	out := []model.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, mapErr(err, "scan snapshot")
		}
		out = append(out, snap)
	}
	return out, mapErr(rows.Err(), "list snapshots")
}

// ListSnapshots implements repository.SnapshotStore.
func (s *Store) ListSnapshots(ctx context.Context) (out []model.Snapshot, err error) {
	defer func(start time.Time) { observe("list_snapshots", false, start, err) }(time.Now())
	return s.querySnapshots(ctx, "SELECT "+snapshotColumns+" FROM snapshots ORDER BY recorded_on, id")
}

// ListEntitySnapshots implements repository.SnapshotStore.
func (s *Store) ListEntitySnapshots(ctx context.Context, entityID int64) (out []model.Snapshot, err error) {
	defer func(start time.Time) { observe("list_entity_snapshots", false, start, err) }(time.Now())
	return s.querySnapshots(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots WHERE entity_id = ? ORDER BY recorded_on, id", entityID)
}

// FindSnapshot implements repository.SnapshotStore.
func (s *Store) FindSnapshot(ctx context.Context, entityID int64, date model.Date) (snap model.Snapshot, err error) {
	defer func(start time.Time) { observe("find_snapshot", false, start, err) }(time.Now())

	snap, err = scanSnapshot(s.db.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots WHERE entity_id = ? AND recorded_on = ?", entityID, string(date)))
	return snap, mapErr(err, fmt.Sprintf("snapshot %d@%s", entityID, date))
}

// InsertSnapshot implements repository.SnapshotStore.
func (s *Store) InsertSnapshot(ctx context.Context, snap model.Snapshot) (_ model.Snapshot, err error) {
	defer func(start time.Time) { observe("insert_snapshot", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO snapshots (entity_id, magnitude, recorded_on) VALUES (?, ?, ?)",
		snap.EntityID, snap.Magnitude, string(snap.Date))
	if err != nil {
		return model.Snapshot{}, mapErr(err, fmt.Sprintf("snapshot %d@%s", snap.EntityID, snap.Date))
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return model.Snapshot{}, fmt.Errorf("snapshot id: %w", err)
	}
	return snap, nil
}

// UpdateSnapshotMagnitude implements repository.SnapshotStore.
func (s *Store) UpdateSnapshotMagnitude(ctx context.Context, id int64, magnitude int64) (err error) {
	defer func(start time.Time) { observe("update_snapshot", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, "UPDATE snapshots SET magnitude = ? WHERE id = ?", magnitude, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("snapshot %d", id))
	}
	return affected(res, fmt.Sprintf("snapshot %d", id))
}

// DeleteSnapshot implements repository.SnapshotStore.
func (s *Store) DeleteSnapshot(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { observe("delete_snapshot", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("snapshot %d", id))
	}
	return affected(res, fmt.Sprintf("snapshot %d", id))
}

// DeleteSnapshotsByDate implements repository.SnapshotStore.
func (s *Store) DeleteSnapshotsByDate(ctx context.Context, date model.Date) (n int, err error) {
	defer func(start time.Time) { observe("delete_snapshots_by_date", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE recorded_on = ?", string(date))
	if err != nil {
		return 0, mapErr(err, fmt.Sprintf("snapshots on %s", date))
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("snapshots on %s: %w", date, err)
	}
	return int(count), nil
}

const eventColumns = "id, title, event_type, start_date, end_date, description, opponent, outcome, outcome_note"

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	var typ, start, end string
	if err := row.Scan(&e.ID, &e.Title, &typ, &start, &end, &e.Description, &e.Opponent, &e.Outcome, &e.OutcomeNote); err != nil {
		return model.Event{}, err
	}
	e.Type, e.StartDate, e.EndDate = model.EventType(typ), model.Date(start), model.Date(end)
	return e, nil
}

// ListEvents implements repository.EventStore.
func (s *Store) ListEvents(ctx context.Context) (out []model.Event, err error) {
	defer func(start time.Time) { observe("list_events", false, start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events ORDER BY start_date, id")
	if err != nil {
		return nil, mapErr(err, "list events")
	}
	defer rows.Close()

	out = []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr(err, "scan event")
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err(), "list events")
}

// GetEvent implements repository.EventStore.
func (s *Store) GetEvent(ctx context.Context, id int64) (e model.Event, err error) {
	defer func(start time.Time) { observe("get_event", false, start, err) }(time.Now())

	e, err = scanEvent(s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	return e, mapErr(err, fmt.Sprintf("event %d", id))
}

// CreateEvent implements repository.EventStore.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) (_ model.Event, err error) {
	defer func(start time.Time) { observe("create_event", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (title, event_type, start_date, end_date, description, opponent, outcome, outcome_note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, string(e.Type), string(e.StartDate), string(e.EndDate), e.Description, e.Opponent, e.Outcome, e.OutcomeNote)
	if err != nil {
		return model.Event{}, mapErr(err, "create event")
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return model.Event{}, fmt.Errorf("event id: %w", err)
	}
	return e, nil
}

// UpdateEvent implements repository.EventStore.
func (s *Store) UpdateEvent(ctx context.Context, e model.Event) (_ model.Event, err error) {
	defer func(start time.Time) { observe("update_event", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, event_type = ?, start_date = ?, end_date = ?,
		 description = ?, opponent = ?, outcome = ?, outcome_note = ? WHERE id = ?`,
		e.Title, string(e.Type), string(e.StartDate), string(e.EndDate), e.Description, e.Opponent, e.Outcome, e.OutcomeNote, e.ID)
	if err != nil {
		return model.Event{}, mapErr(err, fmt.Sprintf("event %d", e.ID))
	}
	if err = affected(res, fmt.Sprintf("event %d", e.ID)); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// DeleteEvent implements repository.EventStore.
func (s *Store) DeleteEvent(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { observe("delete_event", true, start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("event %d", id))
	}
	return affected(res, fmt.Sprintf("event %d", id))
}
