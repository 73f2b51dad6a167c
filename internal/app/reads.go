package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/powerwatch/internal/domain/dashboard"
	"github.com/okian/powerwatch/internal/domain/delta"
	"github.com/okian/powerwatch/internal/domain/growth"
	"github.com/okian/powerwatch/internal/domain/history"
	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/metrics"
)

// loadAll reads entities and snapshots concurrently.
func (s *Service) loadAll(ctx context.Context) ([]model.Entity, []model.Snapshot, error) {
	var entities []model.Entity
	var snapshots []model.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entities, err = s.store.ListEntities(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshots, err = s.store.ListSnapshots(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load alliances: %w", err)
	}
	return entities, snapshots, nil
}

// Dates returns every date with at least one snapshot, newest first.
func (s *Service) Dates(ctx context.Context) ([]model.Date, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	snapshots, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	dates := history.Dates(snapshots)
	if dates == nil {
		dates = []model.Date{}
	}
	metrics.UpdateAvailableDates(len(dates))
	return dates, nil
}

// Dashboard assembles the view for date, or for the newest date when
// date is empty.
func (s *Service) Dashboard(ctx context.Context, date model.Date) (dashboard.View, error) {
	if err := s.running(); err != nil {
		return dashboard.View{}, err
	}
	start := time.Now()

	entities, snapshots, err := s.loadAll(ctx)
	if err != nil {
		return dashboard.View{}, err
	}
	available := history.Dates(snapshots)
	if available == nil {
		available = []model.Date{}
	}
	if date.IsZero() && len(available) > 0 {
		date = available[0]
	}

	view := s.assembler.Assemble(entities, snapshots, date, available)

	metrics.RecordDashboardView(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateAvailableDates(len(available))
	return view, nil
}

// HistoryPoint is one rendered snapshot of an entity.
type HistoryPoint struct {
	model.Snapshot
	Display string `json:"display"`
}

// EntityDetail is an entity with its full history.
type EntityDetail struct {
	Entity  model.Entity   `json:"entity"`
	History []HistoryPoint `json:"history"`
	// Growth is the change from the first to the latest snapshot.
	Growth *delta.Delta `json:"growth,omitempty"`
}

// EntityDetail returns an entity with its history ascending by date.
func (s *Service) EntityDetail(ctx context.Context, id int64) (EntityDetail, error) {
	if err := s.running(); err != nil {
		return EntityDetail{}, err
	}

	var d EntityDetail
	var snaps []model.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Entity, err = s.store.GetEntity(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		snaps, err = s.store.ListEntitySnapshots(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return EntityDetail{}, fmt.Errorf("entity detail: %w", err)
	}

	h := history.Build(snaps)[id]
	d.History = make([]HistoryPoint, 0, len(h))
	for _, snap := range h {
		d.History = append(d.History, HistoryPoint{Snapshot: snap, Display: s.formatter.Magnitude(snap.Magnitude)})
	}
	if len(h) > 1 {
		first, _ := h.First()
		latest, _ := h.Latest()
		change := s.formatter.Between(first, latest)
		d.Growth = &change
	}
	return d, nil
}

// Change is a single lookback comparison for one entity.
type Change struct {
	EntityID   int64           `json:"entity_id"`
	Date       model.Date      `json:"date"`
	Lookback   int             `json:"lookback_days"`
	Present    bool            `json:"present"`
	Current    *model.Snapshot `json:"current,omitempty"`
	Comparison *model.Snapshot `json:"comparison,omitempty"`
	Cell       dashboard.Cell  `json:"change"`
}

// Change resolves the lookback window for one entity on date. An entity
// with no snapshot on date is reported as not present.
func (s *Service) Change(ctx context.Context, id int64, date model.Date, lookback int) (Change, error) {
	if err := s.running(); err != nil {
		return Change{}, err
	}
	if !history.ValidLookback(lookback) {
		return Change{}, fmt.Errorf("%w: lookback must be 0, 7 or 30", ErrInvalidInput)
	}
	if _, err := s.store.GetEntity(ctx, id); err != nil {
		return Change{}, fmt.Errorf("entity change: %w", err)
	}
	snaps, err := s.store.ListEntitySnapshots(ctx, id)
	if err != nil {
		return Change{}, fmt.Errorf("entity change: %w", err)
	}

	h := history.Build(snaps)[id]
	if date.IsZero() {
		if latest, ok := h.Latest(); ok {
			date = latest.Date
		}
	}
	out := Change{EntityID: id, Date: date, Lookback: lookback, Cell: dashboard.Cell{Display: delta.NotAvailable}}

	cur, ok := h.At(date)
	if !ok {
		return out, nil
	}
	out.Present = true
	out.Current = &cur
	out.Comparison = h.Resolve(date, lookback)
	if d, ok := s.formatter.Delta(cur, out.Comparison); ok {
		v := d.Value
		out.Cell = dashboard.Cell{Value: &v, Display: d.Display}
	}
	return out, nil
}

// Target is an entity with its most recent magnitude.
type Target struct {
	Entity     model.Entity `json:"entity"`
	LatestDate model.Date   `json:"latest_date,omitempty"`
	Magnitude  *int64       `json:"magnitude"`
	Display    string       `json:"display"`
}

// Targets lists entities with the given status (all when empty) ordered
// by name, each with its latest magnitude.
func (s *Service) Targets(ctx context.Context, status model.Status) ([]Target, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	entities, snapshots, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := history.Build(snapshots)

	out := []Target{}
	for _, e := range entities {
		if status != "" && e.Status != status {
			continue
		}
		t := Target{Entity: e, Display: delta.NotAvailable}
		if latest, ok := idx[e.ID].Latest(); ok {
			m := latest.Magnitude
			t.Magnitude = &m
			t.LatestDate = latest.Date
			t.Display = s.formatter.Magnitude(m)
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Entity.Name) < strings.ToLower(out[j].Entity.Name)
	})
	return out, nil
}

// EventView is an event placed relative to today.
type EventView struct {
	model.Event
	Phase model.Phase `json:"phase"`
}

// Events lists events by start date with their phase.
func (s *Service) Events(ctx context.Context) ([]EventView, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	today := model.DateOf(s.clock.Now())
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, EventView{Event: e, Phase: e.PhaseOn(today)})
	}
	return out, nil
}

// EventReport is the growth ranking over an event's range.
type EventReport struct {
	Event EventView          `json:"event"`
	Rows  []growth.RankedRow `json:"rows"`
}

// EventReport ranks entities by growth over the event's dates.
func (s *Service) EventReport(ctx context.Context, id int64) (EventReport, error) {
	if err := s.running(); err != nil {
		return EventReport{}, err
	}
	start := time.Now()

	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return EventReport{}, fmt.Errorf("event report: %w", err)
	}
	entities, snapshots, err := s.loadAll(ctx)
	if err != nil {
		return EventReport{}, err
	}
	rows := s.reporter.Report(entities, snapshots, ev.StartDate, ev.EndDate)

	metrics.RecordGrowthReport("event", float64(time.Since(start).Microseconds())/1000)
	return EventReport{
		Event: EventView{Event: ev, Phase: ev.PhaseOn(model.DateOf(s.clock.Now()))},
		Rows:  rows,
	}, nil
}

// RangeReport ranks entities by growth between start and end inclusive.
func (s *Service) RangeReport(ctx context.Context, start, end model.Date) ([]growth.RankedRow, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	began := time.Now()

	if _, err := model.ParseDate(string(start)); err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidInput, err)
	}
	if _, err := model.ParseDate(string(end)); err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidInput, err)
	}
	entities, snapshots, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := s.reporter.Report(entities, snapshots, start, end)

	metrics.RecordGrowthReport("range", float64(time.Since(began).Microseconds())/1000)
	return rows, nil
}
