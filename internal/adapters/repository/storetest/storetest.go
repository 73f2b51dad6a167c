// Package storetest holds the behavioral suite every repository.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Run exercises a fresh store from newStore for every leaf scenario.
func Run(t *testing.T, newStore func() repository.Store) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := newStore()
		Reset(func() { _ = s.Close() })

		Convey("When creating entities", func() {
			a, err := s.CreateEntity(ctx, model.Entity{Tag: "AAA", Name: "Alpha"})
			So(err, ShouldBeNil)
			b, err := s.CreateEntity(ctx, model.Entity{Tag: "BBB", Name: "Bravo", Status: model.StatusTarget})
			So(err, ShouldBeNil)

			Convey("Then ids are assigned and status defaults to neutral", func() {
				So(a.ID, ShouldBeGreaterThan, 0)
				So(b.ID, ShouldBeGreaterThan, a.ID)
				So(a.Status, ShouldEqual, model.StatusNeutral)
				So(b.Status, ShouldEqual, model.StatusTarget)
			})

			Convey("Then they are listed by id and found by tag", func() {
				all, err := s.ListEntities(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(all[0].Tag, ShouldEqual, "AAA")

				got, err := s.FindEntityByTag(ctx, "BBB")
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, b.ID)
			})

			Convey("Then a duplicate tag is rejected", func() {
				_, err := s.CreateEntity(ctx, model.Entity{Tag: "AAA"})
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			})

			Convey("Then classification can be updated", func() {
				got, err := s.UpdateEntityClassification(ctx, a.ID, model.StatusSkip, "merged")
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusSkip)
				So(got.Notes, ShouldEqual, "merged")

				again, err := s.GetEntity(ctx, a.ID)
				So(err, ShouldBeNil)
				So(again.Notes, ShouldEqual, "merged")
			})
		})

		Convey("When looking up missing records", func() {
			_, err := s.GetEntity(ctx, 99)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.FindEntityByTag(ctx, "ZZZ")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.UpdateEntityClassification(ctx, 99, model.StatusTarget, "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.FindSnapshot(ctx, 1, "2025-01-01")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.DeleteSnapshot(ctx, 99), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.UpdateSnapshotMagnitude(ctx, 99, 1), repository.ErrNotFound), ShouldBeTrue)
			_, err = s.GetEvent(ctx, 99)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.DeleteEvent(ctx, 99), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When recording snapshots", func() {
			a, _ := s.CreateEntity(ctx, model.Entity{Tag: "AAA"})
			b, _ := s.CreateEntity(ctx, model.Entity{Tag: "BBB"})
			s1, err := s.InsertSnapshot(ctx, model.Snapshot{EntityID: a.ID, Magnitude: 200, Date: "2025-01-08"})
			So(err, ShouldBeNil)
			_, err = s.InsertSnapshot(ctx, model.Snapshot{EntityID: a.ID, Magnitude: 100, Date: "2025-01-01"})
			So(err, ShouldBeNil)
			_, err = s.InsertSnapshot(ctx, model.Snapshot{EntityID: b.ID, Magnitude: 50, Date: "2025-01-08"})
			So(err, ShouldBeNil)

			Convey("Then they are listed by date", func() {
				all, err := s.ListSnapshots(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 3)
				So(all[0].Date, ShouldEqual, model.Date("2025-01-01"))

				mine, err := s.ListEntitySnapshots(ctx, a.ID)
				So(err, ShouldBeNil)
				So(mine, ShouldHaveLength, 2)
				So(mine[1].ID, ShouldEqual, s1.ID)
			})

			Convey("Then a second snapshot for the same entity and date is rejected", func() {
				_, err := s.InsertSnapshot(ctx, model.Snapshot{EntityID: a.ID, Magnitude: 1, Date: "2025-01-08"})
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			})

			Convey("Then magnitudes can be overwritten", func() {
				So(s.UpdateSnapshotMagnitude(ctx, s1.ID, 999), ShouldBeNil)
				got, err := s.FindSnapshot(ctx, a.ID, "2025-01-08")
				So(err, ShouldBeNil)
				So(got.Magnitude, ShouldEqual, 999)
			})

			Convey("Then a single snapshot can be deleted", func() {
				So(s.DeleteSnapshot(ctx, s1.ID), ShouldBeNil)
				_, err := s.FindSnapshot(ctx, a.ID, "2025-01-08")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then a whole date can be deleted", func() {
				n, err := s.DeleteSnapshotsByDate(ctx, "2025-01-08")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				all, _ := s.ListSnapshots(ctx)
				So(all, ShouldHaveLength, 1)

				n, err = s.DeleteSnapshotsByDate(ctx, "2030-01-01")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When managing events", func() {
			late, err := s.CreateEvent(ctx, model.Event{Title: "Brawl", Type: model.EventBrawl, StartDate: "2025-04-01", EndDate: "2025-04-02"})
			So(err, ShouldBeNil)
			early, err := s.CreateEvent(ctx, model.Event{Title: "KvK", Type: model.EventKvK, StartDate: "2025-03-01", EndDate: "2025-03-20", Opponent: "K99"})
			So(err, ShouldBeNil)

			Convey("Then they are listed by start date", func() {
				all, err := s.ListEvents(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, early.ID)
				So(all[0].Opponent, ShouldEqual, "K99")
				So(all[1].ID, ShouldEqual, late.ID)
			})

			Convey("Then an event can be updated and deleted", func() {
				late.Outcome = "WIN"
				late.OutcomeNote = "close"
				_, err := s.UpdateEvent(ctx, late)
				So(err, ShouldBeNil)
				got, err := s.GetEvent(ctx, late.ID)
				So(err, ShouldBeNil)
				So(got.Outcome, ShouldEqual, "WIN")

				So(s.DeleteEvent(ctx, late.ID), ShouldBeNil)
				_, err = s.GetEvent(ctx, late.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then updating an unknown event fails", func() {
				_, err := s.UpdateEvent(ctx, model.Event{ID: 404, Title: "x"})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
