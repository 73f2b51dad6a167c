package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/adapters/repository/sqlite"
	"github.com/okian/powerwatch/internal/adapters/repository/storetest"
	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func() repository.Store {
		s, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty path", t, func() {
		_, err := sqlite.Open(ctx, "  ")
		So(err, ShouldNotBeNil)
	})

	Convey("Given a database file in a nested directory", t, func() {
		So(logger.Init(), ShouldBeNil)
		path := filepath.Join(t.TempDir(), "data", "powerwatch.db")

		s, err := sqlite.Open(ctx, path, sqlite.WithLogger(logger.Named("migrations")))
		So(err, ShouldBeNil)
		e, err := s.CreateEntity(ctx, model.Entity{Tag: "AAA", Name: "Alpha"})
		So(err, ShouldBeNil)
		_, err = s.InsertSnapshot(ctx, model.Snapshot{EntityID: e.ID, Magnitude: 10, Date: "2025-01-01"})
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			again, err := sqlite.Open(ctx, path)
			So(err, ShouldBeNil)
			defer again.Close()

			Convey("Then migrations are not reapplied and data survives", func() {
				got, err := again.FindEntityByTag(ctx, "AAA")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "Alpha")
				snaps, err := again.ListEntitySnapshots(ctx, got.ID)
				So(err, ShouldBeNil)
				So(snaps, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a snapshot for an unknown entity", t, func() {
		s, err := sqlite.Open(ctx, sqlite.MemoryPath)
		So(err, ShouldBeNil)
		defer s.Close()

		_, err = s.InsertSnapshot(ctx, model.Snapshot{EntityID: 42, Magnitude: 1, Date: "2025-01-01"})
		Convey("Then the foreign key failure reads as not found", func() {
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
