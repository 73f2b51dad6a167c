package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/adapters/repository/storetest"
	"github.com/okian/powerwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStore(t *testing.T) {
	storetest.Run(t, func() repository.Store {
		return repository.NewMemStore(context.Background())
	})
}

func TestMemStoreLifecycle(t *testing.T) {
	Convey("Given a memory store with a fast metrics interval", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := repository.NewMemStore(ctx, repository.WithMetricsUpdateInterval(time.Millisecond))

		_, err := s.CreateEntity(ctx, model.Entity{Tag: "AAA"})
		So(err, ShouldBeNil)
		time.Sleep(5 * time.Millisecond)

		Convey("Then Close is idempotent", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})
	})

	Convey("Given a snapshot for an unknown entity", t, func() {
		s := repository.NewMemStore(context.Background())
		defer s.Close()
		_, err := s.InsertSnapshot(context.Background(), model.Snapshot{EntityID: 7, Magnitude: 1, Date: "2025-01-01"})
		So(err, ShouldNotBeNil)
	})
}
