package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/powerwatch/internal/app"
	"github.com/okian/powerwatch/internal/domain/ingest"
	"github.com/okian/powerwatch/internal/domain/model"
)

// waitForDates polls until n dates are available or the deadline passes.
func waitForDates(ctx context.Context, svc *service.Service, n int) []model.Date {
	deadline := time.Now().Add(5 * time.Second)
	for {
		dates, err := svc.Dates(ctx)
		if (err == nil && len(dates) >= n) || time.Now().After(deadline) {
			return dates
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestService_Imports(t *testing.T) {
	Convey("Given a running service with an in-memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithDedupeSize(100),
			service.WithClock(clockwork.NewFakeClock()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(context.Background()) })

		Convey("When three weekly batches are submitted", func() {
			batches := []model.ImportBatch{
				{Date: "2025-01-01", Rows: []model.ImportRow{{Tag: "A", Name: "Alpha", Power: 1_000_000_000}}},
				{Date: "2025-01-08", Rows: []model.ImportRow{{Tag: "A", Name: "Alpha", Power: 1_100_000_000}}},
				{Date: "2025-01-15", Rows: []model.ImportRow{
					{Tag: "A", Name: "Alpha", Power: 1_200_000_000},
					{Tag: "", Name: "ghost", Power: 10},
					{Tag: "Z", Power: 0},
				}},
			}
			for _, b := range batches {
				sub, err := svc.SubmitImport(ctx, b)
				So(err, ShouldBeNil)
				So(sub.Duplicate, ShouldBeFalse)
				So(sub.BatchID, ShouldEqual, ingest.BatchID(b.Date, b.Rows))
			}

			dates := waitForDates(ctx, svc, 3)

			Convey("Then the dashboard shows the weekly growth", func() {
				So(dates, ShouldHaveLength, 3)
				view, err := svc.Dashboard(ctx, "2025-01-15")
				So(err, ShouldBeNil)
				So(view.Rows, ShouldHaveLength, 1)
				So(view.Rows[0].Entity.Name, ShouldEqual, "Alpha")
				So(view.Rows[0].Last.Display, ShouldEqual, "+100.0M")
				So(view.Rows[0].Week.Display, ShouldEqual, "+100.0M")
				So(view.Rows[0].Month.Display, ShouldEqual, "n/a")
			})

			Convey("Then resubmitting a batch is reported as a duplicate", func() {
				sub, err := svc.SubmitImport(ctx, batches[0])
				So(err, ShouldBeNil)
				So(sub.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When a batch overwrites an earlier import for the same date", func() {
			_, err := svc.SubmitImport(ctx, model.ImportBatch{ID: "first", Date: "2025-03-01",
				Rows: []model.ImportRow{{Tag: "A", Power: 100}}})
			So(err, ShouldBeNil)
			waitForDates(ctx, svc, 1)

			_, err = svc.SubmitImport(ctx, model.ImportBatch{ID: "second", Date: "2025-03-01",
				Rows: []model.ImportRow{{Tag: "A", Power: 250}}})
			So(err, ShouldBeNil)

			Convey("Then one snapshot remains with the newer magnitude", func() {
				var targets []service.Target
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					targets, err = svc.Targets(ctx, "")
					So(err, ShouldBeNil)
					if len(targets) == 1 && targets[0].Magnitude != nil && *targets[0].Magnitude == 250 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(targets, ShouldHaveLength, 1)
				So(*targets[0].Magnitude, ShouldEqual, 250)
				So(targets[0].Entity.Name, ShouldEqual, ingest.UnknownName)

				d, err := svc.EntityDetail(ctx, targets[0].Entity.ID)
				So(err, ShouldBeNil)
				So(d.History, ShouldHaveLength, 1)
			})
		})

		Convey("When a batch is malformed", func() {
			_, err := svc.SubmitImport(ctx, model.ImportBatch{Date: "01/02/2025", Rows: []model.ImportRow{{Tag: "A", Power: 1}}})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			_, err = svc.SubmitImport(ctx, model.ImportBatch{Date: "2025-01-02"})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
