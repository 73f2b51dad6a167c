package model_test

import (
	"sort"
	"testing"
	"time"

	model "github.com/okian/powerwatch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDate(t *testing.T) {
	convey.Convey("Given calendar dates", t, func() {
		convey.Convey("When parsing well-formed and malformed input", func() {
			d, err := model.ParseDate("2025-03-14")
			convey.So(err, convey.ShouldBeNil)
			convey.So(d, convey.ShouldEqual, model.Date("2025-03-14"))

			_, err = model.ParseDate("14/03/2025")
			convey.So(err, convey.ShouldNotBeNil)
			_, err = model.ParseDate("2025-02-30")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When shifting by days across month and year boundaries", func() {
			convey.So(model.Date("2025-03-01").AddDays(-1), convey.ShouldEqual, model.Date("2025-02-28"))
			convey.So(model.Date("2024-12-31").AddDays(1), convey.ShouldEqual, model.Date("2025-01-01"))
			convey.So(model.Date("2025-01-31").AddDays(-30), convey.ShouldEqual, model.Date("2025-01-01"))
		})

		convey.Convey("When ordering lexically", func() {
			days := []model.Date{}
			start := time.Date(2023, 11, 25, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 800; i += 13 {
				days = append(days, model.DateOf(start.AddDate(0, 0, i)))
			}

			convey.Convey("Then lexical order equals chronological order", func() {
				for i := 1; i < len(days); i++ {
					convey.So(days[i-1] < days[i], convey.ShouldBeTrue)
					convey.So(days[i-1].Time().Before(days[i].Time()), convey.ShouldBeTrue)
				}
				shuffled := []model.Date{days[5], days[0], days[len(days)-1], days[2]}
				sort.Slice(shuffled, func(i, j int) bool { return shuffled[i] < shuffled[j] })
				convey.So(shuffled, convey.ShouldResemble, []model.Date{days[0], days[2], days[5], days[len(days)-1]})
			})
		})

		convey.Convey("When comparing with Between", func() {
			d := model.Date("2025-01-10")
			convey.So(d.Between("2025-01-10", "2025-01-10"), convey.ShouldBeTrue)
			convey.So(d.Between("2025-01-11", "2025-01-20"), convey.ShouldBeFalse)
		})
	})
}

func TestStatus(t *testing.T) {
	convey.Convey("Given status strings", t, func() {
		s, ok := model.ParseStatus("target")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(s, convey.ShouldEqual, model.StatusTarget)

		s, ok = model.ParseStatus("")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(s, convey.ShouldEqual, model.StatusNeutral)

		_, ok = model.ParseStatus("ally")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestEvent(t *testing.T) {
	convey.Convey("Given an Event", t, func() {
		ev := model.Event{
			Title:     "KvK S3",
			Type:      model.EventKvK,
			StartDate: "2025-03-01",
			EndDate:   "2025-03-10",
		}

		convey.Convey("When it is well formed", func() {
			convey.So(ev.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When end precedes start", func() {
			ev.EndDate = "2025-02-27"
			convey.So(ev.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the type is unknown", func() {
			ev.Type = "RAID"
			convey.So(ev.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the title is blank", func() {
			ev.Title = "  "
			convey.So(ev.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When placing it relative to a day", func() {
			convey.So(ev.PhaseOn("2025-02-28"), convey.ShouldEqual, model.PhaseUpcoming)
			convey.So(ev.PhaseOn("2025-03-01"), convey.ShouldEqual, model.PhaseCurrent)
			convey.So(ev.PhaseOn("2025-03-10"), convey.ShouldEqual, model.PhaseCurrent)
			convey.So(ev.PhaseOn("2025-03-11"), convey.ShouldEqual, model.PhasePast)
		})
	})
}
