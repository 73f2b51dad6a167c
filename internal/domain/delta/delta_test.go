package delta_test

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/okian/powerwatch/internal/domain/delta"
	"github.com/okian/powerwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMagnitude(t *testing.T) {
	Convey("Given the default formatter", t, func() {
		f := delta.NewFormatter()

		Convey("Then millions get one decimal and an M", func() {
			So(f.Magnitude(1_500_000), ShouldEqual, "1.5M")
			So(f.Magnitude(820_000_000), ShouldEqual, "820.0M")
			So(f.Magnitude(1_000_000), ShouldEqual, "1.0M")
		})

		Convey("Then billions get two decimals and a B", func() {
			So(f.Magnitude(2_346_000_000), ShouldEqual, "2.35B")
			So(f.Magnitude(1_000_000_000), ShouldEqual, "1.00B")
		})

		Convey("Then values below a million are grouped in full", func() {
			So(f.Magnitude(999_999), ShouldEqual, "999,999")
			So(f.Magnitude(1_234), ShouldEqual, "1,234")
			So(f.Magnitude(0), ShouldEqual, "0")
		})
	})

	Convey("Given a German formatter", t, func() {
		f := delta.NewFormatter(delta.WithLanguage(language.German))
		So(f.Magnitude(999_999), ShouldEqual, "999.999")
	})

	Convey("Given an unparseable locale", t, func() {
		f := delta.NewFormatter(delta.WithLocale("!!"))
		So(f.Magnitude(12_345), ShouldEqual, "12,345")
	})
}

func TestChange(t *testing.T) {
	Convey("Given the default formatter", t, func() {
		f := delta.NewFormatter()

		Convey("Then zero is a dash", func() {
			So(f.Change(0), ShouldEqual, "-")
		})
		Convey("Then positives carry a plus sign", func() {
			So(f.Change(1_500_000), ShouldEqual, "+1.5M")
			So(f.Change(230_000), ShouldEqual, "+230.0k")
			So(f.Change(999), ShouldEqual, "+999")
			So(f.Change(3_000_000_000), ShouldEqual, "+3.00B")
		})
		Convey("Then negatives carry their own sign", func() {
			So(f.Change(-230_000), ShouldEqual, "-230.0k")
			So(f.Change(-1_000_000), ShouldEqual, "-1.0M")
			So(f.Change(-5), ShouldEqual, "-5")
		})
	})
}

func TestDelta(t *testing.T) {
	Convey("Given a current snapshot", t, func() {
		f := delta.NewFormatter()
		cur := model.Snapshot{Magnitude: 100_000_000, Date: "2025-01-15"}

		Convey("When the comparison is absent", func() {
			_, ok := f.Delta(cur, nil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the comparison has zero magnitude", func() {
			d, ok := f.Delta(cur, &model.Snapshot{Magnitude: 0})
			So(ok, ShouldBeTrue)
			So(d.Value, ShouldEqual, 100_000_000)
		})

		Convey("When the comparison is equal", func() {
			d, ok := f.Delta(cur, &model.Snapshot{Magnitude: 100_000_000})
			So(ok, ShouldBeTrue)
			So(d.Value, ShouldEqual, 0)
			So(d.Display, ShouldEqual, "-")
		})

		Convey("When the comparison is a week-old 150", func() {
			d := f.Between(model.Snapshot{Magnitude: 150}, cur)
			So(d.Value, ShouldEqual, 99_999_850)
			So(d.Display, ShouldEqual, "+100.0M")
		})
	})
}
