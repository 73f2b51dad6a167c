package api_test

import (
	"errors"
	"testing"

	"github.com/okian/powerwatch/internal/adapters/http/api"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpErrors(t *testing.T) {
	Convey("Given an underlying failure", t, func() {
		cause := errors.New("boom")

		Convey("NewKind tags the kind with the operation", func() {
			err := api.NewKind("api.op", api.ErrBadRequest)
			So(err.Error(), ShouldEqual, "api.op: bad request")
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		})

		Convey("Wrap keeps the cause reachable", func() {
			err := api.Wrap("api.op", cause)
			So(err.Error(), ShouldEqual, "api.op: boom")
			So(errors.Is(err, cause), ShouldBeTrue)
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})

		Convey("WrapKind exposes both kind and cause", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})
	})
}
