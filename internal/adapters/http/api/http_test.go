package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/powerwatch/internal/adapters/http/api"
	"github.com/okian/powerwatch/internal/adapters/repository"
	service "github.com/okian/powerwatch/internal/app"
	"github.com/okian/powerwatch/internal/domain/dashboard"
	"github.com/okian/powerwatch/internal/domain/growth"
	"github.com/okian/powerwatch/internal/domain/model"
	"github.com/okian/powerwatch/pkg/logger"
)

const (
	adminToken     = "admin-secret"
	recruiterToken = "recruiter-secret"
)

// mockDependencies records calls and returns canned data.
type mockDependencies struct {
	err        error
	submission service.Submission
	submitted  []model.ImportBatch
	patched    []service.EntityPatch
	lastDate   model.Date
	lookback   int
	deletedIDs []int64
}

func (m *mockDependencies) Dates(context.Context) ([]model.Date, error) {
	return []model.Date{"2025-01-15", "2025-01-08"}, m.err
}

func (m *mockDependencies) Dashboard(_ context.Context, date model.Date) (dashboard.View, error) {
	m.lastDate = date
	if m.err != nil {
		return dashboard.View{}, m.err
	}
	return dashboard.View{Date: "2025-01-15", AvailableDates: []model.Date{"2025-01-15"}, Rows: []dashboard.Row{}, Dropped: []dashboard.Dropout{}}, nil
}

func (m *mockDependencies) Targets(_ context.Context, status model.Status) ([]service.Target, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []service.Target{{Entity: model.Entity{ID: 1, Tag: "A", Name: "Alpha", Status: status}, Display: "n/a"}}, nil
}

func (m *mockDependencies) EntityDetail(_ context.Context, id int64) (service.EntityDetail, error) {
	if m.err != nil {
		return service.EntityDetail{}, m.err
	}
	return service.EntityDetail{Entity: model.Entity{ID: id, Tag: "A"}, History: []service.HistoryPoint{}}, nil
}

func (m *mockDependencies) Change(_ context.Context, id int64, date model.Date, lookback int) (service.Change, error) {
	m.lastDate, m.lookback = date, lookback
	return service.Change{EntityID: id, Date: date, Lookback: lookback, Cell: dashboard.Cell{Display: "n/a"}}, m.err
}

func (m *mockDependencies) UpdateEntity(_ context.Context, id int64, patch service.EntityPatch) (model.Entity, error) {
	m.patched = append(m.patched, patch)
	if m.err != nil {
		return model.Entity{}, m.err
	}
	e := model.Entity{ID: id, Status: model.StatusNeutral}
	if patch.Status != nil {
		e.Status, _ = model.ParseStatus(*patch.Status)
	}
	return e, nil
}

func (m *mockDependencies) SubmitImport(_ context.Context, b model.ImportBatch) (service.Submission, error) {
	m.submitted = append(m.submitted, b)
	if m.err != nil {
		return service.Submission{}, m.err
	}
	sub := m.submission
	if sub.BatchID == "" {
		sub.BatchID = b.ID
	}
	sub.Rows = len(b.Rows)
	return sub, nil
}

func (m *mockDependencies) DeleteSnapshot(_ context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return m.err
}

func (m *mockDependencies) DeleteSnapshotsByDate(_ context.Context, date model.Date) (int, error) {
	m.lastDate = date
	return 3, m.err
}

func (m *mockDependencies) Events(context.Context) ([]service.EventView, error) {
	return []service.EventView{{Event: model.Event{ID: 1, Title: "KvK"}, Phase: model.PhaseCurrent}}, m.err
}

func (m *mockDependencies) CreateEvent(_ context.Context, e model.Event) (model.Event, error) {
	e.ID = 7
	return e, m.err
}

func (m *mockDependencies) UpdateEvent(_ context.Context, e model.Event) (model.Event, error) {
	return e, m.err
}

func (m *mockDependencies) DeleteEvent(context.Context, int64) error {
	return m.err
}

func (m *mockDependencies) EventReport(_ context.Context, id int64) (service.EventReport, error) {
	return service.EventReport{Event: service.EventView{Event: model.Event{ID: id}}, Rows: []growth.RankedRow{}}, m.err
}

func (m *mockDependencies) RangeReport(_ context.Context, start, end model.Date) ([]growth.RankedRow, error) {
	m.lastDate = end
	return []growth.RankedRow{{EntityID: 1, Delta: 5, StartDate: start, EndDate: end}}, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newRouter(deps api.Dependencies) http.Handler {
	r := chi.NewRouter()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}},
		api.WithAdminToken(adminToken),
		api.WithRecruiterToken(recruiterToken),
	).Register(r)
	return r
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("Then health serves prometheus metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "powerwatch_")
		})

		Convey("Then stats are served as JSON", func() {
			w := do(h, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then dates are listed", func() {
			w := do(h, http.MethodGet, "/dates", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"dates":["2025-01-15","2025-01-08"]`)
		})

		Convey("Then the dashboard passes the date through", func() {
			w := do(h, http.MethodGet, "/dashboard?date=2025-01-08", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastDate, ShouldEqual, model.Date("2025-01-08"))

			w = do(h, http.MethodGet, "/dashboard", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastDate, ShouldEqual, model.Date(""))
		})

		Convey("Then a malformed dashboard date is rejected", func() {
			w := do(h, http.MethodGet, "/dashboard?date=15-01-2025", "", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("Then unknown routes are not found", func() {
			w := do(h, http.MethodGet, "/unknown", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEntitiesRoutes(t *testing.T) {
	Convey("Given the entity routes", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("When listing with a status filter", func() {
			w := do(h, http.MethodGet, "/entities?status=target", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"TARGET"`)

			w = do(h, http.MethodGet, "/entities?status=friend", "", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading a detail", func() {
			So(do(h, http.MethodGet, "/entities/4", "", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/entities/abc", "", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When asking for a change", func() {
			w := do(h, http.MethodGet, "/entities/4/change?date=2025-01-15&lookback=7", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lookback, ShouldEqual, 7)
			So(deps.lastDate, ShouldEqual, model.Date("2025-01-15"))

			So(do(h, http.MethodGet, "/entities/4/change?lookback=-1", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/entities/4/change?lookback=14", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/entities/4/change?lookback=30", "", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When patching without a token", func() {
			w := do(h, http.MethodPatch, "/entities/4", "", `{"status":"SKIP"}`)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(deps.patched, ShouldBeEmpty)
		})

		Convey("When patching with a wrong token", func() {
			w := do(h, http.MethodPatch, "/entities/4", "nope", `{"status":"SKIP"}`)
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(decodeError(w)["code"], ShouldEqual, "forbidden")
		})

		Convey("When patching as recruiter or admin", func() {
			w := do(h, http.MethodPatch, "/entities/4", recruiterToken, `{"status":"skip","notes":"quiet"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"SKIP"`)
			So(*deps.patched[0].Notes, ShouldEqual, "quiet")

			w = do(h, http.MethodPatch, "/entities/4", adminToken, `{"notes":"x"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.patched[1].Status, ShouldBeNil)
		})
	})
}

func TestImportsRoutes(t *testing.T) {
	Convey("Given the import routes", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)
		body := `{"batch_id":"b-1","date":"2025-01-15","rows":[{"tag":"A","name":"Alpha","power":1500000}]}`

		Convey("When a recruiter submits", func() {
			w := do(h, http.MethodPost, "/imports", recruiterToken, body)
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When an admin submits a new batch", func() {
			w := do(h, http.MethodPost, "/imports", adminToken, body)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
			So(deps.submitted, ShouldHaveLength, 1)
			So(deps.submitted[0].ID, ShouldEqual, "b-1")
			So(deps.submitted[0].Rows[0].Power, ShouldEqual, 1_500_000)
		})

		Convey("When the batch was seen before", func() {
			deps.submission = service.Submission{Duplicate: true}
			w := do(h, http.MethodPost, "/imports", adminToken, body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
		})

		Convey("When the queue is full", func() {
			deps.err = service.ErrBackpressure
			w := do(h, http.MethodPost, "/imports", adminToken, body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the request is malformed", func() {
			for _, bad := range []string{
				`{`,
				`{"date":"2025-01-15","rows":[]}`,
				`{"date":"2025/01/15","rows":[{"tag":"A","power":1}]}`,
				`{"rows":[{"tag":"A","power":1}]}`,
			} {
				w := do(h, http.MethodPost, "/imports", adminToken, bad)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When deleting snapshots", func() {
			w := do(h, http.MethodDelete, "/snapshots/9", adminToken, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.deletedIDs, ShouldResemble, []int64{9})

			w = do(h, http.MethodDelete, "/snapshots?date=2025-01-08", adminToken, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"deleted":3`)

			So(do(h, http.MethodDelete, "/snapshots", adminToken, "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodDelete, "/snapshots/9", "", "").Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestEventsRoutes(t *testing.T) {
	Convey("Given the event routes", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("Then events are public", func() {
			w := do(h, http.MethodGet, "/events", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"phase":"current"`)
		})

		Convey("Then creating requires admin", func() {
			body := `{"title":"KvK","start_date":"2025-01-01","end_date":"2025-01-08"}`
			So(do(h, http.MethodPost, "/events", recruiterToken, body).Code, ShouldEqual, http.StatusForbidden)
			w := do(h, http.MethodPost, "/events", adminToken, body)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(w.Body.String(), ShouldContainSubstring, `"id":7`)
		})

		Convey("Then updating takes the id from the path", func() {
			w := do(h, http.MethodPut, "/events/3", adminToken, `{"id":99,"title":"x"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"id":3`)
		})

		Convey("Then deleting answers with no content", func() {
			So(do(h, http.MethodDelete, "/events/3", adminToken, "").Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("Then reports are served", func() {
			So(do(h, http.MethodGet, "/events/3/report", "", "").Code, ShouldEqual, http.StatusOK)

			w := do(h, http.MethodGet, "/report?start=2025-01-01&end=2025-01-15", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"end_date":"2025-01-15"`)

			So(do(h, http.MethodGet, "/report?start=2025-01-01", "", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("entity 4: %w", repository.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("event: %w", repository.ErrAlreadyExists), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: bad status", service.ErrInvalidInput), http.StatusBadRequest, "bad_request"},
		{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{fmt.Errorf("list snapshots: %w", errors.New("SQL logic error: no such table: snapshots (1)")), http.StatusInternalServerError, "internal_error"},
	}

	Convey("Given failing dependencies", t, func() {
		So(logger.Init(logger.WithWriter(io.Discard)), ShouldBeNil)
		for _, tc := range cases {
			deps := &mockDependencies{err: tc.err}
			w := do(newRouter(deps), http.MethodGet, "/entities/4", "", "")
			So(w.Code, ShouldEqual, tc.status)
			resp := decodeError(w)
			So(resp["code"], ShouldEqual, tc.code)
			if tc.status == http.StatusInternalServerError {
				So(resp["message"], ShouldEqual, http.StatusText(http.StatusInternalServerError))
				So(resp["message"], ShouldNotContainSubstring, "no such table")
				continue
			}
			So(resp["message"], ShouldContainSubstring, "api.entity_detail")
		}
	})
}
