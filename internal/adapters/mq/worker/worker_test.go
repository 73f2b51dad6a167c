package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/powerwatch/internal/adapters/mq/queue"
	worker "github.com/okian/powerwatch/internal/adapters/mq/worker"
	"github.com/okian/powerwatch/internal/domain/ingest"
	model "github.com/okian/powerwatch/internal/domain/model"
	logging "github.com/okian/powerwatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockApplier struct {
	mu      sync.Mutex
	applied []string
	fail    map[string]bool
	delay   time.Duration
}

func (m *mockApplier) Apply(ctx context.Context, b worker.Batch) (ingest.Result, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[b.ID] {
		return ingest.Result{}, errors.New("apply failed")
	}
	m.applied = append(m.applied, b.ID)
	return ingest.Result{Inserted: len(b.Rows)}, nil
}

func (m *mockApplier) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.applied...)
}

func batch(id string, rows int) worker.Batch {
	return model.ImportBatch{ID: id, Date: "2025-01-01", Rows: make([]model.ImportRow, rows)}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a queue", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		app := &mockApplier{fail: map[string]bool{"bad": true}}

		var mu sync.Mutex
		results := map[string]ingest.Result{}
		w := worker.NewInMemoryWorker(q, app,
			worker.WithName("w-test"),
			worker.WithLogger(logging.Named("test")),
			worker.WithOnApplied(func(b worker.Batch, r ingest.Result) {
				mu.Lock()
				results[b.ID] = r
				mu.Unlock()
			}),
		)

		convey.Convey("When batches are queued and the queue is closed", func() {
			convey.So(q.Enqueue(ctx, batch("a", 3)), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, batch("bad", 1)), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, batch("c", 2)), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)

			w.Run(ctx)

			convey.Convey("Then every good batch is applied and a failure does not stop the loop", func() {
				convey.So(app.ids(), convey.ShouldResemble, []string{"a", "c"})
				convey.So(results["a"].Inserted, convey.ShouldEqual, 3)
				convey.So(results, convey.ShouldNotContainKey, "bad")
			})

			convey.Convey("Then the worker reports done", func() {
				finished := false
				select {
				case <-w.Done():
					finished = true
				default:
				}
				convey.So(finished, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(ctx)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		app := &mockApplier{delay: time.Millisecond}
		pool := worker.NewPool(3, q, app)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
			convey.So(q.Enqueue(ctx, batch(id, 1)), convey.ShouldBeNil)
		}
		pool.Start(ctx)

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			convey.Convey("Then queued batches are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(app.ids(), convey.ShouldHaveLength, 8)
				convey.So(pool.Active(), convey.ShouldEqual, 0)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool started on a context that is later cancelled", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		startCtx, cancelStart := context.WithCancel(context.Background())
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		app := &mockApplier{delay: 20 * time.Millisecond}
		pool := worker.NewPool(1, q, app)
		pool.Start(startCtx)

		for _, id := range []string{"a", "b", "c", "d", "e"} {
			convey.So(q.Enqueue(context.Background(), batch(id, 1)), convey.ShouldBeNil)
		}
		cancelStart()

		convey.Convey("When the pool shuts down with a fresh context", func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := pool.Shutdown(sctx)

			convey.Convey("Then every queued batch is still applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(app.ids(), convey.ShouldResemble, []string{"a", "b", "c", "d", "e"})
				convey.So(q.Len(context.Background()), convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a pool whose drain outlasts the shutdown deadline", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		app := &mockApplier{delay: 200 * time.Millisecond}
		pool := worker.NewPool(1, q, app)
		pool.Start(context.Background())
		for _, id := range []string{"a", "b", "c"} {
			convey.So(q.Enqueue(context.Background(), batch(id, 1)), convey.ShouldBeNil)
		}

		sctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := pool.Shutdown(sctx)

		convey.Convey("Then the loss is reported", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		convey.So(logging.Init(), convey.ShouldBeNil)
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &mockApplier{})
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
