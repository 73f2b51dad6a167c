// Package service provides the application service behind the HTTP API:
// it loads data from the store, runs the dashboard and growth engines and
// feeds import batches to the worker pool.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/okian/powerwatch/internal/adapters/mq/queue"
	"github.com/okian/powerwatch/internal/adapters/mq/worker"
	"github.com/okian/powerwatch/internal/adapters/repository"
	"github.com/okian/powerwatch/internal/domain/dashboard"
	"github.com/okian/powerwatch/internal/domain/dedupe"
	"github.com/okian/powerwatch/internal/domain/delta"
	"github.com/okian/powerwatch/internal/domain/growth"
	"github.com/okian/powerwatch/internal/domain/ingest"
	"github.com/okian/powerwatch/pkg/logger"
	"github.com/okian/powerwatch/pkg/metrics"
)

// Service implements the API dependencies for alliance tracking.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     queue.Queue
	pool      *worker.Pool
	importer  *ingest.Importer
	formatter *delta.Formatter
	assembler *dashboard.Assembler
	reporter  *growth.Reporter
	clock     clockwork.Clock

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   64,
		dedupeSize:  dedupe.DefaultMaxSize,
		clock:       clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.formatter == nil {
		s.formatter = delta.NewFormatter()
	}
	s.assembler = dashboard.NewAssembler(dashboard.WithFormatter(s.formatter))
	s.reporter = growth.NewReporter(growth.WithFormatter(s.formatter))

	return s
}

// Start initializes the store, queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting powerwatch service...")

	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.importer = ingest.NewImporter(s.store)
	s.pool = worker.NewPool(s.workerCount, s.queue, s.importer,
		worker.WithOnApplied(func(b worker.Batch, _ ingest.Result) {
			s.refreshGauges(context.Background())
		}),
	)
	s.pool.Start(ctx)

	s.started = true
	s.refreshGauges(ctx)
	s.logger.Info(ctx, "powerwatch service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending imports and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping powerwatch service...")

	var firstErr error
	if err := s.pool.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("stop workers: %w", err)
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}

	s.started = false
	s.logger.Info(ctx, "powerwatch service stopped")
	return firstErr
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// refreshGauges publishes store size gauges.
func (s *Service) refreshGauges(ctx context.Context) {
	entities, snapshots, err := s.loadAll(ctx)
	if err != nil {
		s.logger.Warn(ctx, "refresh gauges failed", logger.Error(err))
		return
	}
	metrics.UpdateTrackedEntities(len(entities))
	metrics.UpdateTrackedSnapshots(len(snapshots))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.pool.Active()
		stats["rememberedBatches"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}
