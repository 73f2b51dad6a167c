package importcli

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/powerwatch/internal/domain/ingest"
	"github.com/okian/powerwatch/pkg/logger"
)

// Stats summarizes an import run.
type Stats struct {
	Files     int
	Accepted  int64
	Duplicate int64
	Failed    int64
	Duration  time.Duration
}

// Run submits every configured file concurrently. Failed files are
// logged and counted; the first failure is returned after all files ran.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	start := time.Now()
	log := logger.Named("import")
	stats := Stats{Files: len(cfg.Files)}
	client := NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout)

	log.Info(ctx, "starting powerwatch import",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("files", len(cfg.Files)),
		logger.Int("workers", cfg.Workers),
	)

	var accepted, duplicate, failed atomic.Int64
	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, path := range cfg.Files {
		g.Go(func() error {
			ack, err := submitFile(gctx, client, cfg, path)
			if err != nil {
				failed.Add(1)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				log.Error(gctx, "import failed", logger.String("file", path), logger.Error(err))
				return nil
			}
			if ack.Duplicate {
				duplicate.Add(1)
			} else {
				accepted.Add(1)
			}
			log.Info(gctx, "import submitted",
				logger.String("file", path),
				logger.String("batch_id", ack.BatchID),
				logger.String("status", ack.Status),
				logger.Int("rows", ack.Rows),
			)
			return nil
		})
	}
	_ = g.Wait()

	stats.Accepted = accepted.Load()
	stats.Duplicate = duplicate.Load()
	stats.Failed = failed.Load()
	stats.Duration = time.Since(start)

	log.Info(ctx, "import completed",
		logger.Int64("accepted", stats.Accepted),
		logger.Int64("duplicate", stats.Duplicate),
		logger.Int64("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)
	if firstErr != nil {
		return stats, fmt.Errorf("%d of %d files failed: %w", stats.Failed, stats.Files, firstErr)
	}
	return stats, nil
}

func submitFile(ctx context.Context, client *Client, cfg *Config, path string) (Ack, error) {
	date, err := DateFor(path, cfg.Date)
	if err != nil {
		return Ack{}, err
	}
	rows, err := ReadRows(path)
	if err != nil {
		return Ack{}, err
	}
	id := cfg.BatchID
	if id == "" {
		id = ingest.BatchID(date, rows)
	}
	logger.Named("import").Debug(ctx, "submitting batch",
		logger.String("file", path),
		logger.String("date", date.String()),
		logger.String("batch_id", id),
	)
	return client.Submit(ctx, Request{BatchID: id, Date: date, Rows: rows})
}
