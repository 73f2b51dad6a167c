// Package worker applies queued import batches in the background.
package worker

import (
	"github.com/okian/powerwatch/internal/domain/ingest"
	"github.com/okian/powerwatch/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnApplied registers a callback run after each successful batch.
func WithOnApplied(fn func(Batch, ingest.Result)) Option {
	return func(w *InMemoryWorker) {
		w.onApplied = fn
	}
}
