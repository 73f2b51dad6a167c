package sqlite

import (
	"time"

	"github.com/okian/powerwatch/pkg/logger"
)

// Option configures Open.
type Option func(*Store)

// WithLogger routes migration output to log.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBusyTimeout sets how long a writer waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}
