package growth

import "github.com/okian/powerwatch/internal/domain/delta"

// Option configures a Reporter.
type Option func(*Reporter)

// WithFormatter sets the formatter used for the display column.
func WithFormatter(f *delta.Formatter) Option {
	return func(r *Reporter) {
		if f != nil {
			r.fmt = f
		}
	}
}
