package dashboard

import "github.com/okian/powerwatch/internal/domain/delta"

// Option configures an Assembler.
type Option func(*Assembler)

// WithFormatter sets the formatter used for magnitudes and changes.
func WithFormatter(f *delta.Formatter) Option {
	return func(a *Assembler) {
		if f != nil {
			a.fmt = f
		}
	}
}
