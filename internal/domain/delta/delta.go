// Package delta computes signed differences between snapshots and renders
// magnitudes and changes at a human scale ("1.5M", "+230.0k", "-").
package delta

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/powerwatch/internal/domain/model"
)

const (
	billion  = 1_000_000_000
	million  = 1_000_000
	thousand = 1_000
)

// NotAvailable is shown in place of a change that has no comparison.
const NotAvailable = "n/a"

// Delta is a computed change and its rendering.
type Delta struct {
	Value   int64  `json:"value"`
	Display string `json:"display"`
}

// Formatter renders magnitudes and deltas. The zero value is not usable;
// construct with NewFormatter.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a formatter that groups plain integers per tag.
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}
	if f.printer == nil {
		f.printer = message.NewPrinter(language.English)
	}
	return f
}

// Delta compares current against comparison. The second return is false
// when there is nothing to compare with.
func (f *Formatter) Delta(current model.Snapshot, comparison *model.Snapshot) (Delta, bool) {
	if comparison == nil {
		return Delta{}, false
	}
	v := current.Magnitude - comparison.Magnitude
	return Delta{Value: v, Display: f.Change(v)}, true
}

// Between is Delta for two known snapshots.
func (f *Formatter) Between(from, to model.Snapshot) Delta {
	d, _ := f.Delta(to, &from)
	return d
}

// Magnitude renders an absolute value. Values under a million are
// grouped in full.
func (f *Formatter) Magnitude(v int64) string {
	switch a := abs(v); {
	case a >= billion:
		return fmt.Sprintf("%.2fB", float64(v)/billion)
	case a >= million:
		return fmt.Sprintf("%.1fM", float64(v)/million)
	default:
		return f.printer.Sprintf("%d", v)
	}
}

// Change renders a signed difference. Zero is "-"; positive values carry
// an explicit plus sign.
func (f *Formatter) Change(v int64) string {
	if v == 0 {
		return "-"
	}
	var s string
	switch a := abs(v); {
	case a >= billion:
		s = fmt.Sprintf("%.2fB", float64(v)/billion)
	case a >= million:
		s = fmt.Sprintf("%.1fM", float64(v)/million)
	case a >= thousand:
		s = fmt.Sprintf("%.1fk", float64(v)/thousand)
	default:
		s = f.printer.Sprintf("%d", v)
	}
	if v > 0 {
		return "+" + s
	}
	return s
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
