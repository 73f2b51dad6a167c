// Package dashboard assembles the per-date view of all tracked entities.
package dashboard

import (
	"github.com/okian/powerwatch/internal/domain/delta"
	"github.com/okian/powerwatch/internal/domain/history"
	"github.com/okian/powerwatch/internal/domain/model"
)

// Cell is one comparison column. Value is nil when no comparison exists.
type Cell struct {
	Value   *int64 `json:"value"`
	Display string `json:"display"`
}

// Available reports whether the cell carries a computed change.
func (c Cell) Available() bool { return c.Value != nil }

// Row is an entity present on the viewed date.
type Row struct {
	Entity        model.Entity   `json:"entity"`
	Snapshot      model.Snapshot `json:"snapshot"`
	Magnitude     string         `json:"magnitude"`
	Last          Cell           `json:"last"`
	Week          Cell           `json:"week"`
	Month         Cell           `json:"month"`
	NewlyAppeared bool           `json:"newly_appeared"`
}

// Dropout is an entity seen on the previous date but missing on the viewed one.
type Dropout struct {
	Entity        model.Entity `json:"entity"`
	LastMagnitude int64        `json:"last_magnitude"`
	Display       string       `json:"display"`
}

// View is the assembled dashboard for one date.
type View struct {
	Date           model.Date   `json:"date"`
	PreviousDate   model.Date   `json:"previous_date,omitempty"`
	HasPrevious    bool         `json:"has_previous"`
	AvailableDates []model.Date `json:"available_dates"`
	Rows           []Row        `json:"rows"`
	Dropped        []Dropout    `json:"dropped"`
}

// Empty reports that nothing was recorded on the viewed date.
func (v View) Empty() bool { return len(v.Rows) == 0 }

// Assembler builds views. It holds no per-call state.
type Assembler struct {
	fmt *delta.Formatter
}

// NewAssembler creates an assembler.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	if a.fmt == nil {
		a.fmt = delta.NewFormatter()
	}
	return a
}

// Assemble builds the view for viewDate. available may be nil, in which
// case it is derived from snapshots; when given it must be newest first.
func (a *Assembler) Assemble(entities []model.Entity, snapshots []model.Snapshot, viewDate model.Date, available []model.Date) View {
	idx := history.Build(snapshots)
	if available == nil {
		available = idx.Dates()
	}

	v := View{
		Date:           viewDate,
		AvailableDates: available,
		Rows:           []Row{},
		Dropped:        []Dropout{},
	}
	v.PreviousDate, v.HasPrevious = previousDate(available, viewDate)

	for _, e := range entities {
		h := idx[e.ID]
		cur, ok := h.At(viewDate)
		if !ok {
			if v.HasPrevious {
				if prev, seen := h.At(v.PreviousDate); seen {
					v.Dropped = append(v.Dropped, Dropout{
						Entity:        e,
						LastMagnitude: prev.Magnitude,
						Display:       a.fmt.Magnitude(prev.Magnitude),
					})
				}
			}
			continue
		}

		row := Row{
			Entity:    e,
			Snapshot:  cur,
			Magnitude: a.fmt.Magnitude(cur.Magnitude),
			Last:      a.cell(cur, h.Resolve(viewDate, history.LookbackPrevious)),
			Week:      a.cell(cur, h.Resolve(viewDate, history.LookbackWeek)),
			Month:     a.cell(cur, h.Resolve(viewDate, history.LookbackMonth)),
		}
		if v.HasPrevious {
			_, seen := h.At(v.PreviousDate)
			row.NewlyAppeared = !seen
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func (a *Assembler) cell(cur model.Snapshot, cmp *model.Snapshot) Cell {
	d, ok := a.fmt.Delta(cur, cmp)
	if !ok {
		return Cell{Display: delta.NotAvailable}
	}
	val := d.Value
	return Cell{Value: &val, Display: d.Display}
}

// previousDate returns the entry after viewDate in a newest-first list.
func previousDate(available []model.Date, viewDate model.Date) (model.Date, bool) {
	for i, d := range available {
		if d == viewDate {
			if i+1 < len(available) {
				return available[i+1], true
			}
			return "", false
		}
	}
	return "", false
}
