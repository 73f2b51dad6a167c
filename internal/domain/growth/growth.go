// Package growth ranks entities by how much they changed across a date range.
package growth

import (
	"sort"

	"github.com/okian/powerwatch/internal/domain/delta"
	"github.com/okian/powerwatch/internal/domain/history"
	"github.com/okian/powerwatch/internal/domain/model"
)

// RankedRow is one entity's change across a range.
type RankedRow struct {
	EntityID       int64      `json:"entity_id"`
	Tag            string     `json:"tag"`
	Name           string     `json:"name"`
	Delta          int64      `json:"delta"`
	Display        string     `json:"display"`
	StartDate      model.Date `json:"start_date"`
	EndDate        model.Date `json:"end_date"`
	StartMagnitude int64      `json:"start_magnitude"`
	EndMagnitude   int64      `json:"end_magnitude"`
}

// Reporter computes growth rankings.
type Reporter struct {
	fmt *delta.Formatter
}

// NewReporter creates a reporter.
func NewReporter(opts ...Option) *Reporter {
	r := &Reporter{}
	for _, opt := range opts {
		opt(r)
	}
	if r.fmt == nil {
		r.fmt = delta.NewFormatter()
	}
	return r
}

// Report ranks entities by change between the earliest snapshot on or
// after start and the latest on or before end, largest first. Entities
// whose bounds are missing, coincide or are not strictly ordered are left
// out. Equal deltas keep entity order.
func (r *Reporter) Report(entities []model.Entity, snapshots []model.Snapshot, start, end model.Date) []RankedRow {
	idx := history.Build(snapshots)
	rows := make([]RankedRow, 0, len(entities))
	for _, e := range entities {
		h := idx[e.ID]
		i, j := h.FirstOnOrAfter(start), h.LastOnOrBefore(end)
		if i < 0 || j < 0 || i == j {
			continue
		}
		from, to := h[i], h[j]
		if from.Date >= to.Date {
			continue
		}
		d := r.fmt.Between(from, to)
		rows = append(rows, RankedRow{
			EntityID:       e.ID,
			Tag:            e.Tag,
			Name:           e.Name,
			Delta:          d.Value,
			Display:        d.Display,
			StartDate:      from.Date,
			EndDate:        to.Date,
			StartMagnitude: from.Magnitude,
			EndMagnitude:   to.Magnitude,
		})
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Delta > rows[b].Delta })
	return rows
}
