// Package history groups snapshots per entity and resolves time-window
// comparisons against those groups.
package history

import (
	"sort"

	"github.com/okian/powerwatch/internal/domain/model"
)

// ToleranceDays is how far a lookback match may drift from its target day.
const ToleranceDays = 1

// Standard lookback windows used by the dashboard.
const (
	LookbackPrevious = 0
	LookbackWeek     = 7
	LookbackMonth    = 30
)

// ValidLookback reports whether days is one of the standard windows.
func ValidLookback(days int) bool {
	switch days {
	case LookbackPrevious, LookbackWeek, LookbackMonth:
		return true
	}
	return false
}

// History is one entity's snapshots ordered ascending by date.
type History []model.Snapshot

// Index maps entity id to its History.
type Index map[int64]History

// Build groups snapshots by entity and sorts each group by date.
// Equal dates keep their input order. Input is not modified.
func Build(snapshots []model.Snapshot) Index {
	idx := make(Index)
	for _, s := range snapshots {
		idx[s.EntityID] = append(idx[s.EntityID], s)
	}
	for id, h := range idx {
		sort.SliceStable(h, func(i, j int) bool { return h[i].Date < h[j].Date })
		idx[id] = h
	}
	return idx
}

// Dates returns every distinct snapshot date in the index, newest first.
func (idx Index) Dates() []model.Date {
	seen := make(map[model.Date]struct{})
	var out []model.Date
	for _, h := range idx {
		for _, s := range h {
			if _, ok := seen[s.Date]; ok {
				continue
			}
			seen[s.Date] = struct{}{}
			out = append(out, s.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// Dates returns the distinct dates of snapshots, newest first.
func Dates(snapshots []model.Snapshot) []model.Date {
	return Build(snapshots).Dates()
}

// IndexOf returns the position of the first entry dated exactly d, or -1.
func (h History) IndexOf(d model.Date) int {
	i := sort.Search(len(h), func(i int) bool { return h[i].Date >= d })
	if i < len(h) && h[i].Date == d {
		return i
	}
	return -1
}

// At returns the snapshot dated exactly d.
func (h History) At(d model.Date) (model.Snapshot, bool) {
	i := h.IndexOf(d)
	if i < 0 {
		return model.Snapshot{}, false
	}
	return h[i], true
}

// Resolve picks the comparison snapshot for ref.
//
// A zero lookback returns the entry just before the one dated ref.
// A positive lookback returns the earliest entry within ToleranceDays of
// ref minus lookback days. nil means no comparison is available.
func (h History) Resolve(ref model.Date, lookbackDays int) *model.Snapshot {
	if lookbackDays <= 0 {
		i := h.IndexOf(ref)
		if i <= 0 {
			return nil
		}
		s := h[i-1]
		return &s
	}

	target := ref.AddDays(-lookbackDays)
	lo, hi := target.AddDays(-ToleranceDays), target.AddDays(ToleranceDays)
	i := h.FirstOnOrAfter(lo)
	if i < 0 || h[i].Date > hi {
		return nil
	}
	s := h[i]
	return &s
}

// FirstOnOrAfter returns the position of the earliest entry dated on or
// after d, or -1.
func (h History) FirstOnOrAfter(d model.Date) int {
	i := sort.Search(len(h), func(i int) bool { return h[i].Date >= d })
	if i == len(h) {
		return -1
	}
	return i
}

// LastOnOrBefore returns the position of the latest entry dated on or
// before d, or -1.
func (h History) LastOnOrBefore(d model.Date) int {
	return sort.Search(len(h), func(i int) bool { return h[i].Date > d }) - 1
}

// First returns the earliest entry.
func (h History) First() (model.Snapshot, bool) {
	if len(h) == 0 {
		return model.Snapshot{}, false
	}
	return h[0], true
}

// Latest returns the most recent entry.
func (h History) Latest() (model.Snapshot, bool) {
	if len(h) == 0 {
		return model.Snapshot{}, false
	}
	return h[len(h)-1], true
}
