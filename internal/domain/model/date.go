// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted calendar date form. Lexical order of
// strings in this layout equals chronological order, which the history
// engine relies on for every comparison.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, e.g. "2025-03-14".
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the UTC calendar day of t.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// Time returns midnight UTC of d. Malformed dates yield the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// AddDays shifts d by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d < o }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d > o }

// Between reports whether d lies in the closed interval [lo, hi].
func (d Date) Between(lo, hi Date) bool { return d >= lo && d <= hi }

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d == "" }

func (d Date) String() string { return string(d) }
