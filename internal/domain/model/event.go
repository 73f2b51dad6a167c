package model

import (
	"errors"
	"strings"
)

// EventType is the kind of in-game event.
type EventType string

// Known event types.
const (
	EventKvK    EventType = "KVK"
	EventKvKWar EventType = "KVK_WAR"
	EventBrawl  EventType = "BRAWL"
	EventOther  EventType = "OTHER"
)

// ParseEventType normalizes s into a known EventType.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(strings.ToUpper(strings.TrimSpace(s))); t {
	case EventKvK, EventKvKWar, EventBrawl, EventOther:
		return t, true
	case "":
		return EventKvK, true
	default:
		return "", false
	}
}

// Phase places an event relative to a given day.
type Phase string

// Event phases.
const (
	PhaseUpcoming Phase = "upcoming"
	PhaseCurrent  Phase = "current"
	PhasePast     Phase = "past"
)

// Event is a named, inclusive date range used for growth reports.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Type        EventType `json:"event_type"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	Description string    `json:"description,omitempty"`
	Opponent    string    `json:"opponent,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	OutcomeNote string    `json:"outcome_note,omitempty"`
}

// Validate checks the fields an operator must supply.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return errors.New("missing title")
	case e.StartDate.IsZero():
		return errors.New("missing start_date")
	case e.EndDate.IsZero():
		return errors.New("missing end_date")
	}
	if _, err := ParseDate(string(e.StartDate)); err != nil {
		return errors.New("invalid start_date; must be YYYY-MM-DD")
	}
	if _, err := ParseDate(string(e.EndDate)); err != nil {
		return errors.New("invalid end_date; must be YYYY-MM-DD")
	}
	if e.EndDate.Before(e.StartDate) {
		return errors.New("end_date before start_date")
	}
	if _, ok := ParseEventType(string(e.Type)); !ok {
		return errors.New("unknown event_type")
	}
	return nil
}

// PhaseOn reports whether the event is upcoming, running or over on day.
func (e Event) PhaseOn(day Date) Phase {
	switch {
	case day.After(e.EndDate):
		return PhasePast
	case day.Before(e.StartDate):
		return PhaseUpcoming
	default:
		return PhaseCurrent
	}
}
