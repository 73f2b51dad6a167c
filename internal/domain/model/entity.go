package model

import "strings"

// Status classifies an alliance for recruitment purposes.
type Status string

// Known statuses. Anything else is rejected at the boundary.
const (
	StatusNeutral Status = "NEUTRAL"
	StatusTarget  Status = "TARGET"
	StatusSkip    Status = "SKIP"
)

// ParseStatus normalizes s into a known Status. Empty input maps to
// StatusNeutral.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case "", StatusNeutral:
		return StatusNeutral, true
	case StatusTarget:
		return StatusTarget, true
	case StatusSkip:
		return StatusSkip, true
	default:
		return "", false
	}
}

// Entity is a tracked alliance.
type Entity struct {
	ID     int64  `json:"id"`
	Tag    string `json:"tag"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// Snapshot is one dated power measurement of an entity.
// At most one snapshot exists per (EntityID, Date); the import path upholds it.
type Snapshot struct {
	ID        int64 `json:"id"`
	EntityID  int64 `json:"entity_id"`
	Magnitude int64 `json:"magnitude"`
	Date      Date  `json:"date"`
}
