package model

import "time"

// ImportRow is one alliance line of an import file.
type ImportRow struct {
	Tag   string `json:"tag"`
	Name  string `json:"name"`
	Power int64  `json:"power"`
}

// ImportBatch is a set of rows recorded for a single date.
// It flows from the HTTP layer through the queue to the workers.
type ImportBatch struct {
	ID          string
	Date        Date
	Rows        []ImportRow
	SubmittedAt time.Time
}
