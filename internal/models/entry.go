package models

import (
	"time"
)

// TimeEntry is a finalized record of elapsed time. Once EndTime and
// Duration are set the entry is append-only; reconciliation never
// rewrites historical entries.
type TimeEntry struct {
	ID         string     `json:"id"`
	CategoryID string     `json:"categoryId"`
	UserID     string     `json:"userId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Duration   *int64     `json:"duration,omitempty"` // seconds, nil while running
	Notes      *string    `json:"notes"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TimeEntriesDocument is the completed-entries log document kept in
// the remote store (time_entries.json).
type TimeEntriesDocument struct {
	TimeEntries []TimeEntry `json:"timeEntries"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
