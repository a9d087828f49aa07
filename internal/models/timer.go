package models

import (
	"time"
)

// ActiveTimerRecord represents a currently-running, not-yet-finalized
// tracking session. At most one non-deleted record exists per category
// in the remote store; the check is cooperative (read-then-write).
type ActiveTimerRecord struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"categoryId"`
	UserID     string    `json:"userId"`
	StartTime  time.Time `json:"startTime"`
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ActiveTimerDocument is the envelope stored as one remote document
// per category (active_timer_{categoryId}.json).
type ActiveTimerDocument struct {
	Timer     *ActiveTimerRecord `json:"timer"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
