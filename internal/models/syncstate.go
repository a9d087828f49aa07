package models

import (
	"time"
)

// TimerDraft is the client-only draft of an in-progress timer. It is
// persisted locally so a running timer survives process restarts.
// ElapsedSeconds is advisory only and must be recomputed from
// ActiveEntry.StartTime on rehydrate.
type TimerDraft struct {
	IsRunning      bool       `json:"isRunning"`
	ActiveEntry    *TimeEntry `json:"activeEntry"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
}

// SyncState is the local bookkeeping used by the change detector and
// the sync scheduler. Never shown to the user beyond a status summary.
type SyncState struct {
	LastLocalHash            uint64     `json:"lastLocalHash"`
	LastSyncTimestamp        *time.Time `json:"lastSyncTimestamp"`
	LastKnownRemoteUpdatedAt *time.Time `json:"lastKnownRemoteUpdatedAt"`
}
