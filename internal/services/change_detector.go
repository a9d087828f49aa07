package services

import (
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tickstream/tickstream/internal/models"
)

type SyncAction string

const (
	ActionNone     SyncAction = "none"
	ActionUpload   SyncAction = "upload"
	ActionDownload SyncAction = "download"
)

type Decision struct {
	Action SyncAction
	Reason string
}

// Timestamps closer than this are treated as equal to tolerate clock
// skew between devices.
const clockSkewTolerance = 1000 * time.Millisecond

// Snapshot is the local dataset projection fed to ContentHash.
type Snapshot struct {
	Categories    []models.Category
	TimeEntries   []models.TimeEntry
	ActiveTimerID string
}

// ContentHash folds a canonical projection of the snapshot into a
// 64-bit hash. Collections are sorted by id and only the fields that
// count toward equality are included, so reordering never changes the
// hash. Not cryptographic: a collision is one redundant sync at worst.
//
// The field projection is deliberate. Adding fields to Category or
// TimeEntry does not change sync behavior until they are added here.
func ContentHash(snap Snapshot) uint64 {
	categories := make([]models.Category, len(snap.Categories))
	copy(categories, snap.Categories)
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	entries := make([]models.TimeEntry, len(snap.TimeEntries))
	copy(entries, snap.TimeEntries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	digest := xxhash.New()
	for _, c := range categories {
		digest.WriteString("c|")
		digest.WriteString(c.ID)
		digest.WriteString("|")
		digest.WriteString(c.Name)
		digest.WriteString("|")
		digest.WriteString(c.Color)
		digest.WriteString("\n")
	}
	for _, e := range entries {
		digest.WriteString("e|")
		digest.WriteString(e.ID)
		digest.WriteString("|")
		digest.WriteString(e.StartTime.UTC().Format(time.RFC3339Nano))
		digest.WriteString("|")
		if e.EndTime != nil {
			digest.WriteString(e.EndTime.UTC().Format(time.RFC3339Nano))
		}
		digest.WriteString("\n")
	}
	digest.WriteString("a|")
	digest.WriteString(snap.ActiveTimerID)
	return digest.Sum64()
}

// CompareTimestamps decides sync direction from each side's updatedAt.
// Pure function, no I/O.
func CompareTimestamps(local, remote *time.Time) Decision {
	if local == nil && remote == nil {
		return Decision{Action: ActionNone, Reason: "neither side has data"}
	}
	if local == nil {
		return Decision{Action: ActionDownload, Reason: "no local data"}
	}
	if remote == nil {
		return Decision{Action: ActionUpload, Reason: "no remote data"}
	}

	diff := local.Sub(*remote)
	if diff < 0 {
		diff = -diff
	}
	if diff <= clockSkewTolerance {
		return Decision{Action: ActionNone, Reason: "timestamps within skew tolerance"}
	}

	if local.After(*remote) {
		return Decision{Action: ActionUpload, Reason: "local is newer"}
	}
	return Decision{Action: ActionDownload, Reason: "remote is newer"}
}
