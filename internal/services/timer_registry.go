package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

// ErrConflict is the sentinel for "another timer is already running".
// It is a logical condition, never retried automatically.
var ErrConflict = errors.New("timer conflict")

// ConflictError names the owning device and start time so the user
// understands why start failed.
type ConflictError struct {
	CategoryID string
	DeviceName string
	StartTime  time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a timer for category %q is already running, started on %q at %s",
		e.CategoryID, e.DeviceName, e.StartTime.Format(time.RFC3339))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

const (
	activeTimerPrefix = "active_timer_"
	activeTimerSuffix = ".json"
)

func activeTimerDocName(categoryID string) string {
	return activeTimerPrefix + categoryID + activeTimerSuffix
}

// TimerRegistry models "one active timer per category" on top of a
// flat record store with no transactions. The start check is
// read-then-write: two devices may both pass it before either writes,
// in which case the later write wins and the earlier device's draft
// is orphaned until its next stop resolves against the current record.
type TimerRegistry struct {
	store repositories.RecordStore
	now   func() time.Time
}

func NewTimerRegistry(store repositories.RecordStore) *TimerRegistry {
	return &TimerRegistry{store: store, now: time.Now}
}

// Start registers a new active timer for the category. Fails with a
// *ConflictError when one already exists; never overwrites.
func (r *TimerRegistry) Start(ctx context.Context, categoryID, userID string, device models.DeviceInfo, notes *string) (*models.ActiveTimerRecord, error) {
	existing, err := r.GetActive(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{
			CategoryID: categoryID,
			DeviceName: existing.DeviceName,
			StartTime:  existing.StartTime,
		}
	}

	now := r.now().UTC()
	record := &models.ActiveTimerRecord{
		ID:         uuid.New().String(),
		CategoryID: categoryID,
		UserID:     userID,
		StartTime:  now,
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
		Notes:      notes,
		CreatedAt:  now,
	}

	doc := models.ActiveTimerDocument{Timer: record, UpdatedAt: now}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal timer document: %w", err)
	}

	if _, err := r.store.Write(ctx, activeTimerDocName(categoryID), data); err != nil {
		return nil, fmt.Errorf("failed to write timer document: %w", err)
	}
	return record, nil
}

// GetActive returns the category's running timer, or nil when there is
// none. A single read, no side effects.
func (r *TimerRegistry) GetActive(ctx context.Context, categoryID string) (*models.ActiveTimerRecord, error) {
	data, err := r.store.Read(ctx, activeTimerDocName(categoryID))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read timer document: %w", err)
	}

	var doc models.ActiveTimerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse timer document: %w", err)
	}
	return doc.Timer, nil
}

// ListActive returns all running timers. Documents that fail to parse
// are skipped and logged; one corrupt record never fails the listing.
func (r *TimerRegistry) ListActive(ctx context.Context) ([]*models.ActiveTimerRecord, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var timers []*models.ActiveTimerRecord
	for _, info := range records {
		if !strings.HasPrefix(info.Name, activeTimerPrefix) || !strings.HasSuffix(info.Name, activeTimerSuffix) {
			continue
		}

		data, err := r.store.Read(ctx, info.Name)
		if errors.Is(err, repositories.ErrNotFound) {
			// Deleted between list and read.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read timer document %s: %w", info.Name, err)
		}

		var doc models.ActiveTimerDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Printf("skipping unparseable timer document %s: %v", info.Name, err)
			continue
		}
		if doc.Timer != nil {
			timers = append(timers, doc.Timer)
		}
	}
	return timers, nil
}

// Stop finalizes the category's running timer into a TimeEntry and
// deletes the remote record. Returns nil when no timer is active, so
// stopping twice is safe. Caller-supplied notes take precedence over
// the notes stored on the record.
func (r *TimerRegistry) Stop(ctx context.Context, categoryID string, device models.DeviceInfo, notes *string) (*models.TimeEntry, error) {
	record, err := r.GetActive(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	endTime := r.now().UTC()
	duration := int64(endTime.Sub(record.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	entryNotes := record.Notes
	if notes != nil {
		entryNotes = notes
	}

	entry := &models.TimeEntry{
		ID:         record.ID,
		CategoryID: record.CategoryID,
		UserID:     record.UserID,
		StartTime:  record.StartTime,
		EndTime:    &endTime,
		Duration:   &duration,
		Notes:      entryNotes,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  endTime,
	}

	// The entry is already computed; a failed delete leaves an orphaned
	// record for the next ClearAll pass, not a lost entry.
	if _, err := r.store.Delete(ctx, activeTimerDocName(categoryID)); err != nil {
		log.Printf("failed to delete timer document for category %s: %v", categoryID, err)
	}
	return entry, nil
}

// Cancel discards the category's running timer without producing an
// entry. Returns whether a record existed.
func (r *TimerRegistry) Cancel(ctx context.Context, categoryID string) (bool, error) {
	name := activeTimerDocName(categoryID)

	_, err := r.store.Find(ctx, name)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to find timer document: %w", err)
	}

	removed, err := r.store.Delete(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete timer document: %w", err)
	}
	return removed, nil
}

// ClearAll cancels every active timer. Tolerant of partial failure;
// returns the count actually removed.
func (r *TimerRegistry) ClearAll(ctx context.Context) (int, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	count := 0
	for _, info := range records {
		if !strings.HasPrefix(info.Name, activeTimerPrefix) || !strings.HasSuffix(info.Name, activeTimerSuffix) {
			continue
		}
		removed, err := r.store.Delete(ctx, info.Name)
		if err != nil {
			log.Printf("failed to delete timer document %s: %v", info.Name, err)
			continue
		}
		if removed {
			count++
		}
	}
	return count, nil
}
