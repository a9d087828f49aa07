package client

import (
	"context"
	"sync"
	"time"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/services"
)

// FacadeOptions carries the optional collaborators: the entries log
// the stop path appends to and the scheduler it nudges afterwards.
type FacadeOptions struct {
	Entries   *services.EntrySyncService
	Scheduler *services.SyncScheduler
}

// Facade is the single object the UI talks to. It merges optimistic
// local draft state with the remote registry. No operation returns an
// error across this boundary: callers get a value or nil/false plus a
// human-readable string from LastError.
type Facade struct {
	api       TimerAPI
	drafts    *DraftStore
	entries   *services.EntrySyncService
	scheduler *services.SyncScheduler
	device    models.DeviceInfo
	userID    string

	mu      sync.Mutex
	draft   models.TimerDraft
	timers  map[string]*models.ActiveTimerRecord
	lastErr string

	now func() time.Time
}

func NewFacade(api TimerAPI, drafts *DraftStore, device models.DeviceInfo, userID string, opts FacadeOptions) *Facade {
	return &Facade{
		api:       api,
		drafts:    drafts,
		entries:   opts.Entries,
		scheduler: opts.Scheduler,
		device:    device,
		userID:    userID,
		draft:     drafts.Load(),
		timers:    make(map[string]*models.ActiveTimerRecord),
		now:       time.Now,
	}
}

// StartTimer starts a timer for the category and records it as the
// local draft. Returns nil on failure; a conflict message names the
// owning device and start time.
func (f *Facade) StartTimer(ctx context.Context, categoryID string, notes *string) *models.ActiveTimerRecord {
	record, err := f.api.Start(ctx, categoryID, f.device, notes)
	if err != nil {
		f.setError(err)
		return nil
	}

	f.mu.Lock()
	f.lastErr = ""
	f.timers[categoryID] = record
	f.draft = models.TimerDraft{
		IsRunning: true,
		ActiveEntry: &models.TimeEntry{
			ID:         record.ID,
			CategoryID: record.CategoryID,
			UserID:     record.UserID,
			StartTime:  record.StartTime,
			Notes:      record.Notes,
			CreatedAt:  record.CreatedAt,
			UpdatedAt:  record.CreatedAt,
		},
	}
	draft := f.draft
	f.mu.Unlock()

	f.drafts.Save(draft)
	return record
}

// StopTimer finalizes the category's timer. Returns nil both on
// failure and when no timer was active; either way the local draft for
// that category is cleared so an orphaned draft cannot stick around.
func (f *Facade) StopTimer(ctx context.Context, categoryID string, notes *string) *models.TimeEntry {
	entry, err := f.api.Stop(ctx, categoryID, f.device, notes)
	if err != nil {
		f.setError(err)
		return nil
	}

	f.clearDraftFor(categoryID)

	if entry == nil {
		return nil
	}

	if f.entries != nil {
		if err := f.entries.AppendEntry(*entry); err != nil {
			f.setError(err)
		}
	}
	if f.scheduler != nil {
		f.scheduler.ScheduleSync(false)
	}
	return entry
}

// CancelTimer discards the category's timer without producing an entry.
func (f *Facade) CancelTimer(ctx context.Context, categoryID string) bool {
	cancelled, err := f.api.Cancel(ctx, categoryID, f.device)
	if err != nil {
		f.setError(err)
		return false
	}

	f.clearDraftFor(categoryID)
	return cancelled
}

// GetActiveTimer fetches the category's current timer from the remote
// registry, updating the cached snapshot.
func (f *Facade) GetActiveTimer(ctx context.Context, categoryID string) *models.ActiveTimerRecord {
	record, err := f.api.Get(ctx, categoryID)
	if err != nil {
		f.setError(err)
		return nil
	}

	f.mu.Lock()
	f.lastErr = ""
	if record == nil {
		delete(f.timers, categoryID)
	} else {
		f.timers[categoryID] = record
	}
	f.mu.Unlock()
	return record
}

// RefreshTimers replaces the cached snapshot with the full remote list.
func (f *Facade) RefreshTimers(ctx context.Context) []*models.ActiveTimerRecord {
	records, err := f.api.ListActive(ctx)
	if err != nil {
		f.setError(err)
		return nil
	}

	f.mu.Lock()
	f.lastErr = ""
	f.timers = make(map[string]*models.ActiveTimerRecord, len(records))
	for _, r := range records {
		f.timers[r.CategoryID] = r
	}
	f.mu.Unlock()
	return records
}

// HasActiveTimer answers from the cached snapshot; no network call.
func (f *Facade) HasActiveTimer(categoryID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[categoryID] != nil
}

// TimerForCategory answers from the cached snapshot; no network call.
func (f *Facade) TimerForCategory(categoryID string) *models.ActiveTimerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[categoryID]
}

// Draft returns the current local draft with ElapsedSeconds computed
// live from the running entry's start time.
func (f *Facade) Draft() models.TimerDraft {
	f.mu.Lock()
	defer f.mu.Unlock()

	draft := f.draft
	if draft.IsRunning && draft.ActiveEntry != nil {
		elapsed := int64(f.now().Sub(draft.ActiveEntry.StartTime).Seconds())
		if elapsed < 0 {
			elapsed = 0
		}
		draft.ElapsedSeconds = elapsed
	}
	return draft
}

// LastError is the side channel for human-readable failure messages.
// Empty after the last successful operation.
func (f *Facade) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Facade) setError(err error) {
	f.mu.Lock()
	f.lastErr = err.Error()
	f.mu.Unlock()
}

func (f *Facade) clearDraftFor(categoryID string) {
	f.mu.Lock()
	f.lastErr = ""
	delete(f.timers, categoryID)
	cleared := false
	if f.draft.ActiveEntry != nil && f.draft.ActiveEntry.CategoryID == categoryID {
		f.draft = models.TimerDraft{}
		cleared = true
	}
	f.mu.Unlock()

	if cleared {
		f.drafts.Clear()
	}
}
