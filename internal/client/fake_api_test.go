package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/services"
)

// fakeTimerAPI is an in-memory TimerAPI with scriptable failures.
type fakeTimerAPI struct {
	mu      sync.Mutex
	timers  map[string]*models.ActiveTimerRecord
	listErr error
	calls   int
	now     func() time.Time
}

func newFakeTimerAPI() *fakeTimerAPI {
	return &fakeTimerAPI{
		timers: make(map[string]*models.ActiveTimerRecord),
		now:    time.Now,
	}
}

func (f *fakeTimerAPI) Start(_ context.Context, categoryID string, device models.DeviceInfo, notes *string) (*models.ActiveTimerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing := f.timers[categoryID]; existing != nil {
		return nil, &services.ConflictError{
			CategoryID: categoryID,
			DeviceName: existing.DeviceName,
			StartTime:  existing.StartTime,
		}
	}

	now := f.now().UTC()
	record := &models.ActiveTimerRecord{
		ID:         uuid.New().String(),
		CategoryID: categoryID,
		UserID:     "user-1",
		StartTime:  now,
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
		Notes:      notes,
		CreatedAt:  now,
	}
	f.timers[categoryID] = record
	return record, nil
}

func (f *fakeTimerAPI) Stop(_ context.Context, categoryID string, _ models.DeviceInfo, notes *string) (*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record := f.timers[categoryID]
	if record == nil {
		return nil, nil
	}
	delete(f.timers, categoryID)

	end := f.now().UTC()
	duration := int64(end.Sub(record.StartTime).Seconds())
	entryNotes := record.Notes
	if notes != nil {
		entryNotes = notes
	}
	return &models.TimeEntry{
		ID:         record.ID,
		CategoryID: record.CategoryID,
		UserID:     record.UserID,
		StartTime:  record.StartTime,
		EndTime:    &end,
		Duration:   &duration,
		Notes:      entryNotes,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  end,
	}, nil
}

func (f *fakeTimerAPI) Cancel(_ context.Context, categoryID string, _ models.DeviceInfo) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timers[categoryID] == nil {
		return false, nil
	}
	delete(f.timers, categoryID)
	return true, nil
}

func (f *fakeTimerAPI) Get(_ context.Context, categoryID string) (*models.ActiveTimerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[categoryID], nil
}

func (f *fakeTimerAPI) ListActive(_ context.Context) ([]*models.ActiveTimerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var records []*models.ActiveTimerRecord
	for _, r := range f.timers {
		records = append(records, r)
	}
	return records, nil
}

func (f *fakeTimerAPI) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTimerAPI) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}
