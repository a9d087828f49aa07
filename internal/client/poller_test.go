package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

type remoteRecorder struct {
	mu      sync.Mutex
	records []*models.ActiveTimerRecord
}

func (r *remoteRecorder) callback(record *models.ActiveTimerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *remoteRecorder) seen() []*models.ActiveTimerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ActiveTimerRecord(nil), r.records...)
}

func TestPoller_SurfacesRemoteTimersOnce(t *testing.T) {
	// ARRANGE: a timer started by another device, one by this device
	api := newFakeTimerAPI()
	ctx := context.Background()

	_, err := api.Start(ctx, "study", models.DeviceInfo{DeviceID: "dev-2", DeviceName: "phone"}, nil)
	require.NoError(t, err)
	_, err = api.Start(ctx, "work", models.DeviceInfo{DeviceID: "dev-1", DeviceName: "laptop"}, nil)
	require.NoError(t, err)

	recorder := &remoteRecorder{}
	poller := NewPoller(api, time.Minute, "dev-1", recorder.callback)

	// ACT: two ticks over an unchanged remote list
	poller.tick(ctx)
	poller.tick(ctx)

	// ASSERT: only the other device's record surfaced, exactly once
	seen := recorder.seen()
	require.Len(t, seen, 1)
	assert.Equal(t, "study", seen[0].CategoryID)
	assert.Equal(t, "phone", seen[0].DeviceName)
}

func TestPoller_TransientErrorsAreRetriedNextTick(t *testing.T) {
	api := newFakeTimerAPI()
	api.setListErr(errors.New("connection reset"))

	recorder := &remoteRecorder{}
	poller := NewPoller(api, time.Minute, "dev-1", recorder.callback)
	ctx := context.Background()

	poller.tick(ctx)
	assert.Zero(t, poller.BackoffUntil(), "transient error must not trigger backoff")

	// Next tick recovers.
	api.setListErr(nil)
	_, err := api.Start(ctx, "study", models.DeviceInfo{DeviceID: "dev-2", DeviceName: "phone"}, nil)
	require.NoError(t, err)

	poller.tick(ctx)
	assert.Len(t, recorder.seen(), 1)
}

func TestPoller_QuotaErrorEntersBackoffAndSkipsPolling(t *testing.T) {
	// ARRANGE
	api := newFakeTimerAPI()
	api.setListErr(repositories.ErrQuotaExceeded)

	poller := NewPoller(api, time.Minute, "dev-1", nil)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }
	ctx := context.Background()

	// ACT: the failing poll
	poller.tick(ctx)

	// ASSERT: backoff window of 2^1 minutes
	until := poller.BackoffUntil()
	assert.Equal(t, now.Add(2*time.Minute), until)

	// Ticks inside the window never reach the API.
	calls := api.listCalls()
	poller.tick(ctx)
	assert.Equal(t, calls, api.listCalls())

	// Past the window, polling resumes.
	api.setListErr(nil)
	poller.now = func() time.Time { return now.Add(3 * time.Minute) }
	poller.tick(ctx)
	assert.Greater(t, api.listCalls(), calls)
	assert.Zero(t, poller.BackoffUntil())
}

func TestPoller_BackoffIsCapped(t *testing.T) {
	api := newFakeTimerAPI()
	api.setListErr(repositories.ErrQuotaExceeded)

	poller := NewPoller(api, time.Minute, "dev-1", nil)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Repeated quota failures, each past the previous window.
	for i := 0; i < 10; i++ {
		poller.now = func() time.Time { return now }
		poller.tick(ctx)
		now = poller.BackoffUntil().Add(time.Second)
	}

	poller.now = func() time.Time { return now }
	poller.tick(ctx)
	window := poller.BackoffUntil().Sub(now)
	assert.Equal(t, 60*time.Minute, window)
}

func TestPoller_BackoffSurvivesLongFailureStreaks(t *testing.T) {
	// A client rate-limited for days accumulates failure counts far
	// beyond the shift width; the window must stay at the cap instead
	// of collapsing to zero.
	poller := NewPoller(newFakeTimerAPI(), time.Minute, "dev-1", nil)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	poller.now = func() time.Time { return now }

	for _, failures := range []int{6, 62, 63, 200} {
		poller.failureCount = failures - 1
		poller.enterBackoff()
		assert.Equal(t, now.Add(60*time.Minute), poller.BackoffUntil(),
			"failure %d must hold the 60m cap", failures)
	}
}
