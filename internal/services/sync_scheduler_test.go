package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysCredentialed() bool { return true }

func TestSyncScheduler_CoalescesBurstsIntoOneSync(t *testing.T) {
	// ARRANGE
	var runs int64
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, SchedulerOptions{
		Debounce:      50 * time.Millisecond,
		Throttle:      time.Second,
		HasCredential: alwaysCredentialed,
	})

	// ACT: a burst of passive requests within the debounce window
	for i := 0; i < 10; i++ {
		scheduler.ScheduleSync(false)
	}

	// ASSERT: exactly one sync executed
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&runs))
}

func TestSyncScheduler_NoCredentialIsNoOp(t *testing.T) {
	var runs int64
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, SchedulerOptions{
		Debounce:      time.Millisecond,
		HasCredential: func() bool { return false },
	})

	scheduler.ScheduleSync(true)
	scheduler.ScheduleSync(false)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&runs))
}

func TestSyncScheduler_UnchangedHashSkipsPassiveSync(t *testing.T) {
	// ARRANGE: a successful sync records the content hash
	var runs int64
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, SchedulerOptions{
		Debounce:      time.Millisecond,
		HasCredential: alwaysCredentialed,
		LocalHash:     func() uint64 { return 42 },
	})

	res := scheduler.ExecuteSync(context.Background(), DirectionAuto)
	require.True(t, res.Success)
	require.Equal(t, int64(1), atomic.LoadInt64(&runs))

	// ACT: passive scheduling with an unchanged hash
	scheduler.ScheduleSync(false)

	// ASSERT: skipped, no network call
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&runs))
	assert.False(t, scheduler.Status().HasLocalChanges)
}

func TestSyncScheduler_SingleFlight(t *testing.T) {
	// ARRANGE: a sync that blocks until released
	release := make(chan struct{})
	var inFlight, maxInFlight, runs int64
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		n := atomic.AddInt64(&inFlight, 1)
		if n > atomic.LoadInt64(&maxInFlight) {
			atomic.StoreInt64(&maxInFlight, n)
		}
		<-release
		atomic.AddInt64(&inFlight, -1)
		atomic.AddInt64(&runs, 1)
		return nil
	}, SchedulerOptions{HasCredential: alwaysCredentialed})

	var wg sync.WaitGroup
	results := make([]SyncResult, 2)

	// ACT: two concurrent executions
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = scheduler.ExecuteSync(context.Background(), DirectionAuto)
		}(i)
	}

	require.Eventually(t, func() bool {
		return scheduler.Status().IsSyncing && scheduler.Status().QueueLength == 1
	}, time.Second, 5*time.Millisecond, "second caller must queue, not run")

	close(release)
	wg.Wait()

	// ASSERT: both succeeded, never more than one in flight
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, int64(1), atomic.LoadInt64(&maxInFlight))
	assert.Equal(t, int64(2), atomic.LoadInt64(&runs), "queued caller runs its own sync afterwards")
}

func TestSyncScheduler_RetriesWithBackoffThenSucceeds(t *testing.T) {
	var attempts int64
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("transient network failure")
		}
		return nil
	}, SchedulerOptions{
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
		HasCredential: alwaysCredentialed,
	})

	res := scheduler.ExecuteSync(context.Background(), DirectionAuto)

	assert.True(t, res.Success)
	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts))
}

func TestSyncScheduler_ExhaustedRetriesSurfaceFailureThenRecover(t *testing.T) {
	// ARRANGE: a sync that fails forever, then one that works
	fail := int64(1)
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		if atomic.LoadInt64(&fail) == 1 {
			return errors.New("network down")
		}
		return nil
	}, SchedulerOptions{
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		HasCredential: alwaysCredentialed,
	})

	// ACT
	res := scheduler.ExecuteSync(context.Background(), DirectionAuto)

	// ASSERT: failure surfaced, scheduler back to idle, next call fresh
	require.False(t, res.Success)
	require.Error(t, res.Err)
	assert.False(t, scheduler.Status().IsSyncing)

	atomic.StoreInt64(&fail, 0)
	res = scheduler.SyncToCloud(context.Background())
	assert.True(t, res.Success)
}

func TestSyncScheduler_CancelClearsPendingTimer(t *testing.T) {
	var runs int64
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, SchedulerOptions{
		Debounce:      20 * time.Millisecond,
		HasCredential: alwaysCredentialed,
	})

	scheduler.ScheduleSync(false)
	scheduler.Cancel()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&runs))
}

func TestSyncScheduler_ForcedDirectionsReachSyncFunc(t *testing.T) {
	var directions []SyncDirection
	var mu sync.Mutex
	scheduler := NewSyncScheduler(func(ctx context.Context, direction SyncDirection) error {
		mu.Lock()
		directions = append(directions, direction)
		mu.Unlock()
		return nil
	}, SchedulerOptions{HasCredential: alwaysCredentialed})

	require.True(t, scheduler.SyncToCloud(context.Background()).Success)
	require.True(t, scheduler.SyncFromCloud(context.Background()).Success)

	assert.Equal(t, []SyncDirection{DirectionUpload, DirectionDownload}, directions)
}
