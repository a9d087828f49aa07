package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tickstream/tickstream/internal/models"
)

type SyncDirection string

const (
	DirectionAuto     SyncDirection = "auto"
	DirectionUpload   SyncDirection = "upload"
	DirectionDownload SyncDirection = "download"
)

// ErrSyncCancelled is delivered to queued sync waiters when the
// scheduler is cancelled before their turn comes.
var ErrSyncCancelled = errors.New("sync cancelled")

// SyncFunc performs one sync network operation. Injected so the
// scheduler is testable without a network.
type SyncFunc func(ctx context.Context, direction SyncDirection) error

type SyncResult struct {
	Success bool
	Err     error
}

type SyncStatus struct {
	IsSyncing       bool
	LastSyncTime    *time.Time
	QueueLength     int
	HasLocalChanges bool
}

type SchedulerOptions struct {
	Debounce   time.Duration // quiet period for passive scheduling
	Throttle   time.Duration // minimum interval between executions
	MaxRetries int
	RetryDelay time.Duration // multiplied by the retry attempt number

	// HasCredential gates all scheduling; without a credential every
	// ScheduleSync call is a no-op.
	HasCredential func() bool
	// LocalHash reports the current content hash of local data, used
	// to skip syncs when nothing changed.
	LocalHash func() uint64
	// State, when set, persists the hash gate and last sync time so
	// they survive process restarts.
	State *SyncStateStore
}

// SyncScheduler turns "data changed" events into at most one
// well-timed, non-overlapping network operation. At most one sync is
// in flight at a time; concurrent callers queue FIFO and each runs its
// own sync once the current one finishes.
type SyncScheduler struct {
	syncFn        SyncFunc
	hasCredential func() bool
	localHash     func() uint64
	state         *SyncStateStore

	debounce   time.Duration
	throttle   time.Duration
	maxRetries int
	retryDelay time.Duration

	mu             sync.Mutex
	timer          *time.Timer
	lastSyncTime   time.Time
	lastSyncedHash uint64
	hashValid      bool
	isSyncing      bool
	pending        []pendingSync

	now func() time.Time
}

type pendingSync struct {
	direction SyncDirection
	result    chan SyncResult
}

func NewSyncScheduler(syncFn SyncFunc, opts SchedulerOptions) *SyncScheduler {
	s := &SyncScheduler{
		syncFn:        syncFn,
		hasCredential: opts.HasCredential,
		localHash:     opts.LocalHash,
		state:         opts.State,
		debounce:      opts.Debounce,
		throttle:      opts.Throttle,
		maxRetries:    opts.MaxRetries,
		retryDelay:    opts.RetryDelay,
		now:           time.Now,
	}
	if opts.State != nil {
		persisted := opts.State.Load()
		if persisted.LastSyncTimestamp != nil {
			s.lastSyncTime = *persisted.LastSyncTimestamp
			s.lastSyncedHash = persisted.LastLocalHash
			s.hashValid = true
		}
	}
	return s
}

// ScheduleSync requests a sync. Non-immediate requests wait out the
// debounce quiet period and are skipped entirely when the local
// content hash is unchanged since the last successful sync. Immediate
// requests run now if the throttle window has elapsed, otherwise as
// soon as it does. A new call cancels any pending unfired timer.
func (s *SyncScheduler) ScheduleSync(immediate bool) {
	if s.hasCredential != nil && !s.hasCredential() {
		return
	}

	s.mu.Lock()
	if !immediate && s.hashValid && s.localHash != nil && s.localHash() == s.lastSyncedHash {
		s.mu.Unlock()
		return
	}

	elapsed := s.now().Sub(s.lastSyncTime)
	if immediate && elapsed >= s.throttle {
		s.mu.Unlock()
		go s.ExecuteSync(context.Background(), DirectionAuto)
		return
	}

	var delay time.Duration
	if immediate {
		delay = s.throttle - elapsed
		if delay < 0 {
			delay = 0
		}
	} else {
		delay = s.debounce
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, func() {
		s.ExecuteSync(context.Background(), DirectionAuto)
	})
	s.mu.Unlock()
}

// ExecuteSync runs one sync now, subject only to single-flight. When a
// sync is already in flight the call queues and its own sync runs
// after the current one completes.
func (s *SyncScheduler) ExecuteSync(ctx context.Context, direction SyncDirection) SyncResult {
	s.mu.Lock()
	if s.isSyncing {
		p := pendingSync{direction: direction, result: make(chan SyncResult, 1)}
		s.pending = append(s.pending, p)
		s.mu.Unlock()
		select {
		case res := <-p.result:
			return res
		case <-ctx.Done():
			return SyncResult{Err: ctx.Err()}
		}
	}
	s.isSyncing = true
	s.mu.Unlock()

	res := s.runWithRetry(ctx, direction)

	s.mu.Lock()
	if res.Success {
		s.lastSyncTime = s.now()
		if s.localHash != nil {
			s.lastSyncedHash = s.localHash()
			s.hashValid = true
		}
		if s.state != nil {
			syncedAt := s.lastSyncTime
			syncedHash := s.lastSyncedHash
			if err := s.state.Update(func(st *models.SyncState) {
				st.LastLocalHash = syncedHash
				st.LastSyncTimestamp = &syncedAt
			}); err != nil {
				log.Printf("Failed to persist sync state: %v", err)
			}
		}
	}
	s.isSyncing = false
	var next *pendingSync
	if len(s.pending) > 0 {
		n := s.pending[0]
		s.pending = s.pending[1:]
		next = &n
	}
	s.mu.Unlock()

	if next != nil {
		go func(p pendingSync) {
			p.result <- s.ExecuteSync(context.Background(), p.direction)
		}(*next)
	}
	return res
}

func (s *SyncScheduler) runWithRetry(ctx context.Context, direction SyncDirection) SyncResult {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			case <-ctx.Done():
				return SyncResult{Err: ctx.Err()}
			}
		}
		if err := s.syncFn(ctx, direction); err != nil {
			lastErr = err
			continue
		}
		return SyncResult{Success: true}
	}
	return SyncResult{Err: lastErr}
}

// SyncToCloud forces an upload, bypassing throttle and debounce.
func (s *SyncScheduler) SyncToCloud(ctx context.Context) SyncResult {
	return s.ExecuteSync(ctx, DirectionUpload)
}

// SyncFromCloud forces a download, bypassing throttle and debounce.
func (s *SyncScheduler) SyncFromCloud(ctx context.Context) SyncResult {
	return s.ExecuteSync(ctx, DirectionDownload)
}

// Cancel clears the pending timer and the queue. It never aborts an
// in-flight request; that completes or fails on its own.
func (s *SyncScheduler) Cancel() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, p := range pending {
		p.result <- SyncResult{Err: ErrSyncCancelled}
	}
}

func (s *SyncScheduler) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SyncStatus{
		IsSyncing:   s.isSyncing,
		QueueLength: len(s.pending),
	}
	if !s.lastSyncTime.IsZero() {
		t := s.lastSyncTime
		status.LastSyncTime = &t
	}
	if s.localHash != nil {
		status.HasLocalChanges = !s.hashValid || s.localHash() != s.lastSyncedHash
	}
	return status
}
