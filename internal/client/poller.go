package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

type pollState int

const (
	stateIdle pollState = iota
	statePolling
	stateBackoff
)

const maxBackoff = 60 * time.Minute

// Poller re-fetches the active-timer list on an interval and surfaces
// records started by other devices through the OnRemoteTimer callback.
// They are never auto-applied to local state.
//
// Transient poll errors are swallowed and retried on the next tick. A
// quota error moves the poller to Backoff for min(2^failures, 60)
// minutes; polling is skipped entirely until the window passes.
type Poller struct {
	api           TimerAPI
	interval      time.Duration
	deviceID      string
	onRemoteTimer func(*models.ActiveTimerRecord)

	mu           sync.Mutex
	state        pollState
	failureCount int
	backoffUntil time.Time
	known        map[string]bool
	cancelPrev   context.CancelFunc

	now func() time.Time
}

func NewPoller(api TimerAPI, interval time.Duration, deviceID string, onRemoteTimer func(*models.ActiveTimerRecord)) *Poller {
	return &Poller{
		api:           api,
		interval:      interval,
		deviceID:      deviceID,
		onRemoteTimer: onRemoteTimer,
		now:           time.Now,
	}
}

// Run polls until ctx is done. Blocks; run it in its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	p.state = statePolling
	p.mu.Unlock()

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.state = stateIdle
			p.mu.Unlock()
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	if p.state == stateBackoff {
		if p.now().Before(p.backoffUntil) {
			p.mu.Unlock()
			return
		}
		p.state = statePolling
	}

	// A new tick supersedes any still-pending poll so an out-of-order
	// response cannot clobber fresher data.
	if p.cancelPrev != nil {
		p.cancelPrev()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancelPrev = cancel
	p.mu.Unlock()

	p.poll(pollCtx)
}

func (p *Poller) poll(ctx context.Context) {
	timers, err := p.api.ListActive(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, repositories.ErrQuotaExceeded) {
			p.enterBackoff()
			return
		}
		// Transient; the next tick retries.
		return
	}

	p.mu.Lock()
	p.failureCount = 0

	seen := make(map[string]bool, len(timers))
	var remote []*models.ActiveTimerRecord
	for _, t := range timers {
		seen[t.ID] = true
		if !p.known[t.ID] && t.DeviceID != p.deviceID {
			remote = append(remote, t)
		}
	}
	p.known = seen
	callback := p.onRemoteTimer
	p.mu.Unlock()

	if callback != nil {
		for _, t := range remote {
			callback(t)
		}
	}
}

func (p *Poller) enterBackoff() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	// 2^6 minutes already exceeds the cap; clamp the exponent so the
	// shift cannot overflow after many consecutive failures.
	wait := maxBackoff
	if p.failureCount < 6 {
		wait = time.Duration(1<<uint(p.failureCount)) * time.Minute
	}
	p.backoffUntil = p.now().Add(wait)
	p.state = stateBackoff
}

// BackoffUntil reports the end of the current backoff window, zero
// when not backing off. Used for the "sync paused" status message.
func (p *Poller) BackoffUntil() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != stateBackoff {
		return time.Time{}
	}
	return p.backoffUntil
}
