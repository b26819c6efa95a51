package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Wake lock retry policy.
const (
	wakeLockTimeout    = 2 * time.Second
	wakeLockMinBackoff = time.Second
	wakeLockMaxBackoff = 30 * time.Second
)

// WakeLocker is the platform capability that keeps the screen on. Acquire
// must be idempotent: calling it while the lock is held keeps a single lock.
type WakeLocker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// WakeLockCoordinator holds the single screen wake lock while at least one
// timer is running. It is the only code that acquires or releases it.
type WakeLockCoordinator struct {
	locker WakeLocker
	clock  Clock
	log    *slog.Logger

	mu           sync.Mutex
	wanted       bool
	held         bool
	lastRevision uint64
	failures     int
	nextAttempt  time.Time
}

// NewWakeLockCoordinator creates a coordinator. A nil clock uses the
// system clock and a nil logger uses slog.Default.
func NewWakeLockCoordinator(locker WakeLocker, clock Clock, logger *slog.Logger) *WakeLockCoordinator {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WakeLockCoordinator{
		locker: locker,
		clock:  clock,
		log:    logger.With("component", "wake-lock"),
	}
}

// Attach subscribes the coordinator to s and applies the current state.
func (c *WakeLockCoordinator) Attach(s *Store) (cancel func()) {
	cancel = s.Subscribe(c.Observe)
	c.Observe(s.Snapshot())
	return cancel
}

// Observe updates the aggregate running state from a store snapshot.
// Snapshots older than the last one seen are ignored.
func (c *WakeLockCoordinator) Observe(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.Revision < c.lastRevision {
		return
	}
	c.lastRevision = snap.Revision

	wanted := snap.AnyRunning()
	rising := wanted && !c.wanted
	c.wanted = wanted

	switch {
	case wanted && !c.held:
		if rising {
			c.failures = 0
			c.nextAttempt = time.Time{}
		}
		c.acquireLocked()
	case !wanted && c.held:
		c.releaseLocked()
	}
}

// OnVisible re-acquires the lock after the window returns to the
// foreground, since platforms commonly drop it while backgrounded.
func (c *WakeLockCoordinator) OnVisible() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The platform may have revoked a lock we believe we hold, so ask again.
	if c.wanted {
		c.acquireLocked()
	}
}

// Held reports whether the coordinator currently holds the lock.
func (c *WakeLockCoordinator) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// Close releases the lock if it is held.
func (c *WakeLockCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wanted = false
	if c.held {
		c.releaseLocked()
	}
}

func (c *WakeLockCoordinator) acquireLocked() {
	now := c.clock.Now()
	if now.Before(c.nextAttempt) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wakeLockTimeout)
	defer cancel()
	if err := c.locker.Acquire(ctx); err != nil {
		c.held = false
		c.failures++
		c.nextAttempt = now.Add(c.backoff())
		c.log.Debug("wake lock unavailable", "err", err, "retry_after", c.nextAttempt.Sub(now))
		return
	}
	c.held = true
	c.failures = 0
	c.nextAttempt = time.Time{}
	c.log.Debug("wake lock acquired")
}

func (c *WakeLockCoordinator) releaseLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), wakeLockTimeout)
	defer cancel()
	if err := c.locker.Release(ctx); err != nil {
		c.log.Debug("wake lock release failed", "err", err)
	}
	c.held = false
	c.log.Debug("wake lock released")
}

func (c *WakeLockCoordinator) backoff() time.Duration {
	d := wakeLockMinBackoff
	for i := 1; i < c.failures && d < wakeLockMaxBackoff; i++ {
		d *= 2
	}
	return min(d, wakeLockMaxBackoff)
}
