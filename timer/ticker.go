package timer

import (
	"context"
	"time"
)

// Reconciler is the work done on every tick.
type Reconciler interface {
	Reconcile()
}

// Ticker drives a Reconciler at a fixed interval. Remaining time is always
// derived from deadlines, so a late or skipped tick only delays the update
// and never skews it.
type Ticker struct {
	target   Reconciler
	interval time.Duration
}

// NewTicker creates a ticker. A non-positive interval selects
// DefaultTickInterval.
func NewTicker(target Reconciler, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{target: target, interval: interval}
}

// Interval returns the configured tick interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Run reconciles on a wall-clock ticker until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	t.RunWith(ctx, ticker.C)
}

// RunWith reconciles once per value received on ticks until ctx is
// cancelled or ticks is closed. Tests feed it from a simulated clock.
func (t *Ticker) RunWith(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			t.target.Reconcile()
		}
	}
}

// Step performs a single reconciliation.
func (t *Ticker) Step() {
	t.target.Reconcile()
}
