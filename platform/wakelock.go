// Package platform adapts operating-system capabilities to the interfaces
// the timer engine consumes. Every capability has an unsupported fallback
// so callers never need to check which platform they are on.
package platform

import (
	"context"
	"errors"
	"sync"

	"KitchenTimers/timer"
)

// ErrWakeLockUnsupported is returned when the platform cannot keep the
// screen on.
var ErrWakeLockUnsupported = errors.New("wake lock unsupported")

// inhibitor is the raw screen-saver inhibition API.
type inhibitor interface {
	Inhibit(ctx context.Context, app, reason string) (uint32, error)
	UnInhibit(ctx context.Context, cookie uint32) error
}

// NewWakeLocker returns the wake lock for this platform.
func NewWakeLocker(appName string) timer.WakeLocker {
	inh, err := newInhibitor()
	if err != nil {
		return unsupportedWakeLocker{}
	}
	return &screenLock{inh: inh, app: appName, reason: "Timers running"}
}

// screenLock turns an inhibitor into an idempotent lock holding at most one
// cookie.
type screenLock struct {
	inh    inhibitor
	app    string
	reason string

	mu     sync.Mutex
	cookie uint32
	held   bool
}

func (l *screenLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil
	}
	cookie, err := l.inh.Inhibit(ctx, l.app, l.reason)
	if err != nil {
		return err
	}
	l.cookie, l.held = cookie, true
	return nil
}

func (l *screenLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	// The cookie is dropped even on failure; the session bus releases
	// inhibitions of a closed connection anyway.
	err := l.inh.UnInhibit(ctx, l.cookie)
	l.cookie, l.held = 0, false
	return err
}

type unsupportedWakeLocker struct{}

func (unsupportedWakeLocker) Acquire(context.Context) error { return ErrWakeLockUnsupported }
func (unsupportedWakeLocker) Release(context.Context) error { return nil }
