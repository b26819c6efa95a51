package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	acquires int
	releases int
	held     bool
	err      error
}

func (l *fakeLocker) Acquire(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if l.err != nil {
		return l.err
	}
	l.held = true
	return nil
}

func (l *fakeLocker) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases++
	l.held = false
	return nil
}

func (l *fakeLocker) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *fakeLocker) stats() (acquires, releases int, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquires, l.releases, l.held
}

func TestWakeLockFollowsRunningTimers(t *testing.T) {
	h := newHarness(t)
	locker := &fakeLocker{}
	c := NewWakeLockCoordinator(locker, h.clock, nil)
	cancel := c.Attach(h.store)
	defer cancel()

	a := h.first()
	b := h.store.AddTimer()
	h.configure(t, a, 0, 0, 30)
	h.configure(t, b, 0, 0, 30)

	acquires, _, held := locker.stats()
	assert.Equal(t, 0, acquires)
	assert.False(t, held)

	require.NoError(t, h.store.StartTimer(a))
	require.NoError(t, h.store.StartTimer(b))
	acquires, _, held = locker.stats()
	assert.Equal(t, 1, acquires, "one lock shared by all running timers")
	assert.True(t, held)
	assert.True(t, c.Held())

	require.NoError(t, h.store.PauseTimer(a))
	_, releases, _ := locker.stats()
	assert.Equal(t, 0, releases, "b still running")

	require.NoError(t, h.store.ResetTimer(b))
	_, releases, held = locker.stats()
	assert.Equal(t, 1, releases)
	assert.False(t, held)
	assert.False(t, c.Held())
}

func TestWakeLockReleasedWhenTimerFinishes(t *testing.T) {
	h := newHarness(t)
	locker := &fakeLocker{}
	c := NewWakeLockCoordinator(locker, h.clock, nil)
	defer c.Attach(h.store)()

	id := h.first()
	h.configure(t, id, 0, 0, 1)
	require.NoError(t, h.store.StartTimer(id))
	h.run(2 * time.Second)

	_, releases, held := locker.stats()
	assert.Equal(t, 1, releases)
	assert.False(t, held)
}

func TestWakeLockReacquiresOnVisible(t *testing.T) {
	h := newHarness(t)
	locker := &fakeLocker{}
	c := NewWakeLockCoordinator(locker, h.clock, nil)
	defer c.Attach(h.store)()

	c.OnVisible()
	acquires, _, _ := locker.stats()
	assert.Equal(t, 0, acquires, "nothing running")

	id := h.first()
	require.NoError(t, h.store.StartTimer(id))
	c.OnVisible()
	acquires, _, held := locker.stats()
	assert.Equal(t, 2, acquires)
	assert.True(t, held)
}

func TestWakeLockBackoff(t *testing.T) {
	h := newHarness(t)
	locker := &fakeLocker{err: errBoom}
	c := NewWakeLockCoordinator(locker, h.clock, nil)
	defer c.Attach(h.store)()

	id := h.first()
	require.NoError(t, h.store.StartTimer(id))
	acquires, _, _ := locker.stats()
	require.Equal(t, 1, acquires)
	assert.False(t, c.Held())

	c.OnVisible()
	acquires, _, _ = locker.stats()
	assert.Equal(t, 1, acquires, "still inside the backoff window")

	h.clock.Advance(time.Second)
	c.OnVisible()
	acquires, _, _ = locker.stats()
	assert.Equal(t, 2, acquires)

	h.clock.Advance(time.Second)
	c.OnVisible()
	acquires, _, _ = locker.stats()
	assert.Equal(t, 2, acquires, "second failure doubles the window")

	locker.setErr(nil)
	h.clock.Advance(time.Second)
	c.OnVisible()
	assert.True(t, c.Held())
}

func TestWakeLockIgnoresStaleSnapshots(t *testing.T) {
	locker := &fakeLocker{}
	c := NewWakeLockCoordinator(locker, newManualClock(), nil)

	running := Snapshot{Revision: 5, Timers: []TimerItem{{Phase: PhaseRunning}}}
	idle := Snapshot{Revision: 4, Timers: []TimerItem{{Phase: PhaseIdle}}}

	c.Observe(running)
	c.Observe(idle)
	assert.True(t, c.Held())

	c.Close()
	assert.False(t, c.Held())
	_, releases, _ := locker.stats()
	assert.Equal(t, 1, releases)
}

func TestWakeLockBackoffIsCapped(t *testing.T) {
	c := NewWakeLockCoordinator(&fakeLocker{}, newManualClock(), nil)
	c.failures = 40
	assert.Equal(t, wakeLockMaxBackoff, c.backoff())
	c.failures = 3
	assert.Equal(t, 4*time.Second, c.backoff())
}
