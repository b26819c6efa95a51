package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	calls atomic.Int32
}

func (c *countingReconciler) Reconcile() { c.calls.Add(1) }

func TestNewTickerDefaultsInterval(t *testing.T) {
	assert.Equal(t, DefaultTickInterval, NewTicker(&countingReconciler{}, 0).Interval())
	assert.Equal(t, time.Second, NewTicker(&countingReconciler{}, time.Second).Interval())
}

func TestTickerRunWith(t *testing.T) {
	r := &countingReconciler{}
	ticker := NewTicker(r, time.Hour)
	ticks := make(chan time.Time)
	done := make(chan struct{})

	go func() {
		ticker.RunWith(context.Background(), ticks)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}
	close(ticks)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunWith did not return after ticks was closed")
	}
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestTickerStopsOnCancel(t *testing.T) {
	r := &countingReconciler{}
	ticker := NewTicker(r, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTickerDrivesStore(t *testing.T) {
	h := newHarness(t)
	id := h.first()
	h.configure(t, id, 0, 0, 2)
	require.NoError(t, h.store.StartTimer(id))

	ticker := NewTicker(h.store, DefaultTickInterval)
	for i := 0; i < 10; i++ {
		h.clock.Advance(DefaultTickInterval)
		ticker.Step()
	}

	assert.Equal(t, PhaseFinished, h.item(t, id).Phase)
	assert.True(t, h.item(t, id).AlarmFired)
}
