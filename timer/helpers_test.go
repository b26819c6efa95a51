package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// manualClock is a Clock that only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeAlarm counts calls.
type fakeAlarm struct {
	mu                     sync.Mutex
	prepares, plays, stops int
	disposed, playing      bool
	prepareErr             error
}

func (a *fakeAlarm) Prepare() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prepares++
	return a.prepareErr
}

func (a *fakeAlarm) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plays++
	a.playing = true
}

func (a *fakeAlarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	a.playing = false
}

func (a *fakeAlarm) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disposed = true
	a.playing = false
}

func (a *fakeAlarm) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

func (a *fakeAlarm) counts() (prepares, plays, stops int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prepares, a.plays, a.stops
}

type fakeAlarms struct {
	mu     sync.Mutex
	byID   map[string]*fakeAlarm
	failOn error
}

func newFakeAlarms() *fakeAlarms {
	return &fakeAlarms{byID: make(map[string]*fakeAlarm)}
}

func (f *fakeAlarms) NewAlarm(id string) Alarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &fakeAlarm{prepareErr: f.failOn}
	f.byID[id] = a
	return a
}

func (f *fakeAlarms) get(id string) *fakeAlarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

// mockNotifier is a testify mock of the notification bridge.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) EnsurePermission(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockNotifier) ScheduleTimerNotification(ctx context.Context, n TimerNotification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifier) CancelTimerNotification(ctx context.Context, timerID string) error {
	return m.Called(ctx, timerID).Error(0)
}

// permissiveNotifier accepts every call.
func permissiveNotifier() *mockNotifier {
	n := &mockNotifier{}
	n.On("EnsurePermission", mock.Anything).Return(nil).Maybe()
	n.On("ScheduleTimerNotification", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	n.On("CancelTimerNotification", mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

// memStorage is an in-memory Storage with optional failures.
type memStorage struct {
	mu     sync.Mutex
	data   map[string][]byte
	puts   int
	getErr error
	putErr error
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memStorage) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStorage) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

var errBoom = errors.New("boom")

type harness struct {
	store    *Store
	clock    *manualClock
	alarms   *fakeAlarms
	notifier *mockNotifier
	storage  *memStorage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, permissiveNotifier(), newMemStorage())
}

func newHarnessWith(t *testing.T, n *mockNotifier, st *memStorage) *harness {
	t.Helper()
	h := &harness{
		clock:    newManualClock(),
		alarms:   newFakeAlarms(),
		notifier: n,
		storage:  st,
	}
	h.store = NewStore(Config{
		Storage:  st,
		Alarms:   h.alarms,
		Notifier: n,
		Clock:    h.clock,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(h.store.Close)
	return h
}

// first returns the id of the first timer.
func (h *harness) first() string {
	return h.store.Snapshot().Timers[0].ID
}

func (h *harness) item(t *testing.T, id string) TimerItem {
	t.Helper()
	item, ok := h.store.Snapshot().Find(id)
	if !ok {
		t.Fatalf("timer %s not found", id)
	}
	return item
}

// run advances the clock in tick-sized steps, reconciling after each one.
func (h *harness) run(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += DefaultTickInterval {
		h.clock.Advance(DefaultTickInterval)
		h.store.Reconcile()
	}
}

func (h *harness) configure(t *testing.T, id string, hours, minutes, seconds int) {
	t.Helper()
	if err := h.store.UpdateFields(id, Patch{Hours: &hours, Minutes: &minutes, Seconds: &seconds}); err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
}
