package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine defaults.
const (
	// DefaultTickInterval is how often running timers are reconciled.
	DefaultTickInterval = 200 * time.Millisecond

	// DefaultDuration is the configured duration of a freshly added timer.
	DefaultDuration = 5 * time.Minute

	// DefaultNotifierTimeout bounds each call into the notification bridge.
	DefaultNotifierTimeout = 2 * time.Second

	// StorageKey is the fixed key the timer collection is persisted under.
	StorageKey = "cooking-timers:v1"
)

// Alarm produces the audible tone for one timer.
type Alarm interface {
	// Prepare unlocks the audio output. Call it from a user action.
	Prepare() error
	Play()
	Stop()
	Dispose()
	IsPlaying() bool
}

// AlarmFactory creates the per-timer alarm lazily.
type AlarmFactory interface {
	NewAlarm(timerID string) Alarm
}

// AlarmFactoryFunc adapts a function to AlarmFactory.
type AlarmFactoryFunc func(timerID string) Alarm

// NewAlarm calls f.
func (f AlarmFactoryFunc) NewAlarm(timerID string) Alarm { return f(timerID) }

// TimerNotification describes a native notification for a timer deadline.
type TimerNotification struct {
	TimerID string
	Title   string
	Body    string
	FireAt  time.Time
}

// Notifier is the native notification bridge. Every call is best effort.
type Notifier interface {
	EnsurePermission(ctx context.Context) error
	// ScheduleTimerNotification replaces any pending notification for the
	// same timer id and reports whether the new one was accepted.
	ScheduleTimerNotification(ctx context.Context, n TimerNotification) (bool, error)
	// CancelTimerNotification is a no-op when nothing is pending.
	CancelTimerNotification(ctx context.Context, timerID string) error
}

// Storage is a durable key/value store. Get returns nil, nil for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Config wires a Store. Zero values are replaced by defaults in NewStore.
type Config struct {
	Storage  Storage
	Alarms   AlarmFactory
	Notifier Notifier
	Clock    Clock
	Logger   *slog.Logger

	StorageKey      string
	DefaultDuration time.Duration
	NotifierTimeout time.Duration

	// NameFor names the n-th added timer (1-based).
	NameFor func(n int) string
	// NotificationText returns the title and body shown when t elapses.
	NotificationText func(t TimerItem) (title, body string)
}

func (c *Config) applyDefaults() {
	if c.Storage == nil {
		c.Storage = nopStorage{}
	}
	if c.Alarms == nil {
		c.Alarms = AlarmFactoryFunc(func(string) Alarm { return nopAlarm{} })
	}
	if c.Notifier == nil {
		c.Notifier = nopNotifier{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.StorageKey == "" {
		c.StorageKey = StorageKey
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = DefaultDuration
	}
	if c.NotifierTimeout <= 0 {
		c.NotifierTimeout = DefaultNotifierTimeout
	}
	if c.NameFor == nil {
		c.NameFor = func(n int) string { return fmt.Sprintf("Timer %d", n) }
	}
	if c.NotificationText == nil {
		c.NotificationText = func(t TimerItem) (string, string) {
			return "Timer finished", t.Name + " is done"
		}
	}
}

// splitDuration converts d into clamped hours, minutes and seconds.
func splitDuration(d time.Duration) (h, m, s int) {
	total := int(d / time.Second)
	h = clamp(total/3600, 0, MaxHours)
	m = (total % 3600) / 60
	s = total % 60
	return h, m, s
}

type nopAlarm struct{}

func (nopAlarm) Prepare() error  { return nil }
func (nopAlarm) Play()           {}
func (nopAlarm) Stop()           {}
func (nopAlarm) Dispose()        {}
func (nopAlarm) IsPlaying() bool { return false }

type nopNotifier struct{}

func (nopNotifier) EnsurePermission(context.Context) error { return nil }

func (nopNotifier) ScheduleTimerNotification(context.Context, TimerNotification) (bool, error) {
	return false, nil
}

func (nopNotifier) CancelTimerNotification(context.Context, string) error { return nil }

type nopStorage struct{}

func (nopStorage) Get(context.Context, string) ([]byte, error) { return nil, nil }
func (nopStorage) Put(context.Context, string, []byte) error   { return nil }
