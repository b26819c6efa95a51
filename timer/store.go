package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Precondition errors. When an operation returns one of these the store is
// left exactly as it was.
var (
	ErrNotFound     = errors.New("timer not found")
	ErrLastTimer    = errors.New("cannot remove the last timer")
	ErrZeroDuration = errors.New("timer duration is zero")
	ErrInvalidPhase = errors.New("timer cannot start from its current phase")
	ErrNotRunning   = errors.New("timer is not running")
	ErrNotPaused    = errors.New("timer is not paused")
	ErrNotIdle      = errors.New("timer duration can only change while idle")
)

const saveTimeout = 5 * time.Second

// Store owns the timer collection and every mutation applied to it.
type Store struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	timers   []TimerItem
	activeID string
	revision uint64
	added    int
	alarms   map[string]Alarm

	listenerMu   sync.Mutex
	listeners    map[int]func(Snapshot)
	nextListener int

	saveMu        sync.Mutex
	savedRevision uint64
}

// NewStore creates a store holding a single default timer. Call Load to
// replace it with the persisted collection.
func NewStore(cfg Config) *Store {
	cfg.applyDefaults()
	s := &Store{
		cfg:       cfg,
		log:       cfg.Logger.With("component", "timer-store"),
		alarms:    make(map[string]Alarm),
		listeners: make(map[int]func(Snapshot)),
	}
	first := s.firstTimer()
	s.timers = []TimerItem{first}
	s.activeID = first.ID
	s.added = 1
	return s
}

// Load reads the persisted collection, repairs it against the current time
// and makes it the store's state. A storage error is returned after the
// store has fallen back to a default timer, so the engine stays usable. The
// fallback is not written back: the stored collection is only replaced by
// the next change made through the store.
func (s *Store) Load(ctx context.Context) error {
	raw, loadErr := s.cfg.Storage.Get(ctx, s.cfg.StorageKey)
	if loadErr != nil {
		s.log.Warn("loading persisted timers failed", "err", loadErr)
		raw = nil
	}
	s.mu.Lock()
	items := s.timers
	if raw != nil {
		items = normalizeJSON(raw, s.cfg.Clock.Now(), s.firstTimer)
	}
	for id, a := range s.alarms {
		a.Stop()
		a.Dispose()
		delete(s.alarms, id)
	}
	s.timers = items
	s.activeID = items[0].ID
	s.added = len(items)
	// Pending notifications do not outlive the process that scheduled them.
	for i := range s.timers {
		if t := &s.timers[i]; t.Phase == PhaseRunning {
			s.scheduleNotificationLocked(t)
		}
	}
	s.applyAlarmRuleLocked()
	snap := s.commitLocked()
	s.mu.Unlock()

	s.log.Info("timers loaded", "count", len(snap.Timers))
	if loadErr != nil {
		s.broadcast(snap)
		return fmt.Errorf("loading timers: %w", loadErr)
	}
	s.publish(snap)
	return nil
}

func (s *Store) firstTimer() TimerItem {
	return newDefaultTimer(s.cfg.NameFor(1), s.cfg.DefaultDuration)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every change.
// The returned function removes the listener.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// AddTimer appends an idle timer with the default duration and makes it
// the active one.
func (s *Store) AddTimer() string {
	s.mu.Lock()
	t := newDefaultTimer(s.nextNameLocked(), s.cfg.DefaultDuration)
	s.timers = append(s.timers, t)
	s.activeID = t.ID
	snap := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug("timer added", "timer_id", t.ID)
	s.publish(snap)
	return t.ID
}

// RemoveTimer silences and deletes a timer. The last remaining timer can
// not be removed.
func (s *Store) RemoveTimer(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if len(s.timers) == 1 {
		s.mu.Unlock()
		return ErrLastTimer
	}

	if a, ok := s.alarms[id]; ok {
		a.Stop()
		a.Dispose()
		delete(s.alarms, id)
	}
	s.cancelNotificationLocked(id)

	s.timers = append(s.timers[:i], s.timers[i+1:]...)
	if s.activeID == id {
		s.activeID = s.timers[0].ID
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug("timer removed", "timer_id", id)
	s.publish(snap)
	return nil
}

// SetActive selects the timer the UI focuses on.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.activeID == id {
		s.mu.Unlock()
		return nil
	}
	s.activeID = id
	snap := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// UpdateFields merges the editable fields of p into the timer. Durations
// are clamped into range and may only change while the timer is idle.
func (s *Store) UpdateFields(id string, p Patch) error {
	return s.mutate(id, func(t *TimerItem) (bool, error) {
		if p.touchesDuration() && t.Phase != PhaseIdle {
			return false, ErrNotIdle
		}
		if p.Name != nil {
			t.Name = *p.Name
		}
		if p.Hours != nil {
			t.Hours = clamp(*p.Hours, 0, MaxHours)
		}
		if p.Minutes != nil {
			t.Minutes = clamp(*p.Minutes, 0, MaxMinutes)
		}
		if p.Seconds != nil {
			t.Seconds = clamp(*p.Seconds, 0, MaxSeconds)
		}
		return true, nil
	})
}

// StartTimer starts an idle or paused timer from its full configured
// duration.
func (s *Store) StartTimer(id string) error {
	return s.mutate(id, func(t *TimerItem) (bool, error) {
		total := t.TotalSeconds()
		if total <= 0 {
			return false, ErrZeroDuration
		}
		if t.Phase != PhaseIdle && t.Phase != PhasePaused {
			return false, ErrInvalidPhase
		}

		now := s.cfg.Clock.Now().UnixMilli()
		t.Phase = PhaseRunning
		t.EndAtMs = int64Ptr(now + int64(total)*1000)
		t.RemainingSec = total
		t.RemainingAtPause = nil
		t.AlarmFired = false
		t.NativeScheduled = false

		s.prepareAlarmLocked(t.ID)
		s.scheduleNotificationLocked(t)
		s.log.Debug("timer started", "timer_id", t.ID, "seconds", total)
		return true, nil
	})
}

// PauseTimer freezes a running timer. A timer whose deadline has already
// passed finishes instead of pausing at zero.
func (s *Store) PauseTimer(id string) error {
	return s.mutate(id, func(t *TimerItem) (bool, error) {
		if t.Phase != PhaseRunning || t.EndAtMs == nil {
			return false, ErrNotRunning
		}

		remain := remainingSeconds(*t.EndAtMs, s.cfg.Clock.Now().UnixMilli())
		s.cancelNotificationLocked(t.ID)
		s.stopAlarmLocked(t.ID)

		if remain <= 0 {
			t.toFinished()
			return true, nil
		}
		t.Phase = PhasePaused
		t.RemainingSec = remain
		t.RemainingAtPause = intPtr(remain)
		t.EndAtMs = nil
		t.NativeScheduled = false
		s.log.Debug("timer paused", "timer_id", t.ID, "remaining", remain)
		return true, nil
	})
}

// ResumeTimer continues a paused timer from where it stopped.
func (s *Store) ResumeTimer(id string) error {
	return s.mutate(id, func(t *TimerItem) (bool, error) {
		if t.Phase != PhasePaused || t.RemainingAtPause == nil || *t.RemainingAtPause <= 0 {
			return false, ErrNotPaused
		}

		remain := *t.RemainingAtPause
		now := s.cfg.Clock.Now().UnixMilli()
		t.Phase = PhaseRunning
		t.EndAtMs = int64Ptr(now + int64(remain)*1000)
		t.RemainingSec = remain
		t.RemainingAtPause = nil
		t.NativeScheduled = false

		s.prepareAlarmLocked(t.ID)
		s.scheduleNotificationLocked(t)
		s.log.Debug("timer resumed", "timer_id", t.ID, "remaining", remain)
		return true, nil
	})
}

// ResetTimer returns a timer to idle, silencing its alarm and cancelling
// its notification. Resetting a timer that is already idle does nothing.
func (s *Store) ResetTimer(id string) error {
	return s.mutate(id, func(t *TimerItem) (bool, error) {
		if t.clean() {
			return false, nil
		}
		s.stopAlarmLocked(t.ID)
		s.cancelNotificationLocked(t.ID)
		t.toIdle()
		s.log.Debug("timer reset", "timer_id", t.ID)
		return true, nil
	})
}

// StopAlarmAndFinish acknowledges a finished timer.
func (s *Store) StopAlarmAndFinish(id string) error {
	return s.ResetTimer(id)
}

// Reconcile recomputes every running timer from its deadline and moves
// expired ones to finished. It is the body of the Ticker.
func (s *Store) Reconcile() {
	s.mu.Lock()
	nowMs := s.cfg.Clock.Now().UnixMilli()
	changed := false
	for i := range s.timers {
		t := &s.timers[i]
		if t.Phase != PhaseRunning || t.EndAtMs == nil {
			continue
		}
		remain := remainingSeconds(*t.EndAtMs, nowMs)
		if remain == t.RemainingSec && remain > 0 {
			continue
		}
		if remain <= 0 {
			t.toFinished()
			s.log.Info("timer finished", "timer_id", t.ID)
		} else {
			t.RemainingSec = remain
		}
		changed = true
	}
	if s.applyAlarmRuleLocked() {
		changed = true
	}
	if !changed {
		s.mu.Unlock()
		return
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// Close silences and releases every alarm and drops all listeners.
func (s *Store) Close() {
	s.mu.Lock()
	for id, a := range s.alarms {
		a.Stop()
		a.Dispose()
		delete(s.alarms, id)
	}
	s.mu.Unlock()

	s.listenerMu.Lock()
	s.listeners = make(map[int]func(Snapshot))
	s.listenerMu.Unlock()
}

// mutate runs fn on the timer with the given id under the store lock. fn
// reports whether it changed anything; errors leave the store untouched.
func (s *Store) mutate(id string, fn func(t *TimerItem) (bool, error)) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	before := s.timers[i].clone()
	changed, err := fn(&s.timers[i])
	if err != nil {
		s.timers[i] = before
		s.mu.Unlock()
		return err
	}
	if s.applyAlarmRuleLocked() {
		changed = true
	}
	if !changed {
		s.mu.Unlock()
		return nil
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.publish(snap)
	return nil
}

// applyAlarmRuleLocked starts the alarm of every finished timer that has
// not alarmed yet in this episode. The in-app alarm supersedes the native
// notification, so that one is cancelled.
func (s *Store) applyAlarmRuleLocked() bool {
	changed := false
	for i := range s.timers {
		t := &s.timers[i]
		if t.Phase != PhaseFinished || t.AlarmFired {
			continue
		}
		s.alarmLocked(t.ID).Play()
		s.cancelNotificationLocked(t.ID)
		t.AlarmFired = true
		changed = true
	}
	return changed
}

func (s *Store) alarmLocked(id string) Alarm {
	a, ok := s.alarms[id]
	if !ok {
		a = s.cfg.Alarms.NewAlarm(id)
		s.alarms[id] = a
	}
	return a
}

func (s *Store) prepareAlarmLocked(id string) {
	if err := s.alarmLocked(id).Prepare(); err != nil {
		s.log.Debug("alarm prepare failed", "timer_id", id, "err", err)
	}
}

func (s *Store) stopAlarmLocked(id string) {
	if a, ok := s.alarms[id]; ok {
		a.Stop()
	}
}

func (s *Store) scheduleNotificationLocked(t *TimerItem) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifierTimeout)
	defer cancel()

	if err := s.cfg.Notifier.EnsurePermission(ctx); err != nil {
		s.log.Debug("notification permission unavailable", "timer_id", t.ID, "err", err)
	}
	title, body := s.cfg.NotificationText(*t)
	ok, err := s.cfg.Notifier.ScheduleTimerNotification(ctx, TimerNotification{
		TimerID: t.ID,
		Title:   title,
		Body:    body,
		FireAt:  time.UnixMilli(*t.EndAtMs),
	})
	if err != nil {
		s.log.Debug("scheduling notification failed", "timer_id", t.ID, "err", err)
		ok = false
	}
	t.NativeScheduled = ok
}

func (s *Store) cancelNotificationLocked(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifierTimeout)
	defer cancel()

	if err := s.cfg.Notifier.CancelTimerNotification(ctx, id); err != nil {
		s.log.Debug("cancelling notification failed", "timer_id", id, "err", err)
	}
}

// nextNameLocked returns the next numbered name that no timer is using.
func (s *Store) nextNameLocked() string {
	var name string
	for range len(s.timers) + 1 {
		s.added++
		name = s.cfg.NameFor(s.added)
		if !slices.ContainsFunc(s.timers, func(t TimerItem) bool { return t.Name == name }) {
			break
		}
	}
	return name
}

func (s *Store) indexLocked(id string) int {
	for i := range s.timers {
		if s.timers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) commitLocked() Snapshot {
	s.revision++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	timers := make([]TimerItem, len(s.timers))
	for i, t := range s.timers {
		timers[i] = t.clone()
	}
	return Snapshot{Timers: timers, ActiveID: s.activeID, Revision: s.revision}
}

// publish persists snap and hands it to every listener. It runs outside
// the store lock.
func (s *Store) publish(snap Snapshot) {
	s.persist(snap)
	s.broadcast(snap)
}

func (s *Store) broadcast(snap Snapshot) {
	s.listenerMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// persist writes snap unless a newer revision has already been written.
func (s *Store) persist(snap Snapshot) {
	data, err := json.Marshal(snap.Timers)
	if err != nil {
		s.log.Error("encoding timers failed", "err", err)
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if snap.Revision <= s.savedRevision {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.cfg.Storage.Put(ctx, s.cfg.StorageKey, data); err != nil {
		s.log.Warn("persisting timers failed", "revision", snap.Revision, "err", err)
		return
	}
	s.savedRevision = snap.Revision
}
