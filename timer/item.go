// Package timer contains the countdown engine: the TimerItem model, the
// Normalizer that turns a persisted snapshot back into consistent state, the
// Store that owns every mutation, the reconciliation Ticker and the wake lock
// coordinator.
//
// Maintenance notes:
//   - EndAtMs (an absolute wall-clock deadline) is the source of truth for a
//     running timer. RemainingSec is only the value last computed from it, so
//     a process that was suspended recovers by recomputing, never by counting
//     ticks.
//   - All mutations go through Store, which holds a single mutex. Listeners
//     and persistence run after the lock is released and must not assume they
//     observe snapshots in strict order; use Snapshot.Revision when it matters.
package timer

import (
	"fmt"
	"math"
)

// Phase is the state-machine value of a timer.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhasePaused   Phase = "paused"
	PhaseFinished Phase = "finished"
)

// Valid reports whether p is one of the four known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseRunning, PhasePaused, PhaseFinished:
		return true
	}
	return false
}

// Duration field limits.
const (
	MaxHours   = 23
	MaxMinutes = 59
	MaxSeconds = 59
)

// TimerItem is the complete persisted and runtime state of one countdown.
type TimerItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`

	Phase        Phase `json:"phase"`
	RemainingSec int   `json:"remainingSec"`

	// EndAtMs is set iff Phase is running.
	EndAtMs *int64 `json:"endAtMs"`
	// RemainingAtPause is set iff Phase is paused.
	RemainingAtPause *int `json:"remainingAtPause"`

	AlarmFired      bool `json:"alarmFired"`
	NativeScheduled bool `json:"nativeScheduled"`
}

// TotalSeconds returns the configured duration in seconds.
func (t TimerItem) TotalSeconds() int {
	return t.Hours*3600 + t.Minutes*60 + t.Seconds
}

// clone returns a deep copy; the pointer fields are never shared between
// the store and its readers.
func (t TimerItem) clone() TimerItem {
	c := t
	if t.EndAtMs != nil {
		v := *t.EndAtMs
		c.EndAtMs = &v
	}
	if t.RemainingAtPause != nil {
		v := *t.RemainingAtPause
		c.RemainingAtPause = &v
	}
	return c
}

// clean reports whether t is idle with no transient state left behind.
func (t TimerItem) clean() bool {
	return t.Phase == PhaseIdle &&
		t.RemainingSec == 0 &&
		t.EndAtMs == nil &&
		t.RemainingAtPause == nil &&
		!t.AlarmFired &&
		!t.NativeScheduled
}

// toIdle clears every transient field and returns the timer to idle.
func (t *TimerItem) toIdle() {
	t.Phase = PhaseIdle
	t.RemainingSec = 0
	t.EndAtMs = nil
	t.RemainingAtPause = nil
	t.AlarmFired = false
	t.NativeScheduled = false
}

// toFinished moves the timer into the finished phase. AlarmFired is left
// alone so the alarm rule can decide whether this episode still needs one.
func (t *TimerItem) toFinished() {
	t.Phase = PhaseFinished
	t.RemainingSec = 0
	t.EndAtMs = nil
	t.RemainingAtPause = nil
	t.NativeScheduled = false
}

// String is used in log lines.
func (t TimerItem) String() string {
	return fmt.Sprintf("%s(%s %s %ds)", t.ID, t.Name, t.Phase, t.RemainingSec)
}

// Patch holds the user-editable fields for UpdateFields. Nil fields are left
// unchanged.
type Patch struct {
	Name    *string
	Hours   *int
	Minutes *int
	Seconds *int
}

func (p Patch) touchesDuration() bool {
	return p.Hours != nil || p.Minutes != nil || p.Seconds != nil
}

// Snapshot is a consistent, deep-copied view of the store.
type Snapshot struct {
	Timers   []TimerItem
	ActiveID string
	Revision uint64
}

// Find returns the timer with the given id.
func (s Snapshot) Find(id string) (TimerItem, bool) {
	for _, t := range s.Timers {
		if t.ID == id {
			return t, true
		}
	}
	return TimerItem{}, false
}

// AnyRunning reports whether at least one timer is counting down.
func (s Snapshot) AnyRunning() bool {
	for _, t := range s.Timers {
		if t.Phase == PhaseRunning {
			return true
		}
	}
	return false
}

// remainingSeconds returns max(0, ceil((endAtMs-nowMs)/1000)).
func remainingSeconds(endAtMs, nowMs int64) int {
	diff := endAtMs - nowMs
	if diff <= 0 {
		return 0
	}
	secs := (diff + 999) / 1000
	if secs > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(secs)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }
