// Package notify delivers timer notifications on the desktop. The
// Scheduler keeps at most one pending notification per timer and hands it
// to the Sender when the deadline passes.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"KitchenTimers/timer"

	"fyne.io/fyne/v2"
)

// ErrPermissionDenied is returned by EnsurePermission when there is no way
// to show notifications.
var ErrPermissionDenied = errors.New("notify: notifications unavailable")

// FireDelay is added to every deadline. While the app runs, its ticker
// finishes the timer within one tick and cancels the notification, so the
// in-app alarm is the only alert.
const FireDelay = time.Second

// Sender shows a notification now. fyne.App implements it.
type Sender interface {
	SendNotification(n *fyne.Notification)
}

type pending struct {
	t   *time.Timer
	gen uint64
}

// Scheduler implements timer.Notifier with one time.AfterFunc per timer id.
type Scheduler struct {
	sender Sender
	clock  timer.Clock
	log    *slog.Logger
	delay  time.Duration

	mu      sync.Mutex
	pending map[string]pending
	gen     uint64
	closed  bool
}

// NewScheduler creates a scheduler. A nil sender denies permission and
// every schedule reports false.
func NewScheduler(sender Sender, clock timer.Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = timer.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sender:  sender,
		clock:   clock,
		log:     logger.With("component", "notify"),
		delay:   FireDelay,
		pending: make(map[string]pending),
	}
}

// EnsurePermission reports whether notifications can be shown.
func (s *Scheduler) EnsurePermission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.sender == nil {
		return ErrPermissionDenied
	}
	return nil
}

// ScheduleTimerNotification replaces any pending notification for
// n.TimerID. A deadline in the past fires immediately.
func (s *Scheduler) ScheduleTimerNotification(ctx context.Context, n timer.TimerNotification) (bool, error) {
	if err := s.EnsurePermission(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return false, nil
		}
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, nil
	}
	s.stopLocked(n.TimerID)

	s.gen++
	gen := s.gen
	delay := max(n.FireAt.Sub(s.clock.Now()), 0) + s.delay
	t := time.AfterFunc(delay, func() { s.fire(n, gen) })
	s.pending[n.TimerID] = pending{t: t, gen: gen}
	s.log.Debug("notification scheduled", "timer_id", n.TimerID, "in", delay)
	return true, nil
}

// CancelTimerNotification drops the pending notification for timerID.
func (s *Scheduler) CancelTimerNotification(ctx context.Context, timerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(timerID)
	return nil
}

func (s *Scheduler) isPending(timerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[timerID]
	return ok
}

// Close cancels everything pending and rejects new schedules.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.pending {
		s.stopLocked(id)
	}
	s.closed = true
}

func (s *Scheduler) stopLocked(timerID string) {
	if p, ok := s.pending[timerID]; ok {
		p.t.Stop()
		delete(s.pending, timerID)
	}
}

func (s *Scheduler) fire(n timer.TimerNotification, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[n.TimerID]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, n.TimerID)
	s.mu.Unlock()

	s.sender.SendNotification(fyne.NewNotification(n.Title, n.Body))
	s.log.Debug("notification sent", "timer_id", n.TimerID)
}
