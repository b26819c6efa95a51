// Package main contains the application wiring and the AppManager which
// connects the timer store, the reconciliation ticker, the wake lock and
// the UI.
//
// Maintenance notes / tips:
//   - Concurrency model: UI actions are posted as control.Command values to
//     a single command-loop goroutine (see `commandLoop`) which executes
//     them against the store one at a time. The ticker runs in its own
//     goroutine (`tick`); the store serialises it against commands with its
//     own mutex, so neither goroutine needs to know about the other.
//   - `cmdCh` is buffered. EnqueueCommand drops a command when the buffer
//     stays full for longer than enqueueTimeout so the UI never blocks.
//     Submit waits for the reply for at most replyTimeout.
//   - Widgets never mutate timer state directly; they render snapshots
//     delivered by Store.Subscribe.
package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"KitchenTimers/control"
	"KitchenTimers/timer"
)

const (
	commandBuffer  = 256
	enqueueTimeout = 150 * time.Millisecond
	replyTimeout   = 200 * time.Millisecond
)

// AppManager is the main application struct, holding all state.
type AppManager struct {
	store  *timer.Store
	ticker *timer.Ticker
	wake   *timer.WakeLockCoordinator // nil when disabled
	log    *slog.Logger

	cmdCh     chan control.Command
	cmdCtx    context.Context
	cmdCancel context.CancelFunc
	loopDone  chan struct{}

	shutdownOnce sync.Once
	onShutdown   []func()
}

// NewAppManager creates a new application manager and starts its command
// loop. wake may be nil.
func NewAppManager(store *timer.Store, ticker *timer.Ticker, wake *timer.WakeLockCoordinator, logger *slog.Logger) *AppManager {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AppManager{
		store:    store,
		ticker:   ticker,
		wake:     wake,
		log:      logger.With("component", "app"),
		cmdCh:    make(chan control.Command, commandBuffer),
		loopDone: make(chan struct{}),
	}
	a.cmdCtx, a.cmdCancel = context.WithCancel(context.Background())
	go a.commandLoop()
	return a
}

// EnqueueCommand posts a command to the internal command loop.
func (a *AppManager) EnqueueCommand(cmd control.Command) {
	select {
	case a.cmdCh <- cmd:
	case <-a.cmdCtx.Done():
		reply(cmd, control.Result{TimerID: cmd.TimerID, Err: context.Canceled})
	case <-time.After(enqueueTimeout):
		a.log.Warn("command queue full, dropping command", "cmd", cmd.Type, "timer_id", cmd.TimerID)
	}
}

// Submit enqueues cmd and waits briefly for its result. A timeout yields
// context.DeadlineExceeded; the command may still run afterwards.
func (a *AppManager) Submit(cmd control.Command) control.Result {
	cmd.Reply = make(chan control.Result, 1)
	a.EnqueueCommand(cmd)
	select {
	case res := <-cmd.Reply:
		return res
	case <-time.After(replyTimeout):
		return control.Result{TimerID: cmd.TimerID, Err: context.DeadlineExceeded}
	}
}

func (a *AppManager) commandLoop() {
	defer close(a.loopDone)
	for {
		select {
		case <-a.cmdCtx.Done():
			return
		case cmd := <-a.cmdCh:
			res := control.Execute(a.store, cmd)
			if res.Err != nil {
				a.log.Info("command rejected", "cmd", cmd.Type, "timer_id", res.TimerID, "err", res.Err)
			}
			reply(cmd, res)
		}
	}
}

func reply(cmd control.Command, res control.Result) {
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- res:
	default:
	}
}

// Snapshot returns the current timer collection.
func (a *AppManager) Snapshot() timer.Snapshot {
	return a.store.Snapshot()
}

// Subscribe registers fn for every published snapshot.
func (a *AppManager) Subscribe(fn func(timer.Snapshot)) (cancel func()) {
	return a.store.Subscribe(fn)
}

// HandleKeyRune handles key presses for the application. Keys act on the
// active timer.
func (a *AppManager) HandleKeyRune(r rune) {
	snap := a.store.Snapshot()
	active, ok := snap.Find(snap.ActiveID)

	switch r {
	case ' ':
		if ok {
			a.EnqueueCommand(control.Command{Type: control.PrimaryFor(active.Phase), TimerID: active.ID})
		}
	case 'r', 'R':
		if ok {
			a.EnqueueCommand(control.Command{Type: control.CmdReset, TimerID: active.ID})
		}
	case 'n', 'N', '+':
		a.EnqueueCommand(control.Command{Type: control.CmdAdd})
	case 'j', 'J', 'k', 'K':
		a.moveActive(snap, r == 'j' || r == 'J')
	}
}

func (a *AppManager) moveActive(snap timer.Snapshot, down bool) {
	for i, t := range snap.Timers {
		if t.ID != snap.ActiveID {
			continue
		}
		next := i - 1
		if down {
			next = i + 1
		}
		if next >= 0 && next < len(snap.Timers) {
			a.EnqueueCommand(control.Command{Type: control.CmdSetActive, TimerID: snap.Timers[next].ID})
		}
		return
	}
}

// OnForeground is called when the window becomes visible again: countdowns
// are refreshed at once and the wake lock is re-requested.
func (a *AppManager) OnForeground() {
	a.ticker.Step()
	if a.wake != nil {
		a.wake.OnVisible()
	}
}

// OnShutdown registers fn to run during Shutdown, after the store closed.
func (a *AppManager) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *AppManager) tick(ctx context.Context) {
	a.log.Debug("ticker started", "interval", a.ticker.Interval())
	a.ticker.Run(ctx)
}

// Shutdown stops the command loop, releases the wake lock and closes the
// store. It is safe to call more than once.
func (a *AppManager) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.cmdCancel()
		<-a.loopDone
		if a.wake != nil {
			a.wake.Close()
		}
		a.store.Close()
		for i := len(a.onShutdown) - 1; i >= 0; i-- {
			a.onShutdown[i]()
		}
	})
}
