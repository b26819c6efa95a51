// Package control defines the command messages the UI sends to the
// application command loop. The loop executes them one at a time, so timer
// operations triggered from widgets never interleave.
package control

import (
	"errors"
	"fmt"

	"KitchenTimers/timer"
)

// ErrUnknownCommand is returned for a CommandType Execute does not know.
var ErrUnknownCommand = errors.New("unknown command")

// CommandType enumerates supported command operations.
type CommandType int

const (
	CmdAdd CommandType = iota
	CmdRemove
	CmdSetActive
	CmdUpdate
	CmdStart
	CmdPause
	CmdResume
	CmdReset
	CmdStopAlarm
)

var commandNames = [...]string{
	CmdAdd:       "add",
	CmdRemove:    "remove",
	CmdSetActive: "set-active",
	CmdUpdate:    "update",
	CmdStart:     "start",
	CmdPause:     "pause",
	CmdResume:    "resume",
	CmdReset:     "reset",
	CmdStopAlarm: "stop-alarm",
}

func (t CommandType) String() string {
	if t >= 0 && int(t) < len(commandNames) {
		return commandNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", int(t))
}

// Result is sent back on Command.Reply.
type Result struct {
	// TimerID is the affected timer; for CmdAdd it is the new timer.
	TimerID string
	Err     error
}

// Command is the message sent from the UI to AppManager.commandLoop. The
// optional Reply channel receives the outcome; it should be buffered so the
// loop never blocks on a sender that stopped listening.
type Command struct {
	Type    CommandType
	TimerID string
	Patch   timer.Patch // CmdUpdate only
	Reply   chan Result
}

// Executor is the set of timer operations a command can invoke.
// *timer.Store implements it.
type Executor interface {
	AddTimer() string
	RemoveTimer(id string) error
	SetActive(id string) error
	UpdateFields(id string, p timer.Patch) error
	StartTimer(id string) error
	PauseTimer(id string) error
	ResumeTimer(id string) error
	ResetTimer(id string) error
	StopAlarmAndFinish(id string) error
}

// Execute runs cmd against ex.
func Execute(ex Executor, cmd Command) Result {
	id := cmd.TimerID
	var err error
	switch cmd.Type {
	case CmdAdd:
		id = ex.AddTimer()
	case CmdRemove:
		err = ex.RemoveTimer(id)
	case CmdSetActive:
		err = ex.SetActive(id)
	case CmdUpdate:
		err = ex.UpdateFields(id, cmd.Patch)
	case CmdStart:
		err = ex.StartTimer(id)
	case CmdPause:
		err = ex.PauseTimer(id)
	case CmdResume:
		err = ex.ResumeTimer(id)
	case CmdReset:
		err = ex.ResetTimer(id)
	case CmdStopAlarm:
		err = ex.StopAlarmAndFinish(id)
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownCommand, cmd.Type)
	}
	return Result{TimerID: id, Err: err}
}

// PrimaryFor returns the command behind a timer's main button in phase p.
func PrimaryFor(p timer.Phase) CommandType {
	switch p {
	case timer.PhaseRunning:
		return CmdPause
	case timer.PhasePaused:
		return CmdResume
	case timer.PhaseFinished:
		return CmdStopAlarm
	default:
		return CmdStart
	}
}
