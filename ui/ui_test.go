package ui

import (
	"testing"

	"KitchenTimers/control"
	"KitchenTimers/timer"

	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockApp struct {
	mock.Mock
	snap timer.Snapshot
}

func (m *mockApp) Snapshot() timer.Snapshot { return m.snap }

func (m *mockApp) Subscribe(func(timer.Snapshot)) func() { return func() {} }

func (m *mockApp) Submit(cmd control.Command) control.Result {
	return m.Called(cmd.Type, cmd.TimerID).Get(0).(control.Result)
}

func (m *mockApp) HandleKeyRune(rune) {}

func TestTimerWidgetFollowsPhase(t *testing.T) {
	test.NewTempApp(t)
	item := timer.TimerItem{ID: "a", Name: "Eggs", Minutes: 3, Phase: timer.PhaseIdle}
	app := &mockApp{snap: timer.Snapshot{Timers: []timer.TimerItem{item}, ActiveID: "a"}}
	tw := NewTimerWidget(app, nil, item)

	assert.Equal(t, "Eggs", tw.nameEntry.Text)
	assert.Equal(t, "03:00", tw.durationEntry.Text)
	assert.True(t, tw.timeText.Hidden)
	assert.Equal(t, "Start", tw.primaryButton.Text)
	assert.True(t, tw.resetButton.Disabled())
	assert.True(t, tw.removeButton.Disabled(), "last timer cannot be removed")

	item.Phase = timer.PhaseRunning
	item.RemainingSec = 75
	tw.Update(item, true, 2)
	assert.True(t, tw.durationEntry.Hidden)
	assert.Equal(t, "01:15", tw.timeText.Text)
	assert.Equal(t, "Pause", tw.primaryButton.Text)
	assert.False(t, tw.resetButton.Disabled())
	assert.False(t, tw.removeButton.Disabled())
	assert.Equal(t, tomato, tw.borderRect.StrokeColor)

	item.Phase = timer.PhaseFinished
	item.RemainingSec = 0
	tw.Update(item, false, 2)
	assert.Equal(t, "Stop alarm", tw.primaryButton.Text)
	assert.Equal(t, "Done!", tw.timeText.Text)
}

func TestTimerWidgetSubmitsCommands(t *testing.T) {
	test.NewTempApp(t)
	item := timer.TimerItem{ID: "a", Name: "Eggs", Minutes: 3, Phase: timer.PhaseIdle}
	app := &mockApp{snap: timer.Snapshot{Timers: []timer.TimerItem{item}}}
	app.On("Submit", control.CmdStart, "a").Return(control.Result{TimerID: "a"}).Once()
	app.On("Submit", control.CmdSetActive, "a").Return(control.Result{TimerID: "a"}).Once()
	tw := NewTimerWidget(app, nil, item)

	test.Tap(tw.primaryButton)
	test.Tap(tw.tappableContainer)

	app.AssertExpectations(t)
}

func TestMainWindowRender(t *testing.T) {
	a := test.NewTempApp(t)
	first := timer.TimerItem{ID: "a", Name: "Eggs", Minutes: 3, Phase: timer.PhaseIdle}
	second := timer.TimerItem{ID: "b", Name: "Rice", Minutes: 12, Phase: timer.PhaseIdle}
	mw := &MainWindow{
		app:     &mockApp{},
		window:  a.NewWindow("timers"),
		list:    container.NewVBox(),
		widgets: make(map[string]*TimerWidget),
	}

	mw.Render(timer.Snapshot{Timers: []timer.TimerItem{first}, ActiveID: "a", Revision: 1})
	require.Len(t, mw.list.Objects, 1)
	eggs := mw.widgets["a"]

	mw.Render(timer.Snapshot{Timers: []timer.TimerItem{first, second}, ActiveID: "b", Revision: 2})
	require.Len(t, mw.list.Objects, 2)
	assert.Same(t, eggs, mw.widgets["a"], "existing cards are kept")
	assert.Equal(t, "Rice", mw.widgets["b"].nameEntry.Text)

	mw.Render(timer.Snapshot{Timers: []timer.TimerItem{second}, ActiveID: "b", Revision: 1})
	assert.Len(t, mw.list.Objects, 2, "stale snapshot ignored")

	mw.Render(timer.Snapshot{Timers: []timer.TimerItem{second}, ActiveID: "b", Revision: 3})
	assert.Len(t, mw.list.Objects, 1)
	assert.NotContains(t, mw.widgets, "a")
}
