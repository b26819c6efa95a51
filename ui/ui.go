// Package ui renders the timer collection with fyne. Widgets hold no timer
// state of their own: they redraw from store snapshots and send every
// action to the application command loop.
package ui

import (
	"errors"
	"image/color"
	"slices"

	"KitchenTimers/control"
	"KitchenTimers/i18n"
	"KitchenTimers/timer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Layout constants.
const (
	WindowWidth  float32 = 380
	WindowHeight float32 = 520
	FontSizeTime float32 = 44
	CornerRadius float32 = 10
	BorderWidth  float32 = 3
)

// App is what the UI needs from the application.
type App interface {
	Snapshot() timer.Snapshot
	Subscribe(fn func(timer.Snapshot)) (cancel func())
	Submit(cmd control.Command) control.Result
	HandleKeyRune(r rune)
}

// TimerWidget is the card of a single timer.
type TimerWidget struct {
	app    App
	window fyne.Window
	id     string

	nameEntry     *widget.Entry
	durationEntry *widget.Entry
	timeText      *canvas.Text
	primaryButton *widget.Button
	resetButton   *widget.Button
	removeButton  *widget.Button

	colorFilterRect   *canvas.Rectangle
	borderRect        *canvas.Rectangle
	tappableContainer *TappableContainer
}

// NewTimerWidget builds the card for item.
func NewTimerWidget(a App, w fyne.Window, item timer.TimerItem) *TimerWidget {
	tw := &TimerWidget{app: a, window: w, id: item.ID}

	tw.nameEntry = widget.NewEntry()
	tw.nameEntry.SetPlaceHolder(i18n.T("Name"))
	tw.nameEntry.OnSubmitted = func(name string) {
		tw.submit(control.Command{Type: control.CmdUpdate, Patch: timer.Patch{Name: &name}})
	}

	tw.durationEntry = widget.NewEntry()
	tw.durationEntry.SetPlaceHolder("mm:ss")
	tw.durationEntry.OnSubmitted = func(text string) {
		h, m, s, err := parseDuration(text)
		if err != nil {
			tw.durationEntry.SetText(timer.FormatTime(tw.current().TotalSeconds()))
			return
		}
		tw.submit(control.Command{Type: control.CmdUpdate, Patch: timer.Patch{Hours: &h, Minutes: &m, Seconds: &s}})
	}

	tw.timeText = canvas.NewText("--:--", color.White)
	tw.timeText.TextStyle.Monospace = true
	tw.timeText.TextSize = FontSizeTime
	tw.timeText.Alignment = fyne.TextAlignCenter

	tw.primaryButton = widget.NewButton(i18n.T("Start"), func() {
		tw.submit(control.Command{Type: control.PrimaryFor(tw.current().Phase)})
	})
	tw.primaryButton.Importance = widget.HighImportance
	tw.resetButton = widget.NewButton(i18n.T("Reset"), func() {
		tw.submit(control.Command{Type: control.CmdReset})
	})
	tw.removeButton = widget.NewButton(i18n.T("Remove"), func() {
		tw.submit(control.Command{Type: control.CmdRemove})
	})
	tw.removeButton.Importance = widget.DangerImportance

	tw.colorFilterRect = canvas.NewRectangle(cardColour)
	tw.colorFilterRect.CornerRadius = CornerRadius
	tw.borderRect = canvas.NewRectangle(color.Transparent)
	tw.borderRect.CornerRadius = CornerRadius
	tw.borderRect.StrokeWidth = BorderWidth

	content := container.NewPadded(container.NewVBox(
		container.NewBorder(nil, nil, nil, tw.removeButton, tw.nameEntry),
		container.NewStack(tw.timeText, tw.durationEntry),
		container.NewGridWithColumns(2, tw.primaryButton, tw.resetButton),
	))

	tw.tappableContainer = NewTappableContainer(
		container.NewStack(tw.colorFilterRect, content, tw.borderRect),
		func() { tw.submit(control.Command{Type: control.CmdSetActive}) },
		func(*fyne.PointEvent) { tw.submit(control.Command{Type: control.CmdReset}) },
	)

	tw.Update(item, false, 1)
	return tw
}

// GetCanvasObject returns the widget's root object.
func (tw *TimerWidget) GetCanvasObject() fyne.CanvasObject {
	return tw.tappableContainer
}

func (tw *TimerWidget) current() timer.TimerItem {
	item, _ := tw.app.Snapshot().Find(tw.id)
	return item
}

// submit sends cmd for this timer and reports failures the user can act on.
func (tw *TimerWidget) submit(cmd control.Command) {
	cmd.TimerID = tw.id
	res := tw.app.Submit(cmd)
	if res.Err == nil || tw.window == nil {
		return
	}
	if errors.Is(res.Err, timer.ErrZeroDuration) || errors.Is(res.Err, timer.ErrLastTimer) {
		dialog.ShowError(res.Err, tw.window)
	}
}

// Update redraws the card from item. It must run on the fyne goroutine.
func (tw *TimerWidget) Update(item timer.TimerItem, active bool, count int) {
	if !tw.editing(tw.nameEntry) && tw.nameEntry.Text != item.Name {
		tw.nameEntry.SetText(item.Name)
	}

	idle := item.Phase == timer.PhaseIdle
	if idle {
		if !tw.editing(tw.durationEntry) {
			tw.durationEntry.SetText(timer.FormatTime(item.TotalSeconds()))
		}
		tw.durationEntry.Show()
		tw.timeText.Hide()
	} else {
		tw.durationEntry.Hide()
		tw.timeText.Text = timer.Display(item)
		if item.Phase == timer.PhaseFinished {
			tw.timeText.Text = i18n.T("Done!")
		}
		tw.timeText.Show()
		tw.timeText.Refresh()
	}

	tw.primaryButton.SetText(primaryLabel(item.Phase))
	if idle && item.TotalSeconds() == 0 {
		tw.primaryButton.Disable()
	} else {
		tw.primaryButton.Enable()
	}
	if idle {
		tw.resetButton.Disable()
	} else {
		tw.resetButton.Enable()
	}
	if count > 1 {
		tw.removeButton.Enable()
	} else {
		tw.removeButton.Disable()
	}

	tw.colorFilterRect.FillColor = withAlpha(phaseColour(item.Phase), 0x99)
	tw.colorFilterRect.Refresh()
	if active {
		tw.borderRect.StrokeColor = tomato
	} else {
		tw.borderRect.StrokeColor = color.Transparent
	}
	tw.borderRect.Refresh()
}

// editing reports whether the user is typing into e.
func (tw *TimerWidget) editing(e *widget.Entry) bool {
	if tw.window == nil {
		return false
	}
	return tw.window.Canvas().Focused() == e
}

func primaryLabel(p timer.Phase) string {
	switch control.PrimaryFor(p) {
	case control.CmdPause:
		return i18n.T("Pause")
	case control.CmdResume:
		return i18n.T("Resume")
	case control.CmdStopAlarm:
		return i18n.T("Stop alarm")
	default:
		return i18n.T("Start")
	}
}

// MainWindow lists one TimerWidget per timer, in collection order.
type MainWindow struct {
	app     App
	window  fyne.Window
	list    *fyne.Container
	widgets map[string]*TimerWidget
	order   []string
	shown   uint64
}

// CreateMainWindow builds the window and subscribes it to the store.
func CreateMainWindow(a App, fyneApp fyne.App) fyne.Window {
	title := fyneApp.Metadata().Name
	if title == "" {
		title = "KitchenTimers"
	}
	w := fyneApp.NewWindow(title)

	mw := &MainWindow{
		app:     a,
		window:  w,
		list:    container.NewVBox(),
		widgets: make(map[string]*TimerWidget),
	}

	addButton := widget.NewButton(i18n.T("Add timer"), func() {
		a.Submit(control.Command{Type: control.CmdAdd})
	})
	footer := container.New(layout.NewCenterLayout(), addButton)

	w.Canvas().SetOnTypedRune(a.HandleKeyRune)
	w.SetContent(container.NewBorder(nil, footer, nil, nil, container.NewVScroll(mw.list)))
	w.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	mw.Render(a.Snapshot())
	a.Subscribe(func(s timer.Snapshot) {
		fyne.Do(func() { mw.Render(s) })
	})
	return w
}

// Render brings the window in line with snap. Snapshots older than the one
// on screen are ignored. It must run on the fyne goroutine.
func (mw *MainWindow) Render(snap timer.Snapshot) {
	if snap.Revision < mw.shown {
		return
	}
	mw.shown = snap.Revision

	ids := make([]string, len(snap.Timers))
	for i, t := range snap.Timers {
		ids[i] = t.ID
	}

	if !slices.Equal(ids, mw.order) {
		objects := make([]fyne.CanvasObject, 0, len(ids))
		widgets := make(map[string]*TimerWidget, len(ids))
		for _, t := range snap.Timers {
			tw, ok := mw.widgets[t.ID]
			if !ok {
				tw = NewTimerWidget(mw.app, mw.window, t)
			}
			widgets[t.ID] = tw
			objects = append(objects, tw.GetCanvasObject())
		}
		mw.widgets = widgets
		mw.order = ids
		mw.list.Objects = objects
		mw.list.Refresh()
	}

	for _, t := range snap.Timers {
		mw.widgets[t.ID].Update(t, t.ID == snap.ActiveID, len(snap.Timers))
	}
}

// TappableContainer forwards primary and secondary taps to callbacks.
type TappableContainer struct {
	widget.BaseWidget
	Content           fyne.CanvasObject
	OnTappedPrimary   func()
	OnTappedSecondary func(e *fyne.PointEvent)
}

func NewTappableContainer(c fyne.CanvasObject, onP func(), onS func(e *fyne.PointEvent)) *TappableContainer {
	t := &TappableContainer{
		Content:           c,
		OnTappedPrimary:   onP,
		OnTappedSecondary: onS,
	}
	t.ExtendBaseWidget(t)
	return t
}

func (t *TappableContainer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.Content)
}

func (t *TappableContainer) Tapped(_ *fyne.PointEvent) {
	if t.OnTappedPrimary != nil {
		t.OnTappedPrimary()
	}
}

func (t *TappableContainer) TappedSecondary(e *fyne.PointEvent) {
	if t.OnTappedSecondary != nil {
		t.OnTappedSecondary(e)
	}
}

func withAlpha(c color.Color, alpha uint8) color.NRGBA {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}
