package platform

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	screenSaverDest  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

type dbusInhibitor struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func newInhibitor() (inhibitor, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	return &dbusInhibitor{conn: conn, obj: conn.Object(screenSaverDest, screenSaverPath)}, nil
}

func (d *dbusInhibitor) Inhibit(ctx context.Context, app, reason string) (uint32, error) {
	var cookie uint32
	call := d.obj.CallWithContext(ctx, screenSaverIface+".Inhibit", 0, app, reason)
	if err := call.Store(&cookie); err != nil {
		return 0, fmt.Errorf("screensaver inhibit: %w", err)
	}
	return cookie, nil
}

func (d *dbusInhibitor) UnInhibit(ctx context.Context, cookie uint32) error {
	if err := d.obj.CallWithContext(ctx, screenSaverIface+".UnInhibit", 0, cookie).Err; err != nil {
		return fmt.Errorf("screensaver uninhibit: %w", err)
	}
	return nil
}
