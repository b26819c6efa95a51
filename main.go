package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"KitchenTimers/alarm"
	"KitchenTimers/config"
	"KitchenTimers/i18n"
	"KitchenTimers/notify"
	"KitchenTimers/platform"
	"KitchenTimers/storage"
	"KitchenTimers/timer"
	"KitchenTimers/ui"

	"fyne.io/fyne/v2/app"
)

const appID = "io.github.kitchentimers"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	cfgPath := config.DefaultPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Failed to load config, using defaults. %v", err)
		cfg = config.Default()
	} else if _, statErr := os.Stat(cfgPath); errors.Is(statErr, fs.ErrNotExist) {
		// First run: leave an editable file behind.
		if err := config.Save(cfgPath, cfg); err != nil {
			log.Printf("Failed to write default config. %v", err)
		}
	}
	i18n.Init(cfg.Lang)

	guard, err := platform.AcquireSingleInstance("KitchenTimers")
	if err != nil {
		log.Printf("KitchenTimers is already running. %v", err)
		os.Exit(1)
	}
	defer guard.Release()

	fyneApp := app.NewWithID(appID)
	fyneApp.Settings().SetTheme(ui.NewKitchenTheme())

	st, closeStorage := openStorage(cfg)
	defer closeStorage()

	storeCfg := timer.Config{
		Storage:         st,
		Logger:          logger,
		StorageKey:      cfg.Storage.Key,
		DefaultDuration: cfg.DefaultDuration(),
		NotifierTimeout: cfg.NotifierTimeout(),
		NameFor:         func(n int) string { return i18n.Tf("Timer %d", n) },
		NotificationText: func(t timer.TimerItem) (string, string) {
			return i18n.T("Timer finished"), i18n.Tf("%s is done", t.Name)
		},
		Alarms: alarm.NewFactory(nil, alarm.Options{
			Enabled:     cfg.Alarm.Enabled,
			FrequencyHz: cfg.Alarm.FrequencyHz,
			Volume:      cfg.Alarm.Volume,
			Period:      cfg.AlarmPeriod(),
			SampleRate:  cfg.Alarm.SampleRate,
		}, logger),
	}

	var scheduler *notify.Scheduler
	if cfg.Notifications.Enabled {
		scheduler = notify.NewScheduler(fyneApp, nil, logger)
		storeCfg.Notifier = scheduler
	}

	store := timer.NewStore(storeCfg)
	if err := store.Load(context.Background()); err != nil {
		log.Printf("Failed to restore timers, starting fresh. %v", err)
	}

	var wake *timer.WakeLockCoordinator
	if cfg.WakeLock.Enabled {
		wake = timer.NewWakeLockCoordinator(platform.NewWakeLocker("KitchenTimers"), nil, logger)
		wake.Attach(store)
	}

	a := NewAppManager(store, timer.NewTicker(store, cfg.TickInterval()), wake, logger)
	if scheduler != nil {
		a.OnShutdown(scheduler.Close)
	}
	fyneApp.Lifecycle().SetOnEnteredForeground(a.OnForeground)

	w := ui.CreateMainWindow(a, fyneApp)

	ctx, cancel := context.WithCancel(context.Background())
	w.SetOnClosed(func() {
		cancel()
	})

	go a.tick(ctx)

	w.ShowAndRun()
	cancel()
	a.Shutdown()
}

// openStorage opens the SQLite database, falling back to memory so the app
// still works for the session when the file cannot be used.
func openStorage(cfg *config.Config) (timer.Storage, func()) {
	path := cfg.Storage.Path
	if path == "" {
		path = storage.DefaultPath()
	}
	db, err := storage.NewSQLiteStore(path)
	if err != nil {
		log.Printf("Timers will not be saved: %v", err)
		return storage.NewMemory(), func() {}
	}
	if v, err := db.SchemaVersion(context.Background()); err == nil {
		slog.Debug("storage opened", "path", path, "schema_version", v)
	}
	return db, func() {
		if err := db.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			log.Printf("Failed to close database. %v", err)
		}
	}
}

func logLevel() slog.Level {
	if os.Getenv("KITCHENTIMERS_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
