// Package config loads the user settings from a YAML file with Viper.
// Environment variables prefixed with KITCHENTIMERS_ override file values,
// e.g. KITCHENTIMERS_ALARM_ENABLED=false.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "KITCHENTIMERS"

// StorageConfig selects where timers are persisted.
type StorageConfig struct {
	// Path of the SQLite database. Empty selects the default location.
	Path string `mapstructure:"path" yaml:"path"`
	Key  string `mapstructure:"key" yaml:"key"`
}

// TimersConfig holds engine settings.
type TimersConfig struct {
	TickIntervalMs int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`
	DefaultMinutes int `mapstructure:"default_minutes" yaml:"default_minutes"`
	DefaultSeconds int `mapstructure:"default_seconds" yaml:"default_seconds"`
}

// AlarmConfig shapes the alarm tone.
type AlarmConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	FrequencyHz float64 `mapstructure:"frequency_hz" yaml:"frequency_hz"`
	Volume      float64 `mapstructure:"volume" yaml:"volume"`
	PeriodMs    int     `mapstructure:"period_ms" yaml:"period_ms"`
	SampleRate  int     `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// NotificationsConfig controls desktop notifications.
type NotificationsConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	TimeoutMs int  `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// WakeLockConfig controls the screen wake lock.
type WakeLockConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage"`
	Timers        TimersConfig        `mapstructure:"timers" yaml:"timers"`
	Alarm         AlarmConfig         `mapstructure:"alarm" yaml:"alarm"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	WakeLock      WakeLockConfig      `mapstructure:"wake_lock" yaml:"wake_lock"`
	// Lang forces the UI language; empty detects it from the system locale.
	Lang string `mapstructure:"lang" yaml:"lang"`
}

// DefaultPath returns $XDG_CONFIG_HOME/KitchenTimers/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(dir, "KitchenTimers", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.key", "cooking-timers:v1")
	v.SetDefault("timers.tick_interval_ms", 200)
	v.SetDefault("timers.default_minutes", 5)
	v.SetDefault("timers.default_seconds", 0)
	v.SetDefault("alarm.enabled", true)
	v.SetDefault("alarm.frequency_hz", 880.0)
	v.SetDefault("alarm.volume", 0.4)
	v.SetDefault("alarm.period_ms", 900)
	v.SetDefault("alarm.sample_rate", 44100)
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.timeout_ms", 2000)
	v.SetDefault("wake_lock.enabled", true)
	v.SetDefault("lang", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path. A missing file yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.clamp()
	return &cfg, nil
}

func (c *Config) clamp() {
	if c.Timers.TickIntervalMs <= 0 {
		c.Timers.TickIntervalMs = 200
	}
	c.Timers.DefaultMinutes = min(max(c.Timers.DefaultMinutes, 0), 59)
	c.Timers.DefaultSeconds = min(max(c.Timers.DefaultSeconds, 0), 59)
	if c.Storage.Key == "" {
		c.Storage.Key = "cooking-timers:v1"
	}
}

// Save writes cfg to path as YAML, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("timers", cfg.Timers)
	v.Set("alarm", cfg.Alarm)
	v.Set("notifications", cfg.Notifications)
	v.Set("wake_lock", cfg.WakeLock)
	v.Set("lang", cfg.Lang)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// TickInterval returns the reconciliation interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Timers.TickIntervalMs) * time.Millisecond
}

// DefaultDuration returns the duration given to new timers.
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.Timers.DefaultMinutes)*time.Minute +
		time.Duration(c.Timers.DefaultSeconds)*time.Second
}

// NotifierTimeout bounds each notification call.
func (c *Config) NotifierTimeout() time.Duration {
	return time.Duration(c.Notifications.TimeoutMs) * time.Millisecond
}

// AlarmPeriod is the length of one beep-beep cycle.
func (c *Config) AlarmPeriod() time.Duration {
	return time.Duration(c.Alarm.PeriodMs) * time.Millisecond
}
