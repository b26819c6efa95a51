// Package alarm plays the repeating tone that sounds when a timer elapses.
// Every timer gets its own Controller; all of them share one audio output,
// which is initialised lazily on the first Prepare or Play and stays
// disabled for the rest of the process if initialisation fails.
package alarm

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"KitchenTimers/timer"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// ErrDisabled is returned by Prepare when audio is switched off in the
// configuration.
var ErrDisabled = errors.New("alarm: audio disabled")

// Output is the audio sink alarms play into.
type Output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	// Lock and Unlock guard state shared with the audio goroutine.
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}
func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }

// Speaker returns the process-wide beep speaker.
func Speaker() Output { return speakerOutput{} }

// Options configures the tone.
type Options struct {
	Enabled     bool
	FrequencyHz float64
	Volume      float64
	Period      time.Duration
	SampleRate  int
}

// DefaultOptions returns two 880 Hz beeps every 900 ms.
func DefaultOptions() Options {
	return Options{
		Enabled:     true,
		FrequencyHz: 880,
		Volume:      0.4,
		Period:      900 * time.Millisecond,
		SampleRate:  44100,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.FrequencyHz <= 0 {
		o.FrequencyHz = d.FrequencyHz
	}
	if o.Volume <= 0 || o.Volume > 1 {
		o.Volume = d.Volume
	}
	if o.Period <= 0 {
		o.Period = d.Period
	}
	if o.SampleRate <= 0 {
		o.SampleRate = d.SampleRate
	}
}

// Factory creates Controllers that share one Output.
type Factory struct {
	out  Output
	opts Options
	log  *slog.Logger

	initOnce sync.Once
	initErr  error
}

// NewFactory creates a factory. A nil out uses the speaker and a nil logger
// uses slog.Default.
func NewFactory(out Output, opts Options, logger *slog.Logger) *Factory {
	if out == nil {
		out = Speaker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	return &Factory{out: out, opts: opts, log: logger.With("component", "alarm")}
}

// NewAlarm implements timer.AlarmFactory.
func (f *Factory) NewAlarm(timerID string) timer.Alarm {
	return &Controller{f: f, timerID: timerID}
}

// ready initialises the output once. The outcome is cached.
func (f *Factory) ready() error {
	if !f.opts.Enabled {
		return ErrDisabled
	}
	f.initOnce.Do(func() {
		sr := beep.SampleRate(f.opts.SampleRate)
		f.initErr = f.out.Init(sr, sr.N(time.Second/10))
		if f.initErr != nil {
			f.log.Warn("audio disabled", "err", f.initErr)
		}
	})
	return f.initErr
}

// Controller is the alarm of a single timer. All methods are idempotent and
// safe for concurrent use.
type Controller struct {
	f       *Factory
	timerID string

	mu       sync.Mutex
	current  *fader
	disposed bool
}

// Prepare initialises the shared output.
func (c *Controller) Prepare() error {
	return c.f.ready()
}

// Play starts the repeating tone unless it is already playing.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.playingLocked() {
		return
	}
	if err := c.f.ready(); err != nil {
		return
	}
	sr := beep.SampleRate(c.f.opts.SampleRate)
	c.current = newFader(newTone(c.f.opts), sr)
	c.f.out.Play(c.current)
	c.f.log.Debug("alarm playing", "timer_id", c.timerID)
}

// Stop fades the tone out.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Dispose stops the tone and turns Play into a no-op.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.disposed = true
}

// IsPlaying reports whether the tone is sounding and not fading out.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playingLocked()
}

func (c *Controller) playingLocked() bool {
	if c.current == nil {
		return false
	}
	c.f.out.Lock()
	defer c.f.out.Unlock()
	return !c.current.fading && !c.current.done
}

func (c *Controller) stopLocked() {
	if c.current == nil {
		return
	}
	c.f.out.Lock()
	c.current.fadeOut()
	c.f.out.Unlock()
	c.current = nil
	c.f.log.Debug("alarm stopped", "timer_id", c.timerID)
}
