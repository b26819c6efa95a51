package alarm

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Shape of one alarm period: beep, gap, beep, then silence until the period
// is over.
const (
	beepLength = 150 * time.Millisecond
	beepGap    = 100 * time.Millisecond
	fadeLength = 40 * time.Millisecond
)

// sine returns an endless sine wave at freq Hz.
func sine(sr beep.SampleRate, freq float64) beep.Streamer {
	var phase float64
	step := freq / float64(sr)
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := math.Sin(2 * math.Pi * phase)
			samples[i][0], samples[i][1] = v, v
			phase += step
			phase -= math.Floor(phase)
		}
		return len(samples), true
	})
}

// newTone returns the repeating two-beep pattern at the configured volume.
func newTone(opts Options) beep.Streamer {
	sr := beep.SampleRate(opts.SampleRate)
	period := sr.N(opts.Period)
	on := sr.N(beepLength)
	gap := sr.N(beepGap)
	rest := max(period-2*on-gap, 0)

	pattern := beep.Iterate(func() beep.Streamer {
		return beep.Seq(
			beep.Take(on, sine(sr, opts.FrequencyHz)),
			beep.Silence(gap),
			beep.Take(on, sine(sr, opts.FrequencyHz)),
			beep.Silence(rest),
		)
	})
	return &effects.Gain{Streamer: pattern, Gain: opts.Volume - 1}
}

// fader passes its source through until fadeOut is called, then ramps the
// gain linearly to zero and ends the stream. It is read by the audio
// goroutine, so callers hold the output lock while calling fadeOut.
type fader struct {
	src    beep.Streamer
	total  int
	left   int
	fading bool
	done   bool
}

func newFader(src beep.Streamer, sr beep.SampleRate) *fader {
	return &fader{src: src, total: max(sr.N(fadeLength), 1)}
}

func (f *fader) fadeOut() {
	if f.fading || f.done {
		return
	}
	f.fading = true
	f.left = f.total
}

func (f *fader) Stream(samples [][2]float64) (int, bool) {
	if f.done {
		return 0, false
	}
	n, ok := f.src.Stream(samples)
	if !f.fading {
		return n, ok
	}
	for i := 0; i < n; i++ {
		if f.left <= 0 {
			f.done = true
			return i, i > 0
		}
		g := float64(f.left) / float64(f.total)
		samples[i][0] *= g
		samples[i][1] *= g
		f.left--
	}
	return n, ok
}

func (f *fader) Err() error { return f.src.Err() }
