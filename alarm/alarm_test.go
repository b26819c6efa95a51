package alarm

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	sync.Mutex
	inits   int
	initErr error
	played  []beep.Streamer
}

func (o *fakeOutput) Init(beep.SampleRate, int) error {
	o.inits++
	return o.initErr
}

func (o *fakeOutput) Play(s beep.Streamer) {
	o.played = append(o.played, s)
}

func testOptions() Options {
	return Options{
		Enabled:     true,
		FrequencyHz: 880,
		Volume:      0.5,
		Period:      900 * time.Millisecond,
		SampleRate:  1000,
	}
}

func newTestFactory(out *fakeOutput, opts Options) *Factory {
	return NewFactory(out, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPlayIsIdempotent(t *testing.T) {
	out := &fakeOutput{}
	a := newTestFactory(out, testOptions()).NewAlarm("a")

	require.NoError(t, a.Prepare())
	a.Play()
	a.Play()

	assert.Len(t, out.played, 1)
	assert.True(t, a.IsPlaying())
	assert.Equal(t, 1, out.inits)
}

func TestStopFadesOut(t *testing.T) {
	out := &fakeOutput{}
	a := newTestFactory(out, testOptions()).NewAlarm("a")
	a.Play()
	require.Len(t, out.played, 1)
	s := out.played[0]

	a.Stop()
	a.Stop()
	assert.False(t, a.IsPlaying())

	buf := make([][2]float64, 1000)
	n, ok := s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 40, n, "40 ms fade at 1 kHz")
	for i := 1; i < n; i++ {
		assert.LessOrEqual(t, math.Abs(buf[i][0]), 0.5*float64(40-i+1)/40+1e-9)
	}

	n, ok = s.Stream(buf)
	assert.Equal(t, 0, n)
	assert.False(t, ok)

	a.Play()
	assert.Len(t, out.played, 2, "play after stop starts a new tone")
}

func TestTonePattern(t *testing.T) {
	s := newTone(testOptions())
	buf := make([][2]float64, 1800)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, len(buf), n)

	energy := func(from, to int) float64 {
		var sum float64
		for _, smp := range buf[from:to] {
			sum += math.Abs(smp[0])
		}
		return sum
	}

	for _, off := range []int{0, 900} {
		assert.Positive(t, energy(off, off+150), "first beep")
		assert.Zero(t, energy(off+150, off+250), "gap")
		assert.Positive(t, energy(off+250, off+400), "second beep")
		assert.Zero(t, energy(off+400, off+900), "rest of period")
	}
	for _, smp := range buf {
		assert.LessOrEqual(t, math.Abs(smp[0]), 0.5+1e-9)
		assert.Equal(t, smp[0], smp[1])
	}
}

func TestInitFailureIsCached(t *testing.T) {
	out := &fakeOutput{initErr: assert.AnError}
	f := newTestFactory(out, testOptions())
	a, b := f.NewAlarm("a"), f.NewAlarm("b")

	assert.ErrorIs(t, a.Prepare(), assert.AnError)
	a.Play()
	b.Play()
	assert.ErrorIs(t, b.Prepare(), assert.AnError)

	assert.Equal(t, 1, out.inits)
	assert.Empty(t, out.played)
	assert.False(t, a.IsPlaying())
}

func TestDisabled(t *testing.T) {
	out := &fakeOutput{}
	opts := testOptions()
	opts.Enabled = false
	a := newTestFactory(out, opts).NewAlarm("a")

	assert.ErrorIs(t, a.Prepare(), ErrDisabled)
	a.Play()
	assert.Zero(t, out.inits)
	assert.Empty(t, out.played)
}

func TestDispose(t *testing.T) {
	out := &fakeOutput{}
	a := newTestFactory(out, testOptions()).NewAlarm("a")
	a.Play()
	a.Dispose()
	a.Play()

	assert.Len(t, out.played, 1)
	assert.False(t, a.IsPlaying())
}

func TestOptionDefaults(t *testing.T) {
	opts := Options{Enabled: true, Volume: 3}
	opts.applyDefaults()
	d := DefaultOptions()
	assert.Equal(t, d, opts)
}
