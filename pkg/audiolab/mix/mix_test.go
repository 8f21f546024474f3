package mix

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

const testRate = 1000

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / testRate
	}
	return out
}

func buffer(t *testing.T, chans ...[]float64) *audio.Buffer {
	t.Helper()
	buf, err := audio.NewBuffer(testRate, chans...)
	require.NoError(t, err)
	return buf
}

// readFrames drains up to n frames from m.
func readFrames(t *testing.T, m *Mixer, n int) [][2]float32 {
	t.Helper()
	p := make([]byte, n*BytesPerFrame)
	got, err := io.ReadFull(m, p)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		require.NoError(t, err)
	}
	out := make([][2]float32, got/BytesPerFrame)
	for i := range out {
		l, r := decodeFrame(p[i*BytesPerFrame:])
		out[i] = [2]float32{l, r}
	}
	return out
}

func TestEqualPower(t *testing.T) {
	tests := []struct {
		slider     int
		a, b       float64
		aPct, bPct int
	}{
		{0, 1, 0, 100, 0},
		{100, 0, 1, 0, 100},
		{50, math.Sqrt2 / 2, math.Sqrt2 / 2, 50, 50},
		{-20, 1, 0, 100, 0},
		{250, 0, 1, 0, 100},
	}
	for _, tt := range tests {
		g := EqualPower(tt.slider)
		assert.InDelta(t, tt.a, g.A, 1e-12, "slider %d gain A", tt.slider)
		assert.InDelta(t, tt.b, g.B, 1e-12, "slider %d gain B", tt.slider)
		assert.Equal(t, tt.aPct, g.APct, "slider %d A label", tt.slider)
		assert.Equal(t, tt.bPct, g.BPct, "slider %d B label", tt.slider)
	}

	for p := 0; p <= 100; p++ {
		g := EqualPower(p)
		assert.InDelta(t, 1.0, g.A*g.A+g.B*g.B, 1e-12)
		assert.Equal(t, 100, g.APct+g.BPct)
		assert.InDelta(t, 1.0, g.ARatio+g.BRatio, 1e-12)
	}
}

func TestRampRestartsFromCurrentValue(t *testing.T) {
	r := NewRamp(0)
	r.Set(1, 4)
	for _, want := range []float64{0.25, 0.5} {
		assert.InDelta(t, want, r.Next(), 1e-12)
	}

	r.Set(0, 2)
	assert.InDelta(t, 0.25, r.Next(), 1e-12)
	assert.InDelta(t, 0.0, r.Next(), 1e-12)
	assert.True(t, r.Done())
	assert.InDelta(t, 0.0, r.Next(), 1e-12)

	r.Set(0.7, 0)
	assert.Equal(t, 0.7, r.Value())
}

func TestMixerCommonDurationAndGains(t *testing.T) {
	a := buffer(t, constant(2*testRate, 0.5))
	b := buffer(t, constant(2*testRate, 0.25))
	m, err := NewMixer(a, b, align.Result{LagSec: 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 1.5, m.CommonDuration(), 1e-12)

	m.SetMixNow(0)
	frames := readFrames(t, m, 3*testRate)
	require.Len(t, frames, 1500)
	assert.InDelta(t, 0.5, frames[0][0], 1e-6)
	assert.InDelta(t, 0.5, frames[1499][1], 1e-6)

	n, err := m.Read(make([]byte, 64))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)

	m.Seek(0)
	m.SetMixNow(100)
	frames = readFrames(t, m, 1)
	assert.InDelta(t, 0.25, frames[0][0], 1e-6)
}

func TestMixerOffsetsTracks(t *testing.T) {
	a := buffer(t, ramp(2*testRate))
	b := buffer(t, ramp(2*testRate))

	// A's material is late by 0.25s, so A is read from 0.25s in.
	m, err := NewMixer(a, b, align.Result{LagSec: -0.25})
	require.NoError(t, err)
	m.SetMixNow(0)
	frames := readFrames(t, m, 1)
	assert.InDelta(t, 0.25, frames[0][0], 1e-6)

	m.SetMixNow(100)
	m.Seek(1)
	assert.InDelta(t, 1.0, m.Position(), 1e-12)
	frames = readFrames(t, m, 1)
	assert.InDelta(t, 1.0, frames[0][0], 1e-6)
}

func TestMixerStereoAndMono(t *testing.T) {
	a := buffer(t, constant(testRate, 0.3))
	b := buffer(t, constant(testRate, 0.1), constant(testRate, -0.1))
	m, err := NewMixer(a, b, align.Result{})
	require.NoError(t, err)

	m.SetMixNow(0)
	f := readFrames(t, m, 1)[0]
	assert.InDelta(t, 0.3, f[0], 1e-6, "mono feeds left")
	assert.InDelta(t, 0.3, f[1], 1e-6, "mono feeds right")

	m.SetMixNow(100)
	f = readFrames(t, m, 1)[0]
	assert.InDelta(t, 0.1, f[0], 1e-6)
	assert.InDelta(t, -0.1, f[1], 1e-6)
}

func TestMixerRampsIn(t *testing.T) {
	a := buffer(t, constant(testRate, 1))
	b := buffer(t, constant(testRate, 1))
	m, err := NewMixer(a, b, align.Result{})
	require.NoError(t, err)

	m.SetMix(0)
	frames := readFrames(t, m, 12)
	// 10 ms at 1 kHz is ten frames.
	assert.InDelta(t, 0.1, frames[0][0], 1e-6)
	assert.InDelta(t, 1.0, frames[9][0], 1e-6)
	assert.InDelta(t, 1.0, frames[11][0], 1e-6)
}

func TestMixerResamplesB(t *testing.T) {
	a := buffer(t, constant(testRate, 0.5))
	b, err := audio.NewBuffer(2*testRate, constant(2*testRate, 0.5))
	require.NoError(t, err)

	m, err := NewMixer(a, b, align.Result{})
	require.NoError(t, err)
	assert.Equal(t, testRate, m.SampleRate())
	assert.InDelta(t, 1.0, m.CommonDuration(), 1e-9)
}

func TestNewMixerRejectsMissingTracks(t *testing.T) {
	a := buffer(t, constant(10, 0))
	_, err := NewMixer(a, nil, align.Result{})
	assert.ErrorIs(t, err, ErrNilTrack)
}

type fakeSink struct {
	starts, stops int
	failStart     error
	unplayed      int // bytes reported as read ahead on Stop
}

func (s *fakeSink) Start(io.Reader) error {
	if s.failStart != nil {
		return s.failStart
	}
	s.starts++
	return nil
}

func (s *fakeSink) Stop() (int, error) {
	s.stops++
	return s.unplayed, nil
}

func newTransport(t *testing.T, lag float64) (*Transport, *fakeSink) {
	t.Helper()
	a := buffer(t, constant(4*testRate, 0.5))
	b := buffer(t, constant(4*testRate, 0.5))
	m, err := NewMixer(a, b, align.Result{LagSec: lag})
	require.NoError(t, err)
	sink := &fakeSink{}
	return NewTransport(m, sink), sink
}

func TestTransportPlayPause(t *testing.T) {
	tr, sink := newTransport(t, 1)

	require.NoError(t, tr.Play())
	require.NoError(t, tr.Play())
	assert.Equal(t, 1, sink.starts, "second Play must be a no-op")
	assert.True(t, tr.Playing())

	_, err := io.CopyN(io.Discard, tr.Mixer(), 500*BytesPerFrame)
	require.NoError(t, err)

	require.NoError(t, tr.Pause())
	assert.False(t, tr.Playing())
	assert.Equal(t, 1, sink.stops)
	assert.InDelta(t, 0.5, tr.Position(), 1e-9)
	assert.InDelta(t, 0.5/3, tr.Progress(), 1e-9)

	require.NoError(t, tr.Toggle())
	assert.True(t, tr.Playing())
	require.NoError(t, tr.Toggle())
	assert.False(t, tr.Playing())
}

func TestTransportPauseRewindsReadAhead(t *testing.T) {
	tr, sink := newTransport(t, 0)
	require.NoError(t, tr.Play())

	// The sink pulled 1 s but only 0.9 s reached the speakers.
	_, err := io.CopyN(io.Discard, tr.Mixer(), testRate*BytesPerFrame)
	require.NoError(t, err)
	sink.unplayed = testRate / 10 * BytesPerFrame

	require.NoError(t, tr.Pause())
	assert.InDelta(t, 0.9, tr.Position(), 1e-9)

	// Repeated pause/resume cycles do not drift forward.
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.Play())
		_, err := io.CopyN(io.Discard, tr.Mixer(), testRate/10*BytesPerFrame)
		require.NoError(t, err)
		require.NoError(t, tr.Pause())
	}
	assert.InDelta(t, 0.9, tr.Position(), 1e-9)

	sink.unplayed = 10 * testRate * BytesPerFrame
	require.NoError(t, tr.Play())
	require.NoError(t, tr.Pause())
	assert.Zero(t, tr.Position(), "rewind stops at zero")
}

func TestTransportSeek(t *testing.T) {
	tr, sink := newTransport(t, 1)

	require.NoError(t, tr.Seek(100))
	assert.InDelta(t, 3.0, tr.Position(), 1e-9)
	assert.True(t, tr.Ended())
	assert.Equal(t, 1.0, tr.Progress())

	require.NoError(t, tr.Seek(-2))
	assert.Zero(t, tr.Position())
	assert.Zero(t, sink.starts, "seek while paused must not start playback")

	require.NoError(t, tr.Play())
	require.NoError(t, tr.Seek(2))
	assert.True(t, tr.Playing(), "seek resumes playback")
	assert.Equal(t, 2, sink.starts)
	assert.Equal(t, 1, sink.stops)

	require.NoError(t, tr.Restart())
	assert.Zero(t, tr.Position())
	assert.True(t, tr.Playing())
}

func TestTransportSeekWithoutCommonRegion(t *testing.T) {
	tr, _ := newTransport(t, 1.5)
	m := tr.Mixer()
	// Shrink the overlap to nothing.
	m.common = 0
	m.end = 0

	require.NoError(t, tr.Seek(10))
	assert.InDelta(t, 4.0, tr.Position(), 1e-9)
	assert.Zero(t, tr.Progress())
}

func TestTransportPlayFromEndRestarts(t *testing.T) {
	tr, _ := newTransport(t, 0)
	require.NoError(t, tr.Seek(3.99))
	assert.True(t, tr.Ended())

	require.NoError(t, tr.Play())
	assert.Zero(t, tr.Position())
	assert.True(t, tr.Playing())
}

func TestTransportStartError(t *testing.T) {
	tr, sink := newTransport(t, 0)
	sink.failStart = errors.New("device busy")
	assert.Error(t, tr.Play())
	assert.False(t, tr.Playing())
}

func TestTransportSetMixWhilePaused(t *testing.T) {
	tr, _ := newTransport(t, 0)
	g := tr.SetMix(80)
	assert.Equal(t, 20, g.APct)
	assert.Equal(t, 80, tr.Mixer().Slider())

	frames := readFrames(t, tr.Mixer(), 1)
	assert.Zero(t, frames[0][0], "paused transport stays muted")
}

func TestRender(t *testing.T) {
	a := buffer(t, constant(2*testRate, 0.5))
	b := buffer(t, constant(2*testRate, 0.25), constant(2*testRate, -0.25))

	path := filepath.Join(t.TempDir(), "mix.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Render(a, b, align.Result{LagSec: 0.5}, 100, 16, f))
	require.NoError(t, f.Close())

	out, err := audio.ReadWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumChannels())
	assert.Equal(t, 1500, out.Len())
	assert.InDelta(t, 0.25, out.Channels[0][10], 1e-3)
	assert.InDelta(t, -0.25, out.Channels[1][10], 1e-3)
}
