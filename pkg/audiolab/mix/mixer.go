package mix

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

// BytesPerFrame is the size of one interleaved stereo float32 frame.
const BytesPerFrame = 8

var ErrNilTrack = errors.New("mix: both tracks are required")

// Mixer streams the aligned pair as interleaved little-endian float32
// stereo at track A's sample rate. Reads start at common time zero and stop
// with io.EOF at the common duration. It is safe for concurrent use.
type Mixer struct {
	mu sync.Mutex

	a, b   *audio.Buffer
	lag    align.Result
	rate   int
	common float64
	end    int // common duration in output frames

	cursor     int // common-time frame
	posA, posB int // per-track frames

	slider       int
	gainA, gainB Ramp
}

// NewMixer prepares a pair for playback. Track B is resampled to A's rate
// when the rates differ. Gains start at zero; call SetMix or SetMixNow.
func NewMixer(a, b *audio.Buffer, res align.Result) (*Mixer, error) {
	if a == nil || b == nil || a.Len() == 0 || b.Len() == 0 {
		return nil, ErrNilTrack
	}
	if b.SampleRate != a.SampleRate {
		rb, err := audio.Resample(b, a.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("resampling track B: %w", err)
		}
		b = rb
	}

	common := align.CommonDuration(a.Duration(), b.Duration(), res.LagSec)
	m := &Mixer{
		a:      a,
		b:      b,
		lag:    res,
		rate:   a.SampleRate,
		common: common,
		end:    int(math.Floor(common * float64(a.SampleRate))),
		slider: 50,
		gainA:  NewRamp(0),
		gainB:  NewRamp(0),
	}
	m.seekLocked(0)
	return m, nil
}

func (m *Mixer) SampleRate() int { return m.rate }

// CommonDuration is the synchronized length in seconds.
func (m *Mixer) CommonDuration() float64 { return m.common }

// Durations returns the full lengths of both tracks in seconds.
func (m *Mixer) Durations() (float64, float64) {
	return m.a.Duration(), m.b.Duration()
}

func (m *Mixer) Lag() align.Result { return m.lag }

// Position returns the current common time in seconds.
func (m *Mixer) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.cursor) / float64(m.rate)
}

// Seek moves the read head to common time t. Each track is positioned at
// t plus its own offset, clamped to its length.
func (m *Mixer) Seek(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekLocked(t)
}

func (m *Mixer) seekLocked(t float64) {
	if t < 0 {
		t = 0
	}
	m.cursor = int(math.Round(t * float64(m.rate)))
	m.posA = trackFrame(m.a, t+m.lag.OffsetA())
	m.posB = trackFrame(m.b, t+m.lag.OffsetB())
}

// Rewind moves the read head back by frames, stopping at zero.
func (m *Mixer) Rewind(frames int) {
	if frames <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekLocked(float64(m.cursor-frames) / float64(m.rate))
}

// trackFrame clamps a start time to [0, dur-1ms] and converts it to frames.
func trackFrame(buf *audio.Buffer, sec float64) int {
	sec = clamp(sec, 0, math.Max(0, buf.Duration()-0.001))
	return buf.Frame(sec)
}

// SetMix ramps both gains to the slider position over RampDuration.
func (m *Mixer) SetMix(slider int) Gains {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setMixLocked(slider, rampFrames(m.rate))
}

// SetMixNow applies the slider position without ramping.
func (m *Mixer) SetMixNow(slider int) Gains {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setMixLocked(slider, 0)
}

func (m *Mixer) setMixLocked(slider, frames int) Gains {
	g := EqualPower(slider)
	m.slider = clampInt(slider, 0, 100)
	m.gainA.Set(g.A, frames)
	m.gainB.Set(g.B, frames)
	return g
}

// Mute drops both gains to zero immediately.
func (m *Mixer) Mute() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gainA.Set(0, 0)
	m.gainB.Set(0, 0)
}

// Slider returns the last slider position set.
func (m *Mixer) Slider() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slider
}

// Read fills p with whole frames.
func (m *Mixer) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor >= m.end {
		return 0, io.EOF
	}
	frames := len(p) / BytesPerFrame
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	if left := m.end - m.cursor; frames > left {
		frames = left
	}

	for i := 0; i < frames; i++ {
		ga, gb := m.gainA.Next(), m.gainB.Next()
		al, ar := stereoAt(m.a, m.posA+i)
		bl, br := stereoAt(m.b, m.posB+i)
		l := float32(ga*al + gb*bl)
		r := float32(ga*ar + gb*br)
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame+4:], math.Float32bits(r))
	}
	m.cursor += frames
	m.posA += frames
	m.posB += frames
	return frames * BytesPerFrame, nil
}

// stereoAt returns the L/R pair at frame i. Mono feeds both sides and frames
// past the end are silent.
func stereoAt(buf *audio.Buffer, i int) (float64, float64) {
	if i < 0 || i >= buf.Len() {
		return 0, 0
	}
	l := buf.Channels[0][i]
	if buf.NumChannels() == 1 {
		return l, l
	}
	return l, buf.Channels[1][i]
}

func decodeFrame(p []byte) (float32, float32) {
	l := math.Float32frombits(binary.LittleEndian.Uint32(p))
	r := math.Float32frombits(binary.LittleEndian.Uint32(p[4:]))
	return l, r
}
