package mix

import (
	"io"
	"math"
	"sync"
)

// EndTolerance is how close to the common duration counts as ended.
const EndTolerance = 0.05

// Sink pulls mixed audio from a reader. Start begins (or resumes) pulling;
// Stop halts it and returns how many bytes it had read but not yet played.
// A stopped sink may be started again with the same reader.
type Sink interface {
	Start(r io.Reader) error
	Stop() (unplayed int, err error)
}

// Transport is the play/pause/seek state machine over a Mixer. Both tracks
// always move together, so there is a single position in common time.
type Transport struct {
	mu      sync.Mutex
	mixer   *Mixer
	sink    Sink
	playing bool
}

func NewTransport(m *Mixer, sink Sink) *Transport {
	return &Transport{mixer: m, sink: sink}
}

func (t *Transport) Mixer() *Mixer { return t.mixer }

// Playing reports whether the sink is running and the end has not been reached.
func (t *Transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing && !t.Ended()
}

// Play starts from the current position. It is a no-op while playing.
// Playing from the end starts over.
func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playLocked()
}

func (t *Transport) playLocked() error {
	if t.playing {
		return nil
	}
	if t.Ended() {
		t.mixer.Seek(0)
	}
	t.mixer.SetMix(t.mixer.Slider())
	if err := t.sink.Start(t.mixer); err != nil {
		return err
	}
	t.playing = true
	return nil
}

// Pause stops the sink and moves back to the last frame it played.
func (t *Transport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseLocked()
}

func (t *Transport) pauseLocked() error {
	if !t.playing {
		return nil
	}
	t.playing = false
	unplayed, err := t.sink.Stop()
	t.mixer.Rewind(unplayed / BytesPerFrame)
	t.mixer.Mute()
	return err
}

func (t *Transport) Toggle() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing && !t.Ended() {
		return t.pauseLocked()
	}
	t.playing = false
	return t.playLocked()
}

// Restart jumps to zero and keeps the play state.
func (t *Transport) Restart() error {
	return t.Seek(0)
}

// Seek moves to common time sec, clamped to [0, common]. When the common
// duration is empty the shorter track length bounds the seek instead.
func (t *Transport) Seek(sec float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasPlaying := t.playing
	if err := t.pauseLocked(); err != nil {
		return err
	}

	maxSeek := t.mixer.CommonDuration()
	if maxSeek <= 0 {
		durA, durB := t.mixer.Durations()
		maxSeek = math.Min(durA, durB)
	}
	t.mixer.Seek(clamp(sec, 0, maxSeek))

	if wasPlaying {
		return t.playLocked()
	}
	return nil
}

// SetMix changes the crossfade, ramping if playing.
func (t *Transport) SetMix(slider int) Gains {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return t.mixer.SetMix(slider)
	}
	// Paused: remember the slider but stay muted until Play ramps in.
	g := t.mixer.SetMixNow(slider)
	t.mixer.Mute()
	return g
}

func (t *Transport) Position() float64 {
	return t.mixer.Position()
}

// Progress is the playhead fraction in [0, 1].
func (t *Transport) Progress() float64 {
	common := t.mixer.CommonDuration()
	if common <= 0 {
		return 0
	}
	return math.Min(1, t.Position()/common)
}

func (t *Transport) Ended() bool {
	return t.Position() >= t.mixer.CommonDuration()-EndTolerance
}

// Close stops playback.
func (t *Transport) Close() error {
	return t.Pause()
}
