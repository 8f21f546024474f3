package audiolab

import (
	"errors"
	"math"
	"time"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/mix"
)

var (
	// ErrNotFound is returned when a stored alignment does not exist.
	ErrNotFound     = errors.New("audiolab: not found")
	ErrUnknownTrack = errors.New("audiolab: track must be a, b or both")
)

// Waveform track selectors.
const (
	TrackA    = "a"
	TrackB    = "b"
	TrackBoth = "both"
)

// Track is one decoded side of a comparison.
type Track struct {
	ID     string // storage ID
	Name   string
	Hash   string // sha256 of the source bytes
	Buffer *audio.Buffer
}

// Pair is two tracks with the lag that lines them up.
type Pair struct {
	A, B           *Track
	Alignment      align.Result
	CommonDuration float64 // seconds
	RecordID       string  // stored alignment ID
	Cached         bool    // alignment came from storage
}

// Mixer returns a fresh playback mixer over the pair.
func (p *Pair) Mixer() (*mix.Mixer, error) {
	return mix.NewMixer(p.A.Buffer, p.B.Buffer, p.Alignment)
}

// AlignmentRecord is a stored alignment with its track names.
type AlignmentRecord struct {
	ID                string    `json:"id"`
	TrackAID          string    `json:"track_a_id"`
	TrackBID          string    `json:"track_b_id"`
	TrackAName        string    `json:"track_a_name"`
	TrackBName        string    `json:"track_b_name"`
	LagSec            float64   `json:"lag_sec"`
	Score             float64   `json:"score"`
	EnvelopeRate      float64   `json:"envelope_rate"`
	CommonDurationSec float64   `json:"common_duration_sec"`
	Method            string    `json:"method"`
	TargetRate        float64   `json:"target_rate"` // envelope rate requested for the search
	MaxLagSec         float64   `json:"max_lag_sec"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Result converts the record back into an alignment result.
func (r AlignmentRecord) Result() align.Result {
	lagSamples := 0
	if r.EnvelopeRate > 0 {
		lagSamples = int(math.Round(r.LagSec * r.EnvelopeRate))
	}
	return align.Result{
		LagSec:       r.LagSec,
		LagSamples:   lagSamples,
		EnvelopeRate: r.EnvelopeRate,
		Score:        r.Score,
	}
}

// Matches reports whether the record was estimated with opts.
func (r AlignmentRecord) Matches(opts align.Options) bool {
	opts = opts.Resolved()
	return r.Method == opts.Method &&
		r.TargetRate == opts.TargetRate &&
		r.MaxLagSec == opts.MaxLagSec
}

// Stats summarizes what is stored.
type Stats struct {
	Tracks     int `json:"tracks"`
	Alignments int `json:"alignments"`
}
