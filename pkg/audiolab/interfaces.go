package audiolab

import (
	"context"
	"io"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/waveform"
)

type Service interface {
	LoadPair(ctx context.Context, srcA, srcB string) (*Pair, error)
	Waveforms(pair *Pair, width int) ([]waveform.Point, []waveform.Point)
	WaveformPNG(pair *Pair, track string, slider, width, height int, w io.Writer) error
	RenderMix(ctx context.Context, pair *Pair, slider int, w io.WriteSeeker) error
	GetAlignment(id string) (*AlignmentRecord, error)
	ListAlignments() ([]AlignmentRecord, error)
	DeleteAlignment(id string) error
	Stats() (Stats, error)
	Close() error
}

type Storage interface {
	RegisterTrack(hash, name string, sampleRate, channels, durationMs int) (string, error)
	SaveAlignment(rec AlignmentRecord) (string, error)
	FindAlignment(trackAID, trackBID string) (*AlignmentRecord, error)
	GetAlignment(id string) (*AlignmentRecord, error)
	ListAlignments() ([]AlignmentRecord, error)
	DeleteAlignment(id string) error
	Counts() (tracks, alignments int, err error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
