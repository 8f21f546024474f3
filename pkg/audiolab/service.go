package audiolab

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/mix"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/waveform"
	"github.com/himanishpuri/AudioLab/pkg/logger"
	"github.com/himanishpuri/AudioLab/pkg/utils"
)

// labService is the default implementation of the Service interface.
type labService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Align.Method == "" {
		cfg.Align.Method = align.MethodDirect
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	// Create or use provided storage
	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &labService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// LoadPair decodes both sources in parallel, then reuses the stored
// alignment for the pair or estimates and stores a new one.
func (s *labService) LoadPair(ctx context.Context, srcA, srcB string) (*Pair, error) {
	var a, b *Track
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.decode(gctx, srcA)
		if err != nil {
			return fmt.Errorf("track A: %w", err)
		}
		a = t
		return nil
	})
	g.Go(func() error {
		t, err := s.decode(gctx, srcB)
		if err != nil {
			return fmt.Errorf("track B: %w", err)
		}
		b = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range []*Track{a, b} {
		buf := t.Buffer
		id, err := s.storage.RegisterTrack(t.Hash, t.Name, buf.SampleRate, buf.NumChannels(), int(buf.Duration()*1000))
		if err != nil {
			return nil, fmt.Errorf("failed to register track %s: %w", t.Name, err)
		}
		t.ID = id
	}

	opts := s.config.Align.Resolved()
	pair := &Pair{A: a, B: b}
	rec, err := s.storage.FindAlignment(a.ID, b.ID)
	switch {
	case err == nil && rec.Matches(opts):
		s.log.Debugf("Using stored alignment %s", rec.ID)
		pair.Alignment = rec.Result()
		pair.RecordID = rec.ID
		pair.Cached = true
		pair.CommonDuration = align.CommonDuration(a.Buffer.Duration(), b.Buffer.Duration(), rec.LagSec)
		return pair, nil
	case err == nil:
		s.log.Debugf("Stored alignment %s used other search settings, re-estimating", rec.ID)
	case !errors.Is(err, ErrNotFound):
		s.log.Warnf("Alignment lookup failed, re-estimating: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := align.Estimate(a.Buffer, b.Buffer, opts)
	if err != nil {
		return nil, fmt.Errorf("alignment failed: %w", err)
	}
	pair.Alignment = res
	pair.CommonDuration = align.CommonDuration(a.Buffer.Duration(), b.Buffer.Duration(), res.LagSec)

	id, err := s.storage.SaveAlignment(AlignmentRecord{
		TrackAID:          a.ID,
		TrackBID:          b.ID,
		TrackAName:        a.Name,
		TrackBName:        b.Name,
		LagSec:            res.LagSec,
		Score:             res.Score,
		EnvelopeRate:      res.EnvelopeRate,
		CommonDurationSec: pair.CommonDuration,
		Method:            opts.Method,
		TargetRate:        opts.TargetRate,
		MaxLagSec:         opts.MaxLagSec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store alignment: %w", err)
	}
	pair.RecordID = id

	s.log.Infof("Aligned %s and %s: lag %+.3fs, score %.3f", a.Name, b.Name, res.LagSec, res.Score)
	return pair, nil
}

func (s *labService) decode(ctx context.Context, src string) (*Track, error) {
	src = utils.ResolveSource(s.config.SourceBase, src)
	s.log.Debugf("Decoding %s", src)
	source, err := audio.Open(ctx, src, s.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	defer source.Cleanup()

	hash, err := utils.HashFile(source.Path)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", source.Name, err)
	}
	return &Track{Name: source.Name, Hash: hash, Buffer: source.Buffer}, nil
}

// Waveforms extracts both tracks over the synchronized region, each
// starting at its own offset.
func (s *labService) Waveforms(pair *Pair, width int) ([]waveform.Point, []waveform.Point) {
	a := waveform.Extract(pair.A.Buffer, width, pair.Alignment.OffsetA(), pair.CommonDuration)
	b := waveform.Extract(pair.B.Buffer, width, pair.Alignment.OffsetB(), pair.CommonDuration)
	return a, b
}

// WaveformPNG draws the waveform of track ("a", "b" or "both") as a PNG.
// Each track's opacity follows its share of the mix at slider; "both"
// stacks A above B.
func (s *labService) WaveformPNG(pair *Pair, track string, slider, width, height int, w io.Writer) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}
	g := mix.EqualPower(slider)
	pa, pb := s.Waveforms(pair, width)
	styleA := waveform.DefaultStyle(waveform.ColorA)
	styleA.Alpha = g.ARatio
	styleB := waveform.DefaultStyle(waveform.ColorB)
	styleB.Alpha = g.BRatio

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	switch track {
	case TrackA:
		waveform.Draw(img, pa, styleA)
	case TrackB:
		waveform.Draw(img, pb, styleB)
	case TrackBoth:
		mid := height / 2
		waveform.Draw(img.SubImage(image.Rect(0, 0, width, mid)).(*image.RGBA), pa, styleA)
		waveform.Draw(img.SubImage(image.Rect(0, mid, width, height)).(*image.RGBA), pb, styleB)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrack, track)
	}
	return png.Encode(w, img)
}

// RenderMix writes the pair mixed at slider as a 16-bit stereo WAV.
func (s *labService) RenderMix(ctx context.Context, pair *Pair, slider int, w io.WriteSeeker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g := mix.EqualPower(slider)
	s.log.Infof("Rendering mix A %d%% / B %d%%", g.APct, g.BPct)
	return mix.Render(pair.A.Buffer, pair.B.Buffer, pair.Alignment, slider, 16, w)
}

func (s *labService) GetAlignment(id string) (*AlignmentRecord, error) {
	return s.storage.GetAlignment(id)
}

func (s *labService) ListAlignments() ([]AlignmentRecord, error) {
	return s.storage.ListAlignments()
}

func (s *labService) DeleteAlignment(id string) error {
	if err := s.storage.DeleteAlignment(id); err != nil {
		return err
	}
	s.log.Infof("Deleted alignment %s", id)
	return nil
}

func (s *labService) Stats() (Stats, error) {
	tracks, alignments, err := s.storage.Counts()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Tracks: tracks, Alignments: alignments}, nil
}

func (s *labService) Close() error {
	return s.storage.Close()
}
