package spatial

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

// MaxFiles is how many stereo files the scene accepts; each splits into
// a left and a right source.
const MaxFiles = 2

var ErrTooManyFiles = fmt.Errorf("spatial: at most %d files", MaxFiles)

// Layout places the sources of each file on the sphere. Positions are
// indexed by track slot: file*2 for the left (or mono) channel and
// file*2+1 for the right.
type Layout struct {
	Positions []string
	Split     bool // treat stereo files as two sources
}

// Tracks builds the sources for files under layout. A mono file, or any
// file when Split is false, yields only its left slot.
func Tracks(files []*audio.Buffer, layout Layout) ([]*Source, error) {
	if len(files) > MaxFiles {
		return nil, ErrTooManyFiles
	}
	var out []*Source
	for fi, buf := range files {
		if buf == nil {
			return nil, fmt.Errorf("spatial: file %d is nil", fi)
		}
		channels := 1
		if layout.Split && buf.NumChannels() >= 2 {
			channels = 2
		}
		for ch := 0; ch < channels; ch++ {
			slot := fi*2 + ch
			if slot >= len(layout.Positions) {
				return nil, fmt.Errorf("spatial: no position for track %d", slot)
			}
			pos, err := ParseAzEl(layout.Positions[slot])
			if err != nil {
				return nil, err
			}
			out = append(out, &Source{
				Name:     fmt.Sprintf("file%d/%s", fi, channelName(ch, channels)),
				Position: pos,
				File:     fi,
				Channel:  ch,
			})
		}
	}
	return out, nil
}

func channelName(ch, channels int) string {
	switch {
	case channels == 1:
		return "mono"
	case ch == 0:
		return "left"
	default:
		return "right"
	}
}

// Timeline holds per-frame source strengths computed offline.
type Timeline struct {
	FPS     float64
	Sources []*Source
	// Strengths[frame][source]
	Strengths [][]float64
}

// Frames returns the number of frames.
func (t *Timeline) Frames() int { return len(t.Strengths) }

// At returns copies of the sources carrying their strengths at time sec.
func (t *Timeline) At(sec float64) []*Source {
	out := make([]*Source, len(t.Sources))
	if len(t.Strengths) == 0 {
		for i, s := range t.Sources {
			c := *s
			out[i] = &c
		}
		return out
	}
	f := int(math.Floor(sec * t.FPS))
	f = max(0, min(f, len(t.Strengths)-1))
	for i, s := range t.Sources {
		c := *s
		c.Strength = t.Strengths[f][i]
		out[i] = &c
	}
	return out
}

// ComputeTimeline plays every file from zero in lockstep and records each
// source's strength fps times per second. A source keeps decaying after its
// file ends, up to the end of the longest file. Sources are analysed
// concurrently.
func ComputeTimeline(ctx context.Context, files []*audio.Buffer, layout Layout, fps float64) (*Timeline, error) {
	if fps <= 0 {
		return nil, errors.New("spatial: fps must be positive")
	}
	sources, err := Tracks(files, layout)
	if err != nil {
		return nil, err
	}

	var longest float64
	for _, buf := range files {
		longest = math.Max(longest, buf.Duration())
	}
	frames := int(math.Ceil(longest * fps))

	tl := &Timeline{FPS: fps, Sources: sources, Strengths: make([][]float64, frames)}
	for i := range tl.Strengths {
		tl.Strengths[i] = make([]float64, len(sources))
	}

	g, ctx := errgroup.WithContext(ctx)
	for si, src := range sources {
		si := si
		buf := files[src.File]
		signal := buf.Mono()
		if layout.Split && buf.NumChannels() >= 2 {
			signal = buf.Channel(src.Channel)
		}
		g.Go(func() error {
			return trackStrengths(ctx, signal, buf.SampleRate, fps, tl.Strengths, si)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tl, nil
}

func trackStrengths(ctx context.Context, signal []float64, rate int, fps float64, out [][]float64, col int) error {
	an := NewAnalyser()
	var src Source
	prev := 0
	for f := range out {
		if f%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		end := int(math.Floor(float64(f+1) / fps * float64(rate)))
		playing := prev < len(signal)
		if playing {
			an.Write(signal[prev:min(end, len(signal))])
			src.Update(an.Level(), true)
		} else {
			src.Update(0, false)
		}
		prev = end
		out[f][col] = src.Strength
	}
	return nil
}
