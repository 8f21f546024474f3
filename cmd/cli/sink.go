package main

import (
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/mix"
)

// otoSink plays float32 stereo through the system audio device. A process
// may hold only one oto context, so the sink is created once per run.
type otoSink struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	buffer int // bytes the player may read ahead
}

func newOtoSink(sampleRate int) (*otoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	// ~100ms of read-ahead keeps the transport position close to what is heard.
	return &otoSink{ctx: ctx, buffer: sampleRate / 10 * mix.BytesPerFrame}, nil
}

func (s *otoSink) Start(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Pause()
	}
	s.player = s.ctx.NewPlayer(r)
	s.player.SetBufferSize(s.buffer)
	s.player.Play()
	return s.ctx.Err()
}

func (s *otoSink) Stop() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unplayed := 0
	if s.player != nil {
		s.player.Pause()
		unplayed = s.player.BufferedSize()
		s.player = nil
	}
	return unplayed, s.ctx.Err()
}
