//go:build !js && !wasm

package audiolab

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

const testRate = 8000

func quietLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Output = io.Discard
	return logger.New(cfg)
}

// writeBursts writes a mono WAV of irregular tone bursts delayed by delaySec.
func writeBursts(t *testing.T, dir, name string, durSec, delaySec float64) string {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	x := make([]float64, int(durSec*testRate))
	burst := int(0.025 * testRate)
	for on := 0.1; on < durSec-0.1; on += 0.08 + rng.Float64()*0.25 {
		start := int((on + delaySec) * testRate)
		for i := 0; i < burst && start+i < len(x); i++ {
			x[start+i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/testRate)
		}
	}
	buf, err := audio.NewBuffer(testRate, x)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, audio.EncodeWAV(f, buf, 16))
	return path
}

func newTestService(t *testing.T, opts ...Option) (Service, string) {
	t.Helper()
	dir := t.TempDir()
	base := []Option{
		WithDBPath(filepath.Join(dir, "lab.sqlite3")),
		WithTempDir(dir),
		WithLogger(quietLogger()),
	}
	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, dir
}

func TestLoadPairAlignsAndCaches(t *testing.T) {
	svc, dir := newTestService(t)
	a := writeBursts(t, dir, "a.wav", 4, 0)
	b := writeBursts(t, dir, "b.wav", 4, 0.3)

	pair, err := svc.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	assert.False(t, pair.Cached)
	assert.InDelta(t, 0.3, pair.Alignment.LagSec, 1/pair.Alignment.EnvelopeRate)
	assert.InDelta(t, 4-pair.Alignment.LagSec, pair.CommonDuration, 1e-9)
	assert.Equal(t, "a.wav", pair.A.Name)
	assert.NotEmpty(t, pair.RecordID)

	again, err := svc.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, pair.RecordID, again.RecordID)
	assert.Equal(t, pair.Alignment.LagSec, again.Alignment.LagSec)
	assert.Equal(t, pair.Alignment.LagSamples, again.Alignment.LagSamples)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Tracks: 2, Alignments: 1}, stats)
}

func TestLoadPairMethodChangeReestimates(t *testing.T) {
	dir := t.TempDir()
	a := writeBursts(t, dir, "a.wav", 3, 0)
	b := writeBursts(t, dir, "b.wav", 3, 0.2)
	db := filepath.Join(dir, "shared.sqlite3")

	direct, err := NewService(WithDBPath(db), WithTempDir(dir), WithLogger(quietLogger()))
	require.NoError(t, err)
	first, err := direct.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	require.NoError(t, direct.Close())

	fft, err := NewService(WithDBPath(db), WithTempDir(dir), WithLogger(quietLogger()),
		WithAlignOptions(align.Options{Method: align.MethodFFT}))
	require.NoError(t, err)
	defer fft.Close()

	second, err := fft.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	assert.False(t, second.Cached, "a different method must not reuse the stored result")
	assert.Equal(t, first.RecordID, second.RecordID, "the pair keeps a single stored row")
	assert.Equal(t, first.Alignment.LagSamples, second.Alignment.LagSamples)

	rec, err := fft.GetAlignment(second.RecordID)
	require.NoError(t, err)
	assert.Equal(t, align.MethodFFT, rec.Method)
}

func TestLoadPairLagWindowChangeReestimates(t *testing.T) {
	dir := t.TempDir()
	a := writeBursts(t, dir, "a.wav", 4, 0)
	b := writeBursts(t, dir, "b.wav", 4, 1.0)
	db := filepath.Join(dir, "shared.sqlite3")

	narrow, err := NewService(WithDBPath(db), WithTempDir(dir), WithLogger(quietLogger()),
		WithAlignOptions(align.Options{MaxLagSec: 0.5}))
	require.NoError(t, err)
	first, err := narrow.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	require.NoError(t, narrow.Close())
	assert.LessOrEqual(t, math.Abs(first.Alignment.LagSec), 0.5)

	wide, err := NewService(WithDBPath(db), WithTempDir(dir), WithLogger(quietLogger()),
		WithAlignOptions(align.Options{MaxLagSec: 1.5}))
	require.NoError(t, err)
	defer wide.Close()

	second, err := wide.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	assert.False(t, second.Cached, "a wider search window must not reuse the narrow result")
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.InDelta(t, 1.0, second.Alignment.LagSec, 1/second.Alignment.EnvelopeRate)

	rec, err := wide.GetAlignment(second.RecordID)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rec.MaxLagSec)
	assert.Equal(t, align.DefaultTargetRate, rec.TargetRate)

	third, err := wide.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	assert.True(t, third.Cached)
}

func TestLoadPairErrors(t *testing.T) {
	svc, dir := newTestService(t)
	a := writeBursts(t, dir, "a.wav", 1, 0)

	_, err := svc.LoadPair(context.Background(), a, filepath.Join(dir, "missing.wav"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "track B"), "error should name the failing side: %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.LoadPair(ctx, a, a)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadPairRelativeSources(t *testing.T) {
	dir := t.TempDir()
	writeBursts(t, dir, "a.wav", 1, 0)
	writeBursts(t, dir, "b.wav", 1, 0)
	svc, _ := newTestService(t, WithSourceBase(dir))

	pair, err := svc.LoadPair(context.Background(), "a.wav", "b.wav")
	require.NoError(t, err)
	assert.Equal(t, "a.wav", pair.A.Name)
	assert.Zero(t, pair.Alignment.LagSamples)
}

func TestLoadPairRemoteSource(t *testing.T) {
	svc, dir := newTestService(t)
	a := writeBursts(t, dir, "a.wav", 2, 0)
	b := writeBursts(t, dir, "remote.wav", 2, 0.1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, b)
	}))
	t.Cleanup(func() {
		srv.Close()
		audio.HTTPClient.CloseIdleConnections()
	})

	pair, err := svc.LoadPair(context.Background(), a, srv.URL+"/remote.wav")
	require.NoError(t, err)
	assert.Equal(t, "remote.wav", pair.B.Name)
	assert.InDelta(t, 0.1, pair.Alignment.LagSec, 1/pair.Alignment.EnvelopeRate)

	entries, err := filepath.Glob(filepath.Join(dir, "fetch_*"))
	require.NoError(t, err)
	assert.Empty(t, entries, "downloaded files should be cleaned up")
}

func TestWaveformsAndRenderMix(t *testing.T) {
	svc, dir := newTestService(t)
	a := writeBursts(t, dir, "a.wav", 2, 0)
	b := writeBursts(t, dir, "b.wav", 2, 0.25)

	pair, err := svc.LoadPair(context.Background(), a, b)
	require.NoError(t, err)

	wa, wb := svc.Waveforms(pair, 100)
	assert.NotEmpty(t, wa)
	assert.NotEmpty(t, wb)
	assert.LessOrEqual(t, len(wa), 200)
	assert.Equal(t, len(wa), len(wb), "both waveforms cover the same common region")

	out := filepath.Join(dir, "mix.wav")
	f, err := os.Create(out)
	require.NoError(t, err)
	require.NoError(t, svc.RenderMix(context.Background(), pair, 50, f))
	require.NoError(t, f.Close())

	mixed, err := audio.ReadWAVFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, mixed.NumChannels())
	assert.InDelta(t, pair.CommonDuration, mixed.Duration(), 1.0/testRate)
}

func TestWaveformPNG(t *testing.T) {
	svc, dir := newTestService(t)
	a := writeBursts(t, dir, "a.wav", 1, 0)
	b := writeBursts(t, dir, "b.wav", 1, 0.1)

	pair, err := svc.LoadPair(context.Background(), a, b)
	require.NoError(t, err)

	for _, track := range []string{TrackA, TrackB, TrackBoth} {
		var out bytes.Buffer
		require.NoError(t, svc.WaveformPNG(pair, track, 30, 120, 40, &out), track)
		img, err := png.Decode(&out)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 120, 40), img.Bounds())
	}

	err = svc.WaveformPNG(pair, "c", 50, 120, 40, io.Discard)
	assert.ErrorIs(t, err, ErrUnknownTrack)
	assert.Error(t, svc.WaveformPNG(pair, TrackA, 50, 0, 40, io.Discard))
}

func TestAlignmentRecords(t *testing.T) {
	svc, dir := newTestService(t)
	// Byte-identical content under two names shares one track row.
	a := writeBursts(t, dir, "a.wav", 1, 0)
	b := writeBursts(t, dir, "b.wav", 1, 0)

	pair, err := svc.LoadPair(context.Background(), a, b)
	require.NoError(t, err)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Tracks: 1, Alignments: 1}, stats)

	list, err := svc.ListAlignments()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.wav", list[0].TrackAName)
	assert.Equal(t, "b.wav", list[0].TrackBName)

	rec, err := svc.GetAlignment(pair.RecordID)
	require.NoError(t, err)
	assert.Equal(t, pair.Alignment.LagSec, rec.LagSec)
	assert.Equal(t, "a.wav", rec.TrackAName)
	assert.Equal(t, "b.wav", rec.TrackBName)

	require.NoError(t, svc.DeleteAlignment(pair.RecordID))
	_, err = svc.GetAlignment(pair.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteAlignment(pair.RecordID), ErrNotFound)
}

// flakyStorage fails alignment lookups but otherwise keeps records in memory.
type flakyStorage struct {
	saved []AlignmentRecord
}

func (s *flakyStorage) RegisterTrack(hash, name string, sampleRate, channels, durationMs int) (string, error) {
	return "id-" + name, nil
}

func (s *flakyStorage) SaveAlignment(rec AlignmentRecord) (string, error) {
	s.saved = append(s.saved, rec)
	return "rec-1", nil
}

func (s *flakyStorage) FindAlignment(string, string) (*AlignmentRecord, error) {
	return nil, errors.New("database is locked")
}

func (s *flakyStorage) GetAlignment(string) (*AlignmentRecord, error) { return nil, ErrNotFound }
func (s *flakyStorage) ListAlignments() ([]AlignmentRecord, error)    { return s.saved, nil }
func (s *flakyStorage) DeleteAlignment(string) error                  { return ErrNotFound }
func (s *flakyStorage) Counts() (int, int, error)                     { return 0, len(s.saved), nil }
func (s *flakyStorage) Close() error                                  { return nil }

func TestLoadPairWithCustomStorage(t *testing.T) {
	store := &flakyStorage{}
	svc, dir := newTestService(t, WithStorage(store))
	a := writeBursts(t, dir, "a.wav", 1, 0)
	b := writeBursts(t, dir, "b.wav", 1, 0.1)

	pair, err := svc.LoadPair(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", pair.RecordID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "id-a.wav", store.saved[0].TrackAID)
	assert.Equal(t, align.MethodDirect, store.saved[0].Method)
	assert.Equal(t, "b.wav", store.saved[0].TrackBName)
	assert.Equal(t, align.DefaultMaxLagSec, store.saved[0].MaxLagSec)
}

func TestRecordMatches(t *testing.T) {
	rec := AlignmentRecord{Method: align.MethodDirect, TargetRate: align.DefaultTargetRate, MaxLagSec: align.DefaultMaxLagSec}
	assert.True(t, rec.Matches(align.Options{}))
	assert.True(t, rec.Matches(align.DefaultOptions()))
	assert.False(t, rec.Matches(align.Options{Method: align.MethodFFT}))
	assert.False(t, rec.Matches(align.Options{MaxLagSec: 0.5}))
	assert.False(t, rec.Matches(align.Options{TargetRate: 100}))
	assert.False(t, AlignmentRecord{Method: align.MethodDirect}.Matches(align.Options{}))
}

func TestRecordResult(t *testing.T) {
	r := AlignmentRecord{LagSec: -0.25, EnvelopeRate: 200, Score: 0.5}.Result()
	assert.Equal(t, -50, r.LagSamples)
	assert.Equal(t, 0.25, r.OffsetA())
}
