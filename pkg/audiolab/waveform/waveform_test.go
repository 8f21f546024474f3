package waveform

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

func mustBuffer(t *testing.T, rate int, chans ...[]float64) *audio.Buffer {
	t.Helper()
	buf, err := audio.NewBuffer(rate, chans...)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	return buf
}

func TestExtractColumns(t *testing.T) {
	buf := mustBuffer(t, 10, []float64{0.5, -0.5, 1, 0, 0, 0, -1, 0.25, 0, 9})

	got := Extract(buf, 3, 0, 0)
	want := []Point{
		{Min: -0.5, Max: 1, RMS: math.Sqrt(2.0 / 3)},
		{Min: 0, Max: 0, RMS: 0},
		{Min: -1, Max: 0.25, RMS: math.Sqrt(1.25 / 3)},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDownmixesStereo(t *testing.T) {
	buf := mustBuffer(t, 4, []float64{1, 1, 1, 1}, []float64{0, 0, 0, 0})
	got := Extract(buf, 2, 0, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[0].Min != 0.5 || got[0].Max != 0.5 {
		t.Errorf("stereo column = %+v, want min=max=0.5", got[0])
	}
}

func TestExtractWindow(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = float64(i) / 100
	}
	buf := mustBuffer(t, 100, x)

	got := Extract(buf, 10, 0.5, 0.2)
	if len(got) != 10 {
		t.Fatalf("expected 10 points over 20 samples, got %d", len(got))
	}
	if got[0].Min != 0.5 || got[9].Max != 0.69 {
		t.Errorf("window bounds = [%v, %v], want [0.5, 0.69]", got[0].Min, got[9].Max)
	}
}

func TestExtractEdgeCases(t *testing.T) {
	buf := mustBuffer(t, 10, []float64{0.1, 0.2, 0.3})
	if got := Extract(buf, 800, 0, 0); len(got) != 3 {
		t.Errorf("narrow input should give one point per sample, got %d", len(got))
	}
	if got := Extract(buf, 10, 5, 0); got != nil {
		t.Errorf("start past end should give nil, got %v", got)
	}
	if got := Extract(nil, 10, 0, 0); got != nil {
		t.Errorf("nil buffer should give nil, got %v", got)
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#FF2600")
	if err != nil {
		t.Fatalf("ParseHexColor failed: %v", err)
	}
	if want := (color.RGBA{0xff, 0x26, 0x00, 0xff}); c != want {
		t.Errorf("got %v, want %v", c, want)
	}
	if c, _ := ParseHexColor("659bc8"); c != (color.RGBA{0x65, 0x9b, 0xc8, 0xff}) {
		t.Errorf("lowercase without # parsed as %v", c)
	}
	for _, bad := range []string{"", "#12345", "#GGGGGG", "#1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Errorf("ParseHexColor(%q) should fail", bad)
		}
	}
}

func TestDrawBars(t *testing.T) {
	fg := color.RGBA{200, 0, 0, 255}
	bg := color.RGBA{0, 0, 0, 255}
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	// One full-scale column: 8.5px wide, 9px tall, centred.
	Draw(img, []Point{{Min: -1, Max: 1}}, Style{Color: fg, Background: bg, Alpha: 1})

	if got := img.RGBAAt(2, 5); got != fg {
		t.Errorf("bar interior = %v, want %v", got, fg)
	}
	if got := img.RGBAAt(9, 5); got != bg {
		t.Errorf("right of bar = %v, want background", got)
	}
	if got := img.RGBAAt(8, 5); got.R != 100 {
		t.Errorf("half-covered edge R = %d, want 100", got.R)
	}
	if got := img.RGBAAt(2, 0); got.R != 100 {
		t.Errorf("half-covered top R = %d, want 100", got.R)
	}
}

func TestDrawAlphaAndEmpty(t *testing.T) {
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 0, 255}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	Draw(img, []Point{{Min: -1, Max: 1}}, Style{Color: fg, Background: bg, Alpha: 0.5})
	if got := img.RGBAAt(1, 2); got.R != 128 {
		t.Errorf("half alpha R = %d, want 128", got.R)
	}

	Draw(img, nil, Style{Color: fg, Background: bg, Alpha: 1})
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if img.RGBAAt(x, y) != bg {
				t.Fatalf("empty waveform left (%d,%d) = %v", x, y, img.RGBAAt(x, y))
			}
		}
	}
}

func TestDrawMinimumBar(t *testing.T) {
	bg := color.RGBA{0, 0, 0, 255}
	img := image.NewRGBA(image.Rect(0, 0, 2, 4))
	Draw(img, []Point{{}}, Style{Color: color.RGBA{255, 0, 0, 255}, Background: bg, Alpha: 1})

	// Silence still draws a half-pixel tall line at the centre.
	if got := img.RGBAAt(0, 1); got.R == 0 {
		t.Error("expected a sliver above centre for silent column")
	}
}

func TestRenderPNG(t *testing.T) {
	var out bytes.Buffer
	points := []Point{{Min: -0.5, Max: 0.5}, {Min: -0.2, Max: 0.1}}
	if err := RenderPNG(&out, points, 40, 20, DefaultStyle(ColorA)); err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}
	img, err := png.Decode(&out)
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("image size = %v", b)
	}
	if err := RenderPNG(&out, points, 0, 20, DefaultStyle(ColorA)); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestSeekFraction(t *testing.T) {
	tests := []struct {
		x, width, want float64
	}{
		{-5, 100, 0},
		{50, 100, 0.5},
		{150, 100, 1},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := SeekFraction(tt.x, tt.width); got != tt.want {
			t.Errorf("SeekFraction(%v, %v) = %v, want %v", tt.x, tt.width, got, tt.want)
		}
	}
	if got := SeekTime(25, 100, 8); got != 2 {
		t.Errorf("SeekTime = %v, want 2", got)
	}
}

func TestSpectrogram(t *testing.T) {
	x := make([]float64, 8000)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 8000)
	}
	buf := mustBuffer(t, 8000, x)

	img, err := Spectrogram(buf, 256, 128)
	if err != nil {
		t.Fatalf("Spectrogram failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 128 {
		t.Errorf("spectrogram size = %v", b)
	}

	path := filepath.Join(t.TempDir(), "spectrogram.png")
	if err := SaveSpectrogram(buf, path, 256, 128); err != nil {
		t.Fatalf("SaveSpectrogram failed: %v", err)
	}

	if _, err := Spectrogram(nil, 10, 10); err == nil {
		t.Error("expected error for nil buffer")
	}
	if _, err := Spectrogram(buf, 0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}
