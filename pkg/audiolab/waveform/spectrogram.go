package waveform

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
)

// Spectrogram draws a linear-magnitude FFT spectrogram of buf's mono
// downmix on a black background, height frequency bins tall.
func Spectrogram(buf *audio.Buffer, width, height int) (image.Image, error) {
	if err := checkSpectrogram(buf, width, height); err != nil {
		return nil, err
	}
	return drawSpectrogram(buf, width, height), nil
}

// WriteSpectrogramPNG renders a spectrogram and encodes it to w.
func WriteSpectrogramPNG(w io.Writer, buf *audio.Buffer, width, height int) error {
	img, err := Spectrogram(buf, width, height)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// SaveSpectrogram renders a spectrogram to a PNG file at path.
func SaveSpectrogram(buf *audio.Buffer, path string, width, height int) error {
	if err := checkSpectrogram(buf, width, height); err != nil {
		return err
	}
	if err := spectrogram.SavePng(drawSpectrogram(buf, width, height), path); err != nil {
		return fmt.Errorf("saving spectrogram: %w", err)
	}
	return nil
}

func checkSpectrogram(buf *audio.Buffer, width, height int) error {
	if buf == nil || buf.Len() == 0 {
		return audio.ErrNoSamples
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("waveform: invalid image size %dx%d", width, height)
	}
	return nil
}

func drawSpectrogram(buf *audio.Buffer, width, height int) *spectrogram.Image128 {
	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	clearBlack(img)
	// Hamming window, FFT, magnitude, linear scale.
	spectrogram.Drawfft(img, buf.Mono(), uint32(buf.SampleRate), uint32(height), false, false, true, false)
	return img
}

func clearBlack(img draw.Image) {
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)
}
