package waveform

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrBadColor = errors.New("waveform: color must be #RRGGBB")

// Style controls how Draw paints a waveform.
type Style struct {
	Color      color.RGBA
	Background color.RGBA
	Alpha      float64 // bar opacity in [0, 1]
}

var (
	ColorA     = MustParseHexColor("#FF2600")
	ColorB     = MustParseHexColor("#659BC8")
	Background = MustParseHexColor("#f5f5f5")
)

// DefaultStyle paints opaque bars in c on the default background.
func DefaultStyle(c color.RGBA) Style {
	return Style{Color: c, Background: Background, Alpha: 1}
}

// ParseHexColor parses "#RRGGBB" (the leading # is optional).
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func MustParseHexColor(s string) color.RGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Draw fills img with the background and paints one centred bar per point.
// Bars are 85% of the column pitch wide and alpha-blended over the
// background, with fractional edges blended by coverage.
func Draw(img draw.Image, points []Point, style Style) {
	bounds := img.Bounds()
	draw.Draw(img, bounds, image.NewUniform(style.Background), image.Point{}, draw.Src)
	if len(points) == 0 {
		return
	}

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	centerY := h / 2
	step := w / float64(len(points))
	barWidth := math.Max(0.5, step*0.85)
	alpha := math.Max(0, math.Min(1, style.Alpha))

	for i, p := range points {
		mag := math.Max(math.Max(math.Abs(p.Min), math.Abs(p.Max)), p.RMS*1.5)
		barHeight := math.Max(0.5, mag*h*0.9)
		x0 := float64(i) * step
		y0 := centerY - barHeight/2
		fillRect(img, bounds, x0, y0, x0+barWidth, y0+barHeight, style.Color, alpha)
	}
}

// fillRect blends c over the pixels covered by the float rectangle, in
// coordinates relative to bounds.Min.
func fillRect(img draw.Image, bounds image.Rectangle, x0, y0, x1, y1 float64, c color.RGBA, alpha float64) {
	px0 := int(math.Max(0, math.Floor(x0)))
	px1 := int(math.Min(float64(bounds.Dx()), math.Ceil(x1)))
	py0 := int(math.Max(0, math.Floor(y0)))
	py1 := int(math.Min(float64(bounds.Dy()), math.Ceil(y1)))

	for py := py0; py < py1; py++ {
		cy := coverage(float64(py), y0, y1)
		for px := px0; px < px1; px++ {
			a := alpha * cy * coverage(float64(px), x0, x1)
			if a <= 0 {
				continue
			}
			x, y := bounds.Min.X+px, bounds.Min.Y+py
			img.Set(x, y, blend(img.At(x, y), c, a))
		}
	}
}

// coverage is how much of the unit pixel [p, p+1) lies inside [lo, hi).
func coverage(p, lo, hi float64) float64 {
	return math.Max(0, math.Min(p+1, hi)-math.Max(p, lo))
}

func blend(dst color.Color, src color.RGBA, a float64) color.RGBA {
	dr, dg, db, da := dst.RGBA()
	mix := func(s uint8, d uint32) uint8 {
		return uint8(math.Round(float64(s)*a + float64(d>>8)*(1-a)))
	}
	return color.RGBA{
		R: mix(src.R, dr),
		G: mix(src.G, dg),
		B: mix(src.B, db),
		A: uint8(math.Round(255*a + float64(da>>8)*(1-a))),
	}
}

// Image renders points to a new RGBA image.
func Image(points []Point, width, height int, style Style) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	Draw(img, points, style)
	return img
}

// RenderPNG renders points and encodes the result as PNG.
func RenderPNG(w io.Writer, points []Point, width, height int, style Style) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("waveform: invalid image size %dx%d", width, height)
	}
	return png.Encode(w, Image(points, width, height, style))
}
