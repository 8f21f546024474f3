package spatial

import (
	"image"
	"image/color"
	"math"
)

const (
	DefaultSigma    = 0.5
	DefaultSegments = 64
	DefaultMinAlpha = 0.01

	// maxBulge is the radius gain of a full-strength source at its centre.
	maxBulge = 0.2
)

// Default per-file colours.
const (
	Track1Color   uint32 = 0xb9cce2
	Track2Color   uint32 = 0xff6b9d
	FallbackColor uint32 = 0xff6b9d
)

// Vertex is a point of the unit sphere grid.
type Vertex struct {
	X, Y, Z float64
	Dir     Spherical
}

// Sphere is an equiangular grid of (Segments+1)^2 vertices, rows running
// from the +y pole to the -y pole.
type Sphere struct {
	Segments int
	Vertices []Vertex
}

func NewSphere(segments int) *Sphere {
	if segments < 2 {
		segments = DefaultSegments
	}
	s := &Sphere{Segments: segments}
	for iy := 0; iy <= segments; iy++ {
		v := float64(iy) / float64(segments)
		for ix := 0; ix <= segments; ix++ {
			u := float64(ix) / float64(segments)
			x := -math.Cos(u*2*math.Pi) * math.Sin(v*math.Pi)
			y := math.Cos(v * math.Pi)
			z := math.Sin(u*2*math.Pi) * math.Sin(v*math.Pi)

			theta := math.Acos(math.Max(-1, math.Min(1, y)))
			phi := math.Atan2(z, x)
			if phi < 0 {
				phi += 2 * math.Pi
			}
			s.Vertices = append(s.Vertices, Vertex{X: x, Y: y, Z: z, Dir: Spherical{Theta: theta, Phi: phi}})
		}
	}
	return s
}

type FieldOptions struct {
	Sigma      float64
	MinAlpha   float64
	FileColors []uint32
	Fallback   uint32
}

func DefaultFieldOptions() FieldOptions {
	return FieldOptions{
		Sigma:      DefaultSigma,
		MinAlpha:   DefaultMinAlpha,
		FileColors: []uint32{Track1Color, Track2Color},
		Fallback:   FallbackColor,
	}
}

// VertexState is the deformed state of one vertex.
type VertexState struct {
	Scale  float64 // radius multiplier, 1 + total contribution
	Height float64 // contribution normalized by the frame maximum
	Alpha  float64
	Color  uint32
}

// Field evaluates source bulges over a sphere.
type Field struct {
	Sphere *Sphere
	Opts   FieldOptions
	States []VertexState

	contrib [][]float64
}

func NewField(sphere *Sphere, opts FieldOptions) *Field {
	if opts.Sigma <= 0 {
		opts.Sigma = DefaultSigma
	}
	return &Field{
		Sphere: sphere,
		Opts:   opts,
		States: make([]VertexState, len(sphere.Vertices)),
	}
}

// Compute deforms every vertex for the given sources and returns the
// largest total contribution. Sources at or below the activity floor are
// ignored.
func (f *Field) Compute(sources []*Source) float64 {
	n := len(f.Sphere.Vertices)
	if cap(f.contrib) < n {
		f.contrib = make([][]float64, n)
	}
	f.contrib = f.contrib[:n]

	totals := make([]float64, n)
	var maxTotal float64
	for i, v := range f.Sphere.Vertices {
		row := f.contrib[i][:0]
		var total float64
		for _, src := range sources {
			c := 0.0
			if src.Active() {
				d := AngularDistance(v.Dir, src.Position)
				c = Gaussian(d, f.Opts.Sigma) * src.Strength * maxBulge
			}
			row = append(row, c)
			total += c
		}
		f.contrib[i] = row
		totals[i] = total
		maxTotal = math.Max(maxTotal, total)
	}

	for i, total := range totals {
		h := 0.0
		if maxTotal > 0 {
			h = total / maxTotal
		}
		f.States[i] = VertexState{
			Scale:  1 + total,
			Height: h,
			Alpha:  f.Opts.MinAlpha + (1-f.Opts.MinAlpha)*math.Sqrt(h),
			Color:  f.mixColor(sources, f.contrib[i], total),
		}
	}
	return maxTotal
}

// mixColor blends the file colours of contributing sources, weighted by
// their share of the vertex's total.
func (f *Field) mixColor(sources []*Source, contrib []float64, total float64) uint32 {
	if total <= 0 {
		return f.Opts.Fallback
	}
	var r, g, b, wsum float64
	for i, c := range contrib {
		if c <= 0 {
			continue
		}
		col := f.fileColor(sources[i].File)
		w := c / total
		r += float64((col>>16)&0xff) * w
		g += float64((col>>8)&0xff) * w
		b += float64(col&0xff) * w
		wsum += w
	}
	if wsum <= 0 {
		return f.Opts.Fallback
	}
	ri := uint32(math.Round(r / wsum))
	gi := uint32(math.Round(g / wsum))
	bi := uint32(math.Round(b / wsum))
	return ri<<16 | gi<<8 | bi
}

func (f *Field) fileColor(file int) uint32 {
	if file >= 0 && file < len(f.Opts.FileColors) {
		return f.Opts.FileColors[file]
	}
	return f.Opts.Fallback
}

// Position returns vertex i scaled by its current deformation.
func (f *Field) Position(i int) (x, y, z float64) {
	v := f.Sphere.Vertices[i]
	s := f.States[i].Scale
	return v.X * s, v.Y * s, v.Z * s
}

// Image lays the grid out as an equirectangular map, one pixel per vertex:
// columns follow azimuth and rows run pole to pole. Pixel alpha is the
// vertex alpha.
func (f *Field) Image() *image.NRGBA {
	side := f.Sphere.Segments + 1
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	for i, st := range f.States {
		img.SetNRGBA(i%side, i/side, color.NRGBA{
			R: uint8(st.Color >> 16),
			G: uint8(st.Color >> 8),
			B: uint8(st.Color),
			A: uint8(math.Round(255 * math.Max(0, math.Min(1, st.Alpha)))),
		})
	}
	return img
}
