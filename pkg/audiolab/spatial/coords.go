// Package spatial models the ambisonic bulge field: sound sources placed on
// a unit sphere push its surface outward by a Gaussian of angular distance,
// scaled by how loud each source currently is.
package spatial

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var ErrBadPosition = errors.New("spatial: position must look like (az, el)")

// Spherical is a direction on the sphere. Theta is the polar angle from the
// +y pole and Phi the azimuth in the xz plane, both in radians.
type Spherical struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// AzElToSpherical converts degrees to sphere coordinates. Tracks use
// theta = pi/2 - el (positive elevation is above the horizon) and phi = az.
// The camera instead uses theta = az and phi = pi/2 + el, with phi kept
// 0.1 rad away from the poles.
func AzElToSpherical(azDeg, elDeg float64, forCamera bool) Spherical {
	az := math.Mod(azDeg*math.Pi/180, 2*math.Pi)
	if az < 0 {
		az += 2 * math.Pi
	}
	el := elDeg * math.Pi / 180

	if forCamera {
		phi := math.Max(0.1, math.Min(math.Pi-0.1, math.Pi/2+el))
		return Spherical{Theta: az, Phi: phi}
	}
	return Spherical{Theta: math.Pi/2 - el, Phi: az}
}

var azElPattern = regexp.MustCompile(`\((-?\d+\.?\d*),\s*(-?\d+\.?\d*)\)`)

// ParseAzEl parses a track position such as "(-135.0, 10.0)".
func ParseAzEl(s string) (Spherical, error) {
	m := azElPattern.FindStringSubmatch(s)
	if m == nil {
		return Spherical{}, fmt.Errorf("%w: %q", ErrBadPosition, s)
	}
	az, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Spherical{}, fmt.Errorf("%w: %q", ErrBadPosition, s)
	}
	el, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Spherical{}, fmt.Errorf("%w: %q", ErrBadPosition, s)
	}
	return AzElToSpherical(az, el, false), nil
}

// AngularDistance is the great-circle angle between two directions.
func AngularDistance(a, b Spherical) float64 {
	c := math.Cos(a.Theta)*math.Cos(b.Theta) +
		math.Sin(a.Theta)*math.Sin(b.Theta)*math.Cos(b.Phi-a.Phi)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

func Gaussian(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}
