package spatial

const (
	attack      = 0.15
	release     = 0.9
	activeFloor = 0.01
)

// Source is one track placed on the sphere. File is the index of the stereo
// file it came from and selects its colour; anything other than 0 or 1 uses
// the fallback colour.
type Source struct {
	Name     string    `json:"name"`
	Position Spherical `json:"position"`
	File     int       `json:"file"`
	Channel  int       `json:"channel"`
	Strength float64   `json:"strength"`
}

// Update eases Strength toward level while playing and decays it otherwise.
func (s *Source) Update(level float64, playing bool) {
	if playing {
		s.Strength += (level - s.Strength) * attack
		return
	}
	s.Strength *= release
}

// Active reports whether the source is loud enough to deform the sphere.
func (s *Source) Active() bool {
	return s.Strength > activeFloor
}
