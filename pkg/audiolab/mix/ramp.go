package mix

import "time"

// RampDuration is how long a gain change takes to settle.
const RampDuration = 10 * time.Millisecond

// Ramp is a per-frame linear gain ramp. Setting a new target cancels the
// ramp in flight and starts again from the current value.
type Ramp struct {
	value     float64
	target    float64
	step      float64
	remaining int
}

func NewRamp(value float64) Ramp {
	return Ramp{value: value, target: value}
}

// Set ramps to target over frames frames. frames <= 0 jumps immediately.
func (r *Ramp) Set(target float64, frames int) {
	r.target = target
	if frames <= 0 {
		r.value = target
		r.step = 0
		r.remaining = 0
		return
	}
	r.step = (target - r.value) / float64(frames)
	r.remaining = frames
}

// Next returns the gain for the current frame and advances by one.
func (r *Ramp) Next() float64 {
	if r.remaining > 0 {
		r.value += r.step
		r.remaining--
		if r.remaining == 0 {
			r.value = r.target
		}
	}
	return r.value
}

func (r *Ramp) Value() float64  { return r.value }
func (r *Ramp) Target() float64 { return r.target }
func (r *Ramp) Done() bool      { return r.remaining == 0 }

func rampFrames(sampleRate int) int {
	return int(RampDuration.Seconds() * float64(sampleRate))
}
