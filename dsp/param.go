// SPDX-License-Identifier: EPL-2.0

package dsp

// Param is a scalar that moves linearly from its current value to a target
// over a fixed number of frames. It is used for per-block parameter smoothing
// (pitch, filter coefficients) so a change never produces a step.
type Param struct {
	current float32
	target  float32
	delta   float32
	frame   int
	frames  int
}

// Init snaps the parameter to v with no ramp.
func (p *Param) Init(v float32) {
	p.current = v
	p.target = v
	p.delta = 0
	p.frame = 0
	p.frames = 0
}

// Set schedules a ramp from the current value to target over numFrames.
// numFrames <= 0 snaps immediately.
func (p *Param) Set(target float32, numFrames int) {
	p.target = target
	if numFrames <= 0 {
		p.current = target
		p.delta = 0
		p.frame = 0
		p.frames = 0
		return
	}
	p.delta = (target - p.current) / float32(numFrames)
	p.frame = 0
	p.frames = numFrames
}

// Update returns the value for the current frame and advances one frame.
func (p *Param) Update() float32 {
	v := p.current
	if p.frame < p.frames {
		p.frame++
		if p.frame == p.frames {
			p.current = p.target
		} else {
			p.current += p.delta
		}
	}
	return v
}

// Reset finishes any pending ramp.
func (p *Param) Reset() {
	p.current = p.target
	p.frame = 0
	p.frames = 0
	p.delta = 0
}

// Ramping reports whether a ramp is in progress.
func (p *Param) Ramping() bool { return p.frame < p.frames }

// Value is the current value without advancing.
func (p *Param) Value() float32 { return p.current }

// Target is the value the ramp ends at.
func (p *Param) Target() float32 { return p.target }
