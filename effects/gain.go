// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"sync/atomic"

	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/utils"
)

// Gain scales a source by a level in dB.
type Gain struct {
	target   atomicFloat
	disabled atomic.Bool

	channels int
	gain     dsp.Param
}

// NewGain returns a gain of db decibels.
func NewGain(db float32) *Gain {
	g := &Gain{}
	g.SetDecibels(db)
	return g
}

// SetDecibels changes the level; the next block ramps to it.
func (g *Gain) SetDecibels(db float32) {
	g.target.Store(utils.DecibelsToLinear(db))
}

// Decibels is the level last set.
func (g *Gain) Decibels() float32 {
	return utils.LinearToDecibels(g.target.Load(), -144)
}

func (g *Gain) SetEnabled(enabled bool) { g.disabled.Store(!enabled) }

func (g *Gain) Init(_, numChannels int) {
	g.channels = numChannels
	g.gain.Init(g.target.Load())
}

func (g *Gain) Enabled() bool { return !g.disabled.Load() }

func (g *Gain) Process(_ *mixer.EffectParams, buf []float32) {
	if g.channels == 0 {
		return
	}
	frames := len(buf) / g.channels
	if target := g.target.Load(); target != g.gain.Target() {
		g.gain.Set(target, frames)
	}
	if !g.gain.Ramping() {
		if v := g.gain.Value(); v != 1 {
			dsp.Scale(buf, v)
		}
		return
	}
	for f := range frames {
		v := g.gain.Update()
		for c := range g.channels {
			buf[f*g.channels+c] *= v
		}
	}
}
