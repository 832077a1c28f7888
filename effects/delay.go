// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"sync/atomic"
	"time"

	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/utils"
)

// maxFeedback keeps the loop gain below one so the tail always decays.
const maxFeedback = 0.98

// Delay is a feedback delay line, one per channel. Its output keeps ringing
// after the source stops, so a source using it finishes only once the echoes
// have died away.
type Delay struct {
	maxTime  time.Duration
	time     atomic.Int64
	feedback atomicFloat
	wet      atomicFloat
	dry      atomicFloat
	disabled atomic.Bool

	sampleRate int
	channels   int
	// buffer holds maxFrames interleaved frames.
	buffer    []float32
	maxFrames int
	pos       int
	delay     dsp.Param
}

// NewDelay returns a delay whose time can be set up to maxTime. It starts at
// half of maxTime with feedback 0.5 and equal wet and dry levels.
func NewDelay(maxTime time.Duration) *Delay {
	d := &Delay{maxTime: max(maxTime, time.Millisecond)}
	d.time.Store(int64(d.maxTime / 2))
	d.feedback.Store(0.5)
	d.wet.Store(0.5)
	d.dry.Store(1)
	return d
}

// SetTime changes the delay; it is clamped to (0, maxTime].
func (d *Delay) SetTime(t time.Duration) {
	d.time.Store(int64(min(max(t, time.Millisecond), d.maxTime)))
}

func (d *Delay) Time() time.Duration { return time.Duration(d.time.Load()) }

// SetFeedback sets how much of the delayed signal is fed back, in [0, 0.98].
func (d *Delay) SetFeedback(v float32) { d.feedback.Store(utils.Clamp(v, 0, maxFeedback)) }

// SetMix sets the wet and dry levels, each in [0, 1].
func (d *Delay) SetMix(wet, dry float32) {
	d.wet.Store(utils.Clamp(wet, 0, 1))
	d.dry.Store(utils.Clamp(dry, 0, 1))
}

func (d *Delay) SetEnabled(enabled bool) { d.disabled.Store(!enabled) }

func (d *Delay) Enabled() bool { return !d.disabled.Load() }

func (d *Delay) frames(t time.Duration) float32 {
	n := float32(t.Seconds() * float64(d.sampleRate))
	return utils.Clamp(n, 1, float32(d.maxFrames-2))
}

func (d *Delay) Init(sampleRate, numChannels int) {
	d.sampleRate = sampleRate
	d.channels = numChannels
	d.maxFrames = int(d.maxTime.Seconds()*float64(sampleRate)) + 2
	n := d.maxFrames * numChannels
	if cap(d.buffer) >= n {
		d.buffer = d.buffer[:n]
		clear(d.buffer)
	} else {
		d.buffer = make([]float32, n)
	}
	d.pos = 0
	d.delay.Init(d.frames(d.Time()))
}

// Reset silences the delay line.
func (d *Delay) Reset() {
	clear(d.buffer)
	d.pos = 0
}

// read returns channel c of the frame delay frames back, interpolating
// between frames.
func (d *Delay) read(delay float32, c int) float32 {
	whole := int(delay)
	frac := delay - float32(whole)
	a := (d.pos - whole + d.maxFrames) % d.maxFrames
	b := (a - 1 + d.maxFrames) % d.maxFrames
	return utils.Lerp(d.buffer[a*d.channels+c], d.buffer[b*d.channels+c], frac)
}

func (d *Delay) Process(_ *mixer.EffectParams, buf []float32) {
	ch := d.channels
	if ch == 0 || len(d.buffer) == 0 {
		return
	}
	frames := len(buf) / ch
	if target := d.frames(d.Time()); target != d.delay.Target() {
		d.delay.Set(target, frames)
	}
	feedback := d.feedback.Load()
	wet := d.wet.Load()
	dry := d.dry.Load()

	for f := range frames {
		delay := d.delay.Update()
		base := f * ch
		for c := range ch {
			x := buf[base+c]
			y := d.read(delay, c)
			d.buffer[d.pos*ch+c] = x + y*feedback
			buf[base+c] = x*dry + y*wet
		}
		d.pos++
		if d.pos == d.maxFrames {
			d.pos = 0
		}
	}
}
