// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

const (
	// MinFilterFrequency is the neutral high-pass cutoff (bypassed).
	MinFilterFrequency float32 = 20
	// MaxFilterFrequency is the neutral low-pass cutoff (bypassed).
	MaxFilterFrequency float32 = 20000
)

// onePole is a multichannel one-pole low-pass whose coefficient is
// interpolated across the frames of a block.
type onePole struct {
	sampleRate float32
	numChans   int
	cutoff     float32
	coeff      Param
	z1         []float32
}

func (f *onePole) init(sampleRate float32, numChannels int, cutoff float32) {
	f.sampleRate = sampleRate
	f.numChans = numChannels
	if cap(f.z1) >= numChannels {
		f.z1 = f.z1[:numChannels]
		clear(f.z1)
	} else {
		f.z1 = make([]float32, numChannels)
	}
	f.cutoff = cutoff
	f.coeff.Init(f.coefficient(cutoff))
}

func (f *onePole) coefficient(cutoff float32) float32 {
	nyquist := f.sampleRate / 2
	if cutoff > nyquist {
		cutoff = nyquist
	}
	if cutoff < 1 {
		cutoff = 1
	}
	return float32(math.Exp(-2 * math.Pi * float64(cutoff) / float64(f.sampleRate)))
}

// setFrequency ramps the cutoff to freq over numFrames.
func (f *onePole) setFrequency(freq float32, numFrames int) {
	f.cutoff = freq
	f.coeff.Set(f.coefficient(freq), numFrames)
}

// Ramping reports whether a cutoff change is still pending.
func (f *onePole) Ramping() bool { return f.coeff.Ramping() }

func (f *onePole) reset() {
	clear(f.z1)
	f.coeff.Reset()
}

// LowPass is an interpolated one-pole low-pass filter.
type LowPass struct {
	onePole
}

// Init sizes the filter state for numChannels and sets the cutoff without a
// ramp.
func (f *LowPass) Init(sampleRate float32, numChannels int, cutoff float32) {
	f.init(sampleRate, numChannels, cutoff)
}

// SetFrequency ramps to a new cutoff over numFrames.
func (f *LowPass) SetFrequency(freq float32, numFrames int) { f.setFrequency(freq, numFrames) }

// Frequency is the most recently requested cutoff.
func (f *LowPass) Frequency() float32 { return f.cutoff }

// Reset clears the filter memory.
func (f *LowPass) Reset() { f.reset() }

// Process filters an interleaved buffer in place.
func (f *LowPass) Process(buf []float32) {
	n := f.numChans
	if n == 0 {
		return
	}
	for base := 0; base+n <= len(buf); base += n {
		g := f.coeff.Update()
		for c := range n {
			y := buf[base+c] + g*(f.z1[c]-buf[base+c])
			f.z1[c] = y
			buf[base+c] = y
		}
	}
	f.coeff.Reset()
}

// HighPass is an interpolated one-pole high-pass filter built as the
// complement of a one-pole low-pass at the same cutoff.
type HighPass struct {
	onePole
}

// Init sizes the filter state for numChannels and sets the cutoff without a
// ramp.
func (f *HighPass) Init(sampleRate float32, numChannels int, cutoff float32) {
	f.init(sampleRate, numChannels, cutoff)
}

// SetFrequency ramps to a new cutoff over numFrames.
func (f *HighPass) SetFrequency(freq float32, numFrames int) { f.setFrequency(freq, numFrames) }

// Frequency is the most recently requested cutoff.
func (f *HighPass) Frequency() float32 { return f.cutoff }

// Reset clears the filter memory.
func (f *HighPass) Reset() { f.reset() }

// Process filters an interleaved buffer in place.
func (f *HighPass) Process(buf []float32) {
	n := f.numChans
	if n == 0 {
		return
	}
	for base := 0; base+n <= len(buf); base += n {
		g := f.coeff.Update()
		for c := range n {
			x := buf[base+c]
			lp := x + g*(f.z1[c]-x)
			f.z1[c] = lp
			buf[base+c] = x - lp
		}
	}
	f.coeff.Reset()
}
