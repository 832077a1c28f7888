// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"gonum.org/v1/gonum/blas/blas32"
)

func vec(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Data: data, Inc: 1}
}

// Zero clears buf.
func Zero(buf []float32) {
	clear(buf)
}

// ArrayFade applies a linear gain ramp from start to end across the frames of
// an interleaved buffer. Every channel of a frame gets the same gain.
func ArrayFade(buf []float32, numChannels int, start, end float32) {
	if numChannels <= 0 || len(buf) == 0 {
		return
	}
	if start == end {
		if start != 1 {
			Scale(buf, start)
		}
		return
	}

	frames := len(buf) / numChannels
	delta := (end - start) / float32(frames)
	gain := start
	for f := range frames {
		base := f * numChannels
		for c := range numChannels {
			buf[base+c] *= gain
		}
		gain += delta
	}
}

// Scale multiplies buf by gain in place.
func Scale(buf []float32, gain float32) {
	if len(buf) == 0 {
		return
	}
	if gain == 0 {
		clear(buf)
		return
	}
	blas32.Scal(gain, vec(buf))
}

// MixIn accumulates gain*src into dst. Both slices must have the same length.
func MixIn(src, dst []float32, gain float32) {
	if len(src) != len(dst) {
		panic("dsp: MixIn length mismatch")
	}
	if gain == 0 || len(src) == 0 {
		return
	}
	blas32.Axpy(gain, vec(src), vec(dst))
}

// Energy returns the sum of squared samples.
func Energy(buf []float32) float32 {
	if len(buf) == 0 {
		return 0
	}
	return blas32.Dot(vec(buf), vec(buf))
}

// Peak returns the largest absolute sample value.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
