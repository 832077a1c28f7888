// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

// EnvelopeFollower tracks the average absolute amplitude of an interleaved
// signal with separate attack and release time constants.
type EnvelopeFollower struct {
	attack  float32
	release float32
	value   float32
}

func timeCoefficient(ms, sampleRate float32) float32 {
	if ms <= 0 {
		return 0
	}
	return float32(math.Exp(-1000 / float64(ms*sampleRate)))
}

// Init configures the follower; attack and release are in milliseconds.
func (e *EnvelopeFollower) Init(sampleRate, attackMs, releaseMs float32) {
	e.attack = timeCoefficient(attackMs, sampleRate)
	e.release = timeCoefficient(releaseMs, sampleRate)
	e.value = 0
}

// Reset returns the envelope to silence.
func (e *EnvelopeFollower) Reset() { e.value = 0 }

// Value is the envelope after the last processed frame.
func (e *EnvelopeFollower) Value() float32 { return e.value }

// Process runs the follower over buf and returns the final envelope value.
func (e *EnvelopeFollower) Process(buf []float32, numChannels int) float32 {
	if numChannels <= 0 {
		return e.value
	}
	inv := 1 / float32(numChannels)
	env := e.value
	for base := 0; base+numChannels <= len(buf); base += numChannels {
		var sum float32
		for c := range numChannels {
			s := buf[base+c]
			if s < 0 {
				s = -s
			}
			sum += s
		}
		x := sum * inv
		coeff := e.release
		if x > env {
			coeff = e.attack
		}
		env = x + coeff*(env-x)
	}
	// flush denormals
	if env < 1e-30 {
		env = 0
	}
	e.value = env
	return env
}
