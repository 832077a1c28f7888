// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"testing"
)

func sine(freq, sampleRate float64, frames, channels int) []float32 {
	buf := make([]float32, frames*channels)
	for f := range frames {
		v := float32(math.Sin(2 * math.Pi * freq * float64(f) / sampleRate))
		for c := range channels {
			buf[f*channels+c] = v
		}
	}
	return buf
}

func TestLowPass_AttenuatesHighFrequencies(t *testing.T) {
	t.Parallel()

	var lp LowPass
	lp.Init(48000, 2, 200)

	buf := sine(10000, 48000, 4800, 2)
	before := Energy(buf)
	lp.Process(buf)

	if after := Energy(buf); after > before*0.05 {
		t.Errorf("energy after LPF = %v, want < 5%% of %v", after, before)
	}
}

func TestLowPass_PassesDC(t *testing.T) {
	t.Parallel()

	var lp LowPass
	lp.Init(48000, 1, 1000)

	buf := make([]float32, 4800)
	for i := range buf {
		buf[i] = 1
	}
	lp.Process(buf)

	if got := buf[len(buf)-1]; math.Abs(float64(got-1)) > 1e-3 {
		t.Errorf("DC after LPF = %v, want 1", got)
	}
}

func TestHighPass_RemovesDC(t *testing.T) {
	t.Parallel()

	var hp HighPass
	hp.Init(48000, 1, 1000)

	buf := make([]float32, 4800)
	for i := range buf {
		buf[i] = 1
	}
	hp.Process(buf)

	if got := buf[len(buf)-1]; math.Abs(float64(got)) > 1e-3 {
		t.Errorf("DC after HPF = %v, want 0", got)
	}
}

func TestLowPass_FrequencyRamp(t *testing.T) {
	t.Parallel()

	var lp LowPass
	lp.Init(48000, 1, MaxFilterFrequency)
	lp.SetFrequency(500, 256)

	if lp.Frequency() != 500 {
		t.Errorf("Frequency() = %v, want 500", lp.Frequency())
	}

	buf := make([]float32, 256)
	lp.Process(buf)

	// ramp completes within the block
	want := lp.coefficient(500)
	if got := lp.coeff.Value(); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("coefficient after block = %v, want %v", got, want)
	}
}
