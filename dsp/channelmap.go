// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

// Speaker identifies an output position.
type Speaker int

const (
	FrontLeft Speaker = iota
	FrontRight
	FrontCenter
	LowFrequency
	BackLeft
	BackRight
	SideLeft
	SideRight
)

// MaxChannels is the largest channel count the channel maps support.
const MaxChannels = 8

const invSqrt2 = float32(0.70710678118654752440)

var layouts = map[int][]Speaker{
	1: {FrontCenter},
	2: {FrontLeft, FrontRight},
	3: {FrontLeft, FrontRight, FrontCenter},
	4: {FrontLeft, FrontRight, SideLeft, SideRight},
	5: {FrontLeft, FrontRight, FrontCenter, SideLeft, SideRight},
	6: {FrontLeft, FrontRight, FrontCenter, LowFrequency, SideLeft, SideRight},
	7: {FrontLeft, FrontRight, FrontCenter, LowFrequency, BackLeft, BackRight, SideLeft},
	8: {FrontLeft, FrontRight, FrontCenter, LowFrequency, BackLeft, BackRight, SideLeft, SideRight},
}

// Layout returns the speaker order for numChannels, or nil when unsupported.
func Layout(numChannels int) []Speaker {
	return layouts[numChannels]
}

func indexOf(layout []Speaker, sp Speaker) int {
	for i, s := range layout {
		if s == sp {
			return i
		}
	}
	return -1
}

// fold lists where a speaker missing from the output layout is sent, in order
// of preference. A speaker folds into the first entry present.
var fold = map[Speaker][]Speaker{
	BackLeft:   {SideLeft, FrontLeft},
	BackRight:  {SideRight, FrontRight},
	SideLeft:   {BackLeft, FrontLeft},
	SideRight:  {BackRight, FrontRight},
	FrontLeft:  {FrontCenter},
	FrontRight: {FrontCenter},
}

// DownmixMatrix returns the inCh x outCh gain matrix (row major, one row per
// input channel) used to convert between channel counts. Each input row
// carries unit energy so a full-scale channel keeps its power after mapping,
// except the LFE channel which is dropped when the output has no LFE.
func DownmixMatrix(inCh, outCh int) []float32 {
	m := make([]float32, inCh*outCh)
	FillDownmixMatrix(inCh, outCh, m)
	return m
}

// FillDownmixMatrix is DownmixMatrix writing into dst, which must hold at
// least inCh*outCh values.
func FillDownmixMatrix(inCh, outCh int, dst []float32) {
	dst = dst[:inCh*outCh]
	clear(dst)

	if inCh == outCh {
		for c := range inCh {
			dst[c*outCh+c] = 1
		}
		return
	}

	out := Layout(outCh)
	in := Layout(inCh)

	if outCh == 1 {
		// power-normalized sum of everything but the LFE
		var n int
		for _, sp := range in {
			if sp != LowFrequency {
				n++
			}
		}
		if n == 0 {
			n = inCh
		}
		g := float32(1 / math.Sqrt(float64(n)))
		for i, sp := range in {
			if sp != LowFrequency {
				dst[i] = g
			}
		}
		return
	}

	if inCh == 1 {
		// mono spreads equal power across the front pair
		dst[0*outCh+0] = invSqrt2
		dst[0*outCh+1] = invSqrt2
		return
	}

	if in == nil || out == nil {
		// unknown layout: route channel by channel, drop the rest
		for c := range min(inCh, outCh) {
			dst[c*outCh+c] = 1
		}
		return
	}

	for i, sp := range in {
		row := dst[i*outCh : (i+1)*outCh]
		if o := indexOf(out, sp); o >= 0 {
			row[o] = 1
			continue
		}
		switch sp {
		case LowFrequency:
			continue
		case FrontCenter:
			row[indexOf(out, FrontLeft)] = invSqrt2
			row[indexOf(out, FrontRight)] = invSqrt2
			continue
		}
		for _, target := range fold[sp] {
			if o := indexOf(out, target); o >= 0 {
				row[o] = 1
				break
			}
		}
	}
}

// DownmixAndSum maps an interleaved inCh buffer through matrix into an
// interleaved outCh buffer, scaling by gain and accumulating into out.
func DownmixAndSum(in []float32, inCh int, out []float32, outCh int, matrix []float32, gain float32) {
	if gain == 0 || inCh <= 0 || outCh <= 0 {
		return
	}
	frames := min(len(in)/inCh, len(out)/outCh)

	if inCh == outCh && isIdentity(matrix, inCh) {
		MixIn(in[:frames*inCh], out[:frames*outCh], gain)
		return
	}

	for f := range frames {
		src := in[f*inCh : (f+1)*inCh]
		dst := out[f*outCh : (f+1)*outCh]
		for i, s := range src {
			if s == 0 {
				continue
			}
			row := matrix[i*outCh : (i+1)*outCh]
			for o, g := range row {
				if g != 0 {
					dst[o] += s * g * gain
				}
			}
		}
	}
}

func isIdentity(matrix []float32, n int) bool {
	if len(matrix) < n*n {
		return false
	}
	for i := range n {
		for o := range n {
			want := float32(0)
			if i == o {
				want = 1
			}
			if matrix[i*n+o] != want {
				return false
			}
		}
	}
	return true
}
