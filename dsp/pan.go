// SPDX-License-Identifier: EPL-2.0

package dsp

import (
	"math"
	"sort"
)

// speakerAzimuth is the position of each speaker in degrees, clockwise from
// straight ahead. LFE has no position.
var speakerAzimuth = map[Speaker]float32{
	FrontLeft:   330,
	FrontRight:  30,
	FrontCenter: 0,
	BackLeft:    210,
	BackRight:   150,
	SideLeft:    250,
	SideRight:   110,
}

type positioned struct {
	index   int
	azimuth float32
}

func positions(numChannels int) []positioned {
	layout := Layout(numChannels)
	out := make([]positioned, 0, len(layout))
	for i, sp := range layout {
		az, ok := speakerAzimuth[sp]
		if !ok {
			continue
		}
		// a stereo pair sits hard left/right
		if numChannels == 2 {
			az = 270
			if sp == FrontRight {
				az = 90
			}
		}
		out = append(out, positioned{index: i, azimuth: az})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].azimuth < out[b].azimuth })
	return out
}

// NormalizeAzimuth wraps degrees into [0, 360).
func NormalizeAzimuth(az float32) float32 {
	a := float32(math.Mod(float64(az), 360))
	if a < 0 {
		a += 360
	}
	return a
}

// AzimuthGains writes equal-power gains for a point source at azimuth into
// gains (len >= numChannels). omni in [0, 1] blends the result toward an
// even spread over every positioned speaker while preserving total power.
func AzimuthGains(azimuth, omni float32, numChannels int, gains []float32) {
	gains = gains[:numChannels]
	clear(gains)

	if numChannels == 1 {
		gains[0] = 1
		return
	}

	pos := positions(numChannels)
	if len(pos) == 0 {
		return
	}

	az := NormalizeAzimuth(azimuth)

	// find the pair of adjacent speakers that brackets az, wrapping at 360
	lo, hi := len(pos)-1, 0
	for i := range pos {
		if pos[i].azimuth > az {
			hi = i
			lo = (i - 1 + len(pos)) % len(pos)
			break
		}
		lo = i
		hi = (i + 1) % len(pos)
	}

	span := pos[hi].azimuth - pos[lo].azimuth
	offset := az - pos[lo].azimuth
	if span <= 0 {
		span += 360
	}
	if offset < 0 {
		offset += 360
	}
	frac := float64(offset / span)
	gains[pos[lo].index] = float32(math.Cos(frac * math.Pi / 2))
	gains[pos[hi].index] += float32(math.Sin(frac * math.Pi / 2))

	if omni <= 0 {
		return
	}
	if omni > 1 {
		omni = 1
	}
	even := 1 / float32(len(pos))
	for _, p := range pos {
		g := gains[p.index]
		gains[p.index] = float32(math.Sqrt(float64((1-omni)*g*g + omni*even)))
	}
}

// Channel3DMap fills dst (inCh x outCh, row major) with azimuth based gains.
// Mono inputs pan as a point; stereo inputs place each channel spread/2
// degrees either side of azimuth. Other channel counts fall back to the 2D
// matrix.
func Channel3DMap(inCh, outCh int, azimuth, spread, omni float32, dst []float32) {
	switch inCh {
	case 1:
		AzimuthGains(azimuth, omni, outCh, dst[:outCh])
	case 2:
		AzimuthGains(azimuth-spread/2, omni, outCh, dst[:outCh])
		AzimuthGains(azimuth+spread/2, omni, outCh, dst[outCh:2*outCh])
	default:
		FillDownmixMatrix(inCh, outCh, dst)
	}
}
