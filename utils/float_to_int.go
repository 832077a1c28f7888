// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt16 clamps x to [-1, 1] and scales it to 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	x = Clamp(x, -1, 1)

	// 32767 keeps +1.0 from overflowing
	return int16(x * 32767.0)
}

// Int16ToFloat32 is the inverse of Float32ToInt16 for decoded PCM.
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// DecibelsToLinear converts a gain in dB to a linear scalar.
func DecibelsToLinear(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// LinearToDecibels converts a linear scalar to dB. Zero or negative input
// returns floor.
func LinearToDecibels(v, floor float32) float32 {
	if v <= 0 {
		return floor
	}
	db := float32(20 * math.Log10(float64(v)))
	if db < floor {
		return floor
	}
	return db
}
