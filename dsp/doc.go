// SPDX-License-Identifier: EPL-2.0

// Package dsp contains the real-time building blocks used by the mixer's
// per-block pipeline.
//
// Everything here works on interleaved float32 buffers in [-1, 1] and is
// allocation free after construction:
//   - Param: a scalar that ramps linearly toward a target over a block
//   - ArrayFade, MixIn, Scale, Energy: buffer kernels (gonum blas32 backed)
//   - LowPass / HighPass: one-pole filters with per-frame cutoff interpolation
//   - EnvelopeFollower: average amplitude tracking with attack and release
//   - DownmixMatrix / DownmixAndSum: 2D channel up/down mixing
//   - AzimuthGains / Channel3DMap: equal-power azimuth panning
//
// Speaker layouts follow the common WAVE channel order: FL FR FC LFE BL BR
// SL SR, truncated for smaller channel counts (see Layout).
package dsp
