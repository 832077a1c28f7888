// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"

	"github.com/ik5/audmix/utils"
	"github.com/ossrs/go-oryx-lib/errors"
)

// Resampler streams from src to a target sample rate using cubic
// interpolation. It works on interleaved samples and preserves the channel
// count. A one-pole low-pass runs ahead of the interpolator when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool

	// position between frames[1] and frames[2]
	pos float64

	srcBuf []float32
	eof    bool

	useFilter   bool
	filterAlpha float32
	filterState []float32
}

// NewResampler wraps src. When the rates already match the resampler still
// works, it simply interpolates at integer positions.
func NewResampler(src Source, dstRate int) (*Resampler, error) {
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, ErrInvalidRate
	}
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrNoChannels
	}
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}
	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r, nil
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return errors.Wrapf(err, "close resampled source")
	}
	return nil
}

// readFrame pulls one source frame into dst, applying the anti-alias filter.
func (r *Resampler) readFrame(dst []float32, first bool) (bool, error) {
	n, err := r.src.ReadSamples(r.srcBuf)
	ok := n >= r.channels
	if ok {
		copy(dst, r.srcBuf)
		if r.useFilter {
			if first {
				copy(r.filterState, dst)
			}
			for c := range r.channels {
				dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
				r.filterState[c] = dst[c]
			}
		}
	}
	if err == io.EOF {
		r.eof = true
		return ok, nil
	}
	if err != nil {
		return ok, errors.Wrapf(err, "read source frame")
	}
	return ok, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	ok, err := r.readFrame(r.frames[1], true)
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	// t-1 of the very first frame is the frame itself
	copy(r.frames[0], r.frames[1])
	r.hasFrame[0], r.hasFrame[1] = true, true

	for i := 2; i < len(r.frames); i++ {
		ok = false
		if !r.eof {
			if ok, err = r.readFrame(r.frames[i], false); err != nil {
				return err
			}
		}
		r.hasFrame[i] = ok
		if !ok {
			copy(r.frames[i], r.frames[i-1])
		}
	}
	return nil
}

// advance shifts the window by one source frame. It returns io.EOF once the
// window's t0 frame is past the end of the source.
func (r *Resampler) advance() error {
	first := r.frames[0]
	copy(r.frames[:], r.frames[1:])
	r.frames[3] = first
	copy(r.hasFrame[:], r.hasFrame[1:])

	r.hasFrame[3] = false
	if !r.eof {
		ok, err := r.readFrame(r.frames[3], false)
		if err != nil {
			return err
		}
		r.hasFrame[3] = ok
	}
	if !r.hasFrame[3] {
		copy(r.frames[3], r.frames[2])
	}
	if !r.hasFrame[1] {
		return io.EOF
	}
	return nil
}

// ReadSamples produces interleaved samples at the target rate. dst length
// must be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				if err == io.EOF {
					return written * r.channels, io.EOF
				}
				return written * r.channels, err
			}
		}

		alpha := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range r.channels {
			out[c] = utils.CubicInterpolate(r.frames[0][c], r.frames[1][c], r.frames[2][c], r.frames[3][c], alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
