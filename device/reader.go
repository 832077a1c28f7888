// SPDX-License-Identifier: EPL-2.0

package device

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"

	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/mixer"
)

const bytesPerSample = 4

// Renderer produces fixed-size blocks of interleaved float32 samples.
// *mixer.Engine is one.
type Renderer interface {
	Render(out []float32) error
	NumChannels() int
	SampleRate() int
	BlockSamples() int
}

// Reader turns rendered blocks into little-endian float32 bytes. Reads may
// ask for any length; a partly consumed block is kept for the next Read.
type Reader struct {
	r      Renderer
	block  []float32
	bytes  []byte
	pos    int
	blocks atomic.Int64
}

func NewReader(r Renderer) *Reader {
	n := r.BlockSamples()
	return &Reader{
		r:     r,
		block: make([]float32, n),
		bytes: make([]byte, n*bytesPerSample),
		pos:   n * bytesPerSample,
	}
}

// Blocks is the number of blocks rendered so far.
func (r *Reader) Blocks() int64 { return r.blocks.Load() }

// Read renders as many blocks as p needs. An engine that is not initialized
// yet plays silence; a shut down engine ends the stream.
func (r *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.pos == len(r.bytes) {
			err := r.r.Render(r.block)
			if errors.Cause(err) == mixer.ErrNotInitialized {
				// silence until the engine starts
				clear(r.block)
				err = nil
			}
			if err != nil {
				if errors.Cause(err) == mixer.ErrShutdown {
					err = io.EOF
				}
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
			r.blocks.Add(1)
			for i, v := range r.block {
				binary.LittleEndian.PutUint32(r.bytes[i*bytesPerSample:], math.Float32bits(v))
			}
			r.pos = 0
		}
		k := copy(p[n:], r.bytes[r.pos:])
		r.pos += k
		n += k
	}
	return n, nil
}
