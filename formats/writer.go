// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/utils"
)

// WAVWriter encodes interleaved float32 blocks as integer PCM WAV. The header
// sizes are patched on Close, so w must be seekable.
type WAVWriter struct {
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	channels int
	depth    int
	scale    float64
	frames   int
	closed   bool
}

// NewWAVWriter supports bit depths 16, 24 and 32.
func NewWAVWriter(w io.WriteSeeker, sampleRate, numChannels, bitDepth int) (*WAVWriter, error) {
	if numChannels < 1 || numChannels > 8 {
		return nil, errors.Wrapf(ErrUnsupportedLayout, "channels %v", numChannels)
	}
	if sampleRate <= 0 {
		return nil, errors.Errorf("invalid sample rate %v", sampleRate)
	}

	var scale float64
	switch bitDepth {
	case 16:
		scale = 32767
	case 24:
		scale = 8388607
	case 32:
		scale = 2147483647
	default:
		return nil, errors.Wrapf(ErrUnsupportedBitDepth, "depth %v", bitDepth)
	}

	return &WAVWriter{
		enc:      wav.NewEncoder(w, sampleRate, bitDepth, numChannels, 1),
		channels: numChannels,
		depth:    bitDepth,
		scale:    scale,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: numChannels},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write appends whole frames of interleaved samples, clipping to [-1, 1].
func (w *WAVWriter) Write(samples []float32) error {
	if w.closed {
		return ErrWriterClosed
	}
	if len(samples)%w.channels != 0 {
		return errors.Errorf("got %v samples for %v channels", len(samples), w.channels)
	}
	if len(samples) == 0 {
		return nil
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	if w.depth == 16 {
		for i, s := range samples {
			w.buf.Data[i] = int(utils.Float32ToInt16(s))
		}
	} else {
		for i, s := range samples {
			w.buf.Data[i] = int(float64(utils.Clamp(s, -1, 1)) * w.scale)
		}
	}

	if err := w.enc.Write(w.buf); err != nil {
		return errors.Wrapf(err, "encode %v frames", len(samples)/w.channels)
	}
	w.frames += len(samples) / w.channels
	return nil
}

// Frames is the number of frames written so far.
func (w *WAVWriter) Frames() int { return w.frames }

// Close finalizes the headers. The underlying writer is left open.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.frames == 0 {
		// Emit the headers for an empty file.
		if err := w.enc.Write(&goaudio.IntBuffer{Format: w.buf.Format}); err != nil {
			return errors.Wrapf(err, "write wav header")
		}
	}
	if err := w.enc.Close(); err != nil {
		return errors.Wrapf(err, "finalize wav")
	}
	return nil
}
