// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"bytes"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/ossrs/go-oryx-lib/errors"
)

// pcmReader is the part of the go-audio WAV and AIFF decoders used here.
type pcmReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource adapts a go-audio integer PCM decoder to audio.Source.
type intSource struct {
	dec        pcmReader
	sampleRate int
	channels   int
	scale      float32
	offset     int
	intBuf     *goaudio.IntBuffer
	eof        bool
}

func newIntSource(dec pcmReader, sampleRate, channels, bitDepth int) (*intSource, error) {
	s := &intSource{dec: dec, sampleRate: sampleRate, channels: channels}
	switch bitDepth {
	case 8:
		// unsigned in WAV
		s.scale, s.offset = 128, 128
	case 16:
		s.scale = 32768
	case 24:
		s.scale = 8388608
	case 32:
		s.scale = 2147483648
	default:
		return nil, errors.Wrapf(ErrUnsupportedBitDepth, "depth %v", bitDepth)
	}
	return s, nil
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }
func (s *intSource) Close() error    { return nil }

func (s *intSource) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.dec.Format(),
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && err != io.EOF {
		return 0, errors.Wrapf(err, "read pcm")
	}
	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]-s.offset) / s.scale
	}

	// Short reads only happen at the end of the data chunk.
	if n < len(dst) || err == io.EOF {
		s.eof = true
		return n, io.EOF
	}
	return n, nil
}

// seekable returns r as an io.ReadSeeker, buffering it in memory when needed.
func seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "buffer input")
	}
	return bytes.NewReader(data), nil
}
