// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"encoding/binary"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

// byteReader is the part of gomp3.Decoder used here.
type byteReader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type mp3Source struct {
	dec        byteReader
	sampleRate int
	buf        []byte
}

func (s *mp3Source) SampleRate() int { return s.sampleRate }

// Channels is always 2; go-mp3 upmixes mono streams.
func (s *mp3Source) Channels() int { return 2 }
func (s *mp3Source) Close() error  { return nil }
func (s *mp3Source) BufSize() int  { return cap(s.buf) / 2 }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		return 0, errors.Wrapf(err, "read mp3")
	}

	samples := n / 2
	for i := range samples {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(s.buf[2*i:])))
	}
	return samples, err
}

// MP3Decoder decodes MPEG-1/2 Layer III streams.
type MP3Decoder struct{}

func (MP3Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, errors.Wrapf(err, "open mp3")
	}

	return &mp3Source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
