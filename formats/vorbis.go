// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/audio"
)

// floatReader is the part of oggvorbis.Reader used here.
type floatReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type vorbisSource struct {
	dec        floatReader
	sampleRate int
	channels   int
}

func (s *vorbisSource) SampleRate() int { return s.sampleRate }
func (s *vorbisSource) Channels() int   { return s.channels }
func (s *vorbisSource) Close() error    { return nil }
func (s *vorbisSource) BufSize() int    { return 4096 }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	whole := len(dst) - len(dst)%s.channels
	if whole == 0 {
		return 0, nil
	}

	// oggvorbis.Reader.Read counts interleaved values, not frames.
	n, err := s.dec.Read(dst[:whole])
	if err != nil && err != io.EOF {
		return n, errors.Wrapf(err, "read vorbis")
	}
	return n, err
}

// VorbisDecoder decodes Ogg Vorbis streams.
type VorbisDecoder struct{}

func (VorbisDecoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "open vorbis")
	}
	if dec.Channels() < 1 {
		return nil, ErrUnsupportedLayout
	}

	return &vorbisSource{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
