// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"os"
	"path/filepath"

	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/audio"
)

// Default returns a registry with every decoder in this package, keyed by
// the file extensions they read.
func Default() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", WAVDecoder{})
	r.Register("wave", WAVDecoder{})
	r.Register("aif", AIFFDecoder{})
	r.Register("aiff", AIFFDecoder{})
	r.Register("mp3", MP3Decoder{})
	r.Register("ogg", VorbisDecoder{})
	r.Register("oga", VorbisDecoder{})
	return r
}

// fileSource closes the backing file with the stream.
type fileSource struct {
	audio.Source
	f *os.File
}

func (s *fileSource) Close() error {
	err := s.Source.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open decodes the file at path with the Default registry.
func Open(path string) (audio.Source, error) {
	return OpenWith(Default(), path)
}

// OpenWith decodes the file at path, choosing the decoder by extension.
func OpenWith(r *audio.Registry, path string) (audio.Source, error) {
	ext := filepath.Ext(path)
	dec, ok := r.Get(ext)
	if !ok {
		return nil, errors.Wrapf(audio.ErrUnknownFormat, "extension %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}

	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "decode %v", path)
	}
	return &fileSource{Source: src, f: f}, nil
}
