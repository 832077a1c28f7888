// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"io"

	"github.com/go-audio/wav"
	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/audio"
)

// WAVDecoder decodes integer PCM WAV files.
type WAVDecoder struct{}

func (WAVDecoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := seekable(r)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAVFile
	}
	if dec.WavAudioFormat != 1 {
		return nil, errors.Wrapf(ErrUnsupportedBitDepth, "wav format tag %v", dec.WavAudioFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, errors.Wrapf(err, "seek wav data")
	}

	return newIntSource(dec, int(dec.SampleRate), int(dec.NumChans), int(dec.BitDepth))
}
