// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"io"

	"github.com/go-audio/aiff"

	"github.com/ik5/audmix/audio"
)

// AIFFDecoder decodes 16-bit PCM AIFF files.
type AIFFDecoder struct{}

func (AIFFDecoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := seekable(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAIFFFile
	}
	dec.ReadInfo()

	if dec.BitDepth != 16 {
		return nil, ErrUnsupportedBitDepth
	}
	format := dec.Format()
	if format == nil || format.NumChannels < 1 {
		return nil, ErrUnsupportedLayout
	}

	return newIntSource(dec, format.SampleRate, format.NumChannels, int(dec.BitDepth))
}
