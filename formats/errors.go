// SPDX-License-Identifier: EPL-2.0

package formats

import "github.com/ossrs/go-oryx-lib/errors"

var (
	ErrNotWAVFile          = errors.New("not a WAV file")
	ErrNotAIFFFile         = errors.New("not an AIFF file")
	ErrUnsupportedBitDepth = errors.New("unsupported PCM bit depth")
	ErrUnsupportedLayout   = errors.New("unsupported channel layout")
	ErrWriterClosed        = errors.New("writer already closed")
)
