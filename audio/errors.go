// SPDX-License-Identifier: EPL-2.0

package audio

import "github.com/ossrs/go-oryx-lib/errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")
	ErrInvalidRate    = errors.New("sample rate must be positive")
	ErrNoChannels     = errors.New("source reports zero channels")
	ErrUnknownFormat  = errors.New("no decoder registered for format")
)
