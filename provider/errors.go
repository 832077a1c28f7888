// SPDX-License-Identifier: EPL-2.0

package provider

import "github.com/ossrs/go-oryx-lib/errors"

var (
	ErrNoChannels   = errors.New("provider: no channels")
	ErrInvalidRate  = errors.New("provider: invalid sample rate")
	ErrPartialFrame = errors.New("provider: samples not a whole number of frames")
	ErrEmpty        = errors.New("provider: no audio")
)
