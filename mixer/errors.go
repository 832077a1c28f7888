// SPDX-License-Identifier: EPL-2.0

package mixer

import "github.com/ossrs/go-oryx-lib/errors"

var (
	ErrInvalidConfig   = errors.New("invalid mixer config")
	ErrInvalidSourceID = errors.New("source id out of range")
	ErrSourceNotBusy   = errors.New("source slot is not allocated")
	ErrReleasePending  = errors.New("source release already requested")
	ErrNilProvider     = errors.New("source has no buffer provider")
	ErrInvalidChannels = errors.New("invalid channel count")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrBufferSize      = errors.New("buffer size does not match block")
	ErrNotInitialized  = errors.New("engine not initialized")
	ErrShutdown        = errors.New("engine shut down")
)
