// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
)

// Config holds the fixed parameters of a Manager.
type Config struct {
	// SampleRate of the device in Hz. Sources are resampled to it.
	SampleRate int
	// NumOutputFrames is the device callback size in frames.
	NumOutputFrames int
	// NumSources is the size of the source pool.
	NumSources int
	// NumWorkers partitions the pool across goroutines per block. 1 renders
	// inline.
	NumWorkers int
	// OutputChannels of the master submix an Engine creates.
	OutputChannels int
	// FlushTimeout bounds Flush before it drains the queue itself.
	FlushTimeout time.Duration
	// Synchronous runs control and audio on one goroutine: the command queue
	// flips inside ComputeNextBlockOfSamples.
	Synchronous bool
	// Debug turns programmer errors into panics.
	Debug bool
	// EnvelopeAttack and EnvelopeRelease are the envelope follower times.
	EnvelopeAttack  time.Duration
	EnvelopeRelease time.Duration
	// AzimuthEpsilon in degrees; smaller moves keep the cached 3D map.
	AzimuthEpsilon float32
	// MaxCommandsPerBlock sizes the command queue up front.
	MaxCommandsPerBlock int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:          48000,
		NumOutputFrames:     256,
		NumSources:          32,
		NumWorkers:          1,
		OutputChannels:      2,
		FlushTimeout:        time.Second,
		EnvelopeAttack:      10 * time.Millisecond,
		EnvelopeRelease:     50 * time.Millisecond,
		AzimuthEpsilon:      1,
		MaxCommandsPerBlock: 1024,
	}
}

// Validate checks every field and returns the first problem.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.Wrapf(ErrInvalidConfig, "sample rate %v", c.SampleRate)
	case c.NumOutputFrames <= 0:
		return errors.Wrapf(ErrInvalidConfig, "output frames %v", c.NumOutputFrames)
	case c.NumOutputFrames%4 != 0:
		return errors.Wrapf(ErrInvalidConfig, "output frames %v not a multiple of 4", c.NumOutputFrames)
	case c.NumSources <= 0:
		return errors.Wrapf(ErrInvalidConfig, "sources %v", c.NumSources)
	case c.NumWorkers <= 0:
		return errors.Wrapf(ErrInvalidConfig, "workers %v", c.NumWorkers)
	case c.OutputChannels <= 0 || c.OutputChannels > 8:
		return errors.Wrapf(ErrInvalidConfig, "output channels %v", c.OutputChannels)
	case c.FlushTimeout <= 0:
		return errors.Wrapf(ErrInvalidConfig, "flush timeout %v", c.FlushTimeout)
	case c.EnvelopeAttack < 0 || c.EnvelopeRelease < 0:
		return errors.Wrapf(ErrInvalidConfig, "envelope %v/%v", c.EnvelopeAttack, c.EnvelopeRelease)
	case c.AzimuthEpsilon < 0:
		return errors.Wrapf(ErrInvalidConfig, "azimuth epsilon %v", c.AzimuthEpsilon)
	case c.MaxCommandsPerBlock < 0:
		return errors.Wrapf(ErrInvalidConfig, "commands per block %v", c.MaxCommandsPerBlock)
	}
	return nil
}
