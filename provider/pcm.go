// SPDX-License-Identifier: EPL-2.0

package provider

import (
	"io"

	"github.com/ossrs/go-oryx-lib/errors"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/mixer"
)

// DefaultChunkFrames is the chunk size used when none is given.
const DefaultChunkFrames = 4096

var (
	_ mixer.BufferProvider = (*PCM)(nil)
	_ mixer.FrameCounter   = (*PCM)(nil)
)

// PCM serves interleaved samples held in memory. Chunks are views into the
// backing slice, which must not change while the provider is in use.
type PCM struct {
	samples     []float32
	channels    int
	sampleRate  int
	chunkFrames int
	loop        bool

	pos    int
	served bool
	closed bool
}

// NewPCM serves samples, wrapping to the start when loop is set.
func NewPCM(samples []float32, channels, sampleRate int, loop bool) (*PCM, error) {
	switch {
	case channels <= 0:
		return nil, ErrNoChannels
	case sampleRate <= 0:
		return nil, errors.Wrapf(ErrInvalidRate, "rate %v", sampleRate)
	case len(samples)%channels != 0:
		return nil, errors.Wrapf(ErrPartialFrame, "%v samples, %v channels", len(samples), channels)
	}
	return &PCM{
		samples:     samples,
		channels:    channels,
		sampleRate:  sampleRate,
		chunkFrames: DefaultChunkFrames,
		loop:        loop,
	}, nil
}

// Load decodes src to the end at dstRate and closes it.
func Load(src audio.Source, dstRate int, loop bool) (*PCM, error) {
	in, err := resampled(src, dstRate)
	if err != nil {
		src.Close()
		return nil, err
	}
	defer in.Close()

	var samples []float32
	buf := make([]float32, DefaultChunkFrames*in.Channels())
	for {
		n, err := in.ReadSamples(buf)
		samples = append(samples, buf[:n]...)
		if errors.Cause(err) == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode")
		}
		if n == 0 {
			break
		}
	}
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	return NewPCM(samples, in.Channels(), dstRate, loop)
}

// SetChunkFrames changes how many frames each chunk holds.
func (p *PCM) SetChunkFrames(n int) {
	if n > 0 {
		p.chunkFrames = n
	}
}

func (p *PCM) NumChannels() int { return p.channels }
func (p *PCM) SampleRate() int  { return p.sampleRate }

// Samples is the backing slice.
func (p *PCM) Samples() []float32 { return p.samples }

func (p *PCM) TotalFrames() int64 { return int64(len(p.samples) / p.channels) }

func (p *PCM) NumBuffersQueued() int {
	size := p.chunkFrames * p.channels
	if len(p.samples) == 0 {
		return 0
	}
	if p.loop {
		return max((len(p.samples)+size-1)/size, 1)
	}
	return (len(p.samples) - p.pos + size - 1) / size
}

func (p *PCM) NextBuffer() ([]float32, bool, bool) {
	if p.pos >= len(p.samples) {
		if !p.loop || len(p.samples) == 0 {
			return nil, false, true
		}
		p.pos = 0
	}
	looped := p.pos == 0 && p.served
	end := min(p.pos+p.chunkFrames*p.channels, len(p.samples))
	chunk := p.samples[p.pos:end]
	p.pos = end
	p.served = true
	return chunk, looped, !p.loop && end == len(p.samples)
}

func (p *PCM) OnBufferEnd()          {}
func (p *PCM) IsAsyncTaskDone() bool { return true }

func (p *PCM) Close() error {
	p.closed = true
	return nil
}

// resampled wraps src in a resampler unless it already runs at dstRate.
func resampled(src audio.Source, dstRate int) (audio.Source, error) {
	if dstRate <= 0 {
		return nil, errors.Wrapf(ErrInvalidRate, "rate %v", dstRate)
	}
	if src.Channels() <= 0 {
		return nil, ErrNoChannels
	}
	if src.SampleRate() == dstRate {
		return src, nil
	}
	r, err := audio.NewResampler(src, dstRate)
	if err != nil {
		return nil, errors.Wrapf(err, "resample %v to %v", src.SampleRate(), dstRate)
	}
	return r, nil
}
