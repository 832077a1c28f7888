// SPDX-License-Identifier: EPL-2.0

package device

import (
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// Options tunes the driver.
type Options struct {
	// BufferSize is the driver buffer; the driver picks one when zero.
	BufferSize time.Duration
	// Volume of the player in [0, 1]; zero means 1.
	Volume float64
}

// Output plays a Renderer on the default audio device.
type Output struct {
	ctx    context.Context
	oto    *oto.Context
	player *oto.Player
	reader *Reader

	mu      sync.Mutex
	playing bool
	closed  bool
}

// Open creates the driver context in the renderer's format and waits until
// the device is ready. Playback starts paused.
func Open(ctx context.Context, r Renderer, opts Options) (*Output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   r.SampleRate(),
		ChannelCount: r.NumChannels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   opts.BufferSize,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrapf(err, "audio device, rate=%v, channels=%v", op.SampleRate, op.ChannelCount)
	}
	<-ready

	o := &Output{
		ctx:    ctx,
		oto:    otoCtx,
		reader: NewReader(r),
	}
	o.player = otoCtx.NewPlayer(o.reader)
	// Keep the driver from reading far ahead of the mixer.
	o.player.SetBufferSize(r.BlockSamples() * bytesPerSample * 2)
	if opts.Volume > 0 {
		o.player.SetVolume(min(opts.Volume, 1))
	}

	logger.Tf(ctx, "audio device ready, rate=%v, channels=%v, block=%v",
		op.SampleRate, op.ChannelCount, r.BlockSamples())
	return o, nil
}

func (o *Output) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.playing {
		return
	}
	o.player.Play()
	o.playing = true
}

func (o *Output) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || !o.playing {
		return
	}
	o.player.Pause()
	o.playing = false
}

// IsPlaying reports whether the driver is still pulling audio.
func (o *Output) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.closed && o.player.IsPlaying()
}

// Blocks is the number of blocks rendered for the device.
func (o *Output) Blocks() int64 { return o.reader.Blocks() }

// Err is the error that stopped playback, if any.
func (o *Output) Err() error { return o.player.Err() }

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.playing = false
	if err := o.player.Close(); err != nil {
		return errors.Wrapf(err, "close player")
	}
	logger.Tf(o.ctx, "audio device closed, blocks=%v", o.reader.Blocks())
	return nil
}
