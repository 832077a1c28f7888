// SPDX-License-Identifier: EPL-2.0

package provider

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/mixer"
)

const defaultNumChunks = 3

var _ mixer.BufferProvider = (*Stream)(nil)

// OpenFunc opens the stream from its start. Looping streams call it again at
// every wrap.
type OpenFunc func() (audio.Source, error)

// StreamOptions configures a Stream.
type StreamOptions struct {
	// SampleRate the mixer runs at. The source is resampled to it.
	SampleRate int
	// ChunkFrames per decoded chunk; DefaultChunkFrames when zero.
	ChunkFrames int
	// NumChunks decoded ahead, at least two; three when zero.
	NumChunks int
	Loop      bool
}

type chunk struct {
	samples []float32
	looped  bool
	final   bool
}

// Stream decodes a source into a small pool of chunks on a background
// goroutine. The first chunk is decoded before NewStream returns, so a source
// can start playing at once.
type Stream struct {
	ctx  context.Context
	open OpenFunc
	opts StreamOptions

	src        audio.Source
	channels   int
	pendingEOF bool
	looped     bool
	// samples read since the source was last opened
	passRead int

	free    chan []float32
	ready   chan chunk
	current []float32
	holding bool

	cancel context.CancelFunc
	group  *errgroup.Group
	busy   atomic.Bool
	closed bool
}

// NewStream opens the source and decodes its first chunk.
func NewStream(ctx context.Context, open OpenFunc, opts StreamOptions) (*Stream, error) {
	if opts.ChunkFrames <= 0 {
		opts.ChunkFrames = DefaultChunkFrames
	}
	if opts.NumChunks <= 0 {
		opts.NumChunks = defaultNumChunks
	}
	opts.NumChunks = max(opts.NumChunks, 2)

	s := &Stream{
		ctx:   ctx,
		open:  open,
		opts:  opts,
		free:  make(chan []float32, opts.NumChunks),
		ready: make(chan chunk, opts.NumChunks),
	}
	if err := s.reopen(); err != nil {
		return nil, err
	}
	s.channels = s.src.Channels()
	for range opts.NumChunks {
		s.free <- make([]float32, opts.ChunkFrames*s.channels)
	}

	first, err := s.fill(<-s.free)
	if err != nil {
		s.src.Close()
		return nil, errors.Wrapf(err, "decode first chunk")
	}
	s.ready <- first
	logger.Tf(ctx, "stream open, rate=%v, channels=%v, chunk=%v, chunks=%v, loop=%v",
		opts.SampleRate, s.channels, opts.ChunkFrames, opts.NumChunks, opts.Loop)

	decodeCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.group, decodeCtx = errgroup.WithContext(decodeCtx)
	if !first.final {
		s.group.Go(func() error {
			return s.decode(decodeCtx)
		})
	}
	return s, nil
}

// OpenFile streams the file at path, choosing the decoder by extension.
func OpenFile(ctx context.Context, path string, opts StreamOptions) (*Stream, error) {
	return NewStream(ctx, func() (audio.Source, error) {
		return formats.Open(path)
	}, opts)
}

func (s *Stream) reopen() error {
	src, err := s.open()
	if err != nil {
		return errors.Wrapf(err, "open")
	}
	in, err := resampled(src, s.opts.SampleRate)
	if err != nil {
		src.Close()
		return err
	}
	if s.channels != 0 && in.Channels() != s.channels {
		in.Close()
		return errors.Wrapf(ErrNoChannels, "reopened with %v channels, want %v", in.Channels(), s.channels)
	}
	s.src = in
	s.passRead = 0
	return nil
}

// fill decodes into buf up to the end of the stream. At the end a looping
// stream reopens the source and the next chunk reports the wrap.
func (s *Stream) fill(buf []float32) (chunk, error) {
	buf = buf[:cap(buf)]
	if s.pendingEOF {
		s.pendingEOF = false
		if err := s.src.Close(); err != nil {
			logger.Wf(s.ctx, "close source: %v", err)
		}
		s.src = nil
		if err := s.reopen(); err != nil {
			return chunk{samples: buf[:0], final: true}, err
		}
		s.looped = true
	}

	c := chunk{looped: s.looped}
	s.looped = false
	n := 0
	for n < len(buf) {
		k, err := s.src.ReadSamples(buf[n:])
		n += k
		s.passRead += k
		if errors.Cause(err) == io.EOF {
			if s.opts.Loop && s.passRead > 0 {
				s.pendingEOF = true
			} else {
				c.final = true
			}
			break
		}
		if err != nil {
			c.samples, c.final = buf[:n], true
			return c, err
		}
		if k == 0 {
			break
		}
	}
	c.samples = buf[:n-n%s.channels]
	return c, nil
}

func (s *Stream) decode(ctx context.Context) error {
	for {
		var buf []float32
		select {
		case <-ctx.Done():
			return nil
		case buf = <-s.free:
		}

		s.busy.Store(true)
		c, err := s.fill(buf)
		s.busy.Store(false)
		// The pool holds NumChunks buffers and ready has room for all of them.
		s.ready <- c
		if err != nil {
			logger.Wf(s.ctx, "stream decode: %v", err)
			return err
		}
		if c.final {
			return nil
		}
	}
}

func (s *Stream) NumChannels() int { return s.channels }
func (s *Stream) SampleRate() int  { return s.opts.SampleRate }

func (s *Stream) NumBuffersQueued() int { return len(s.ready) }

func (s *Stream) NextBuffer() ([]float32, bool, bool) {
	select {
	case c := <-s.ready:
		s.current = c.samples
		s.holding = true
		return c.samples, c.looped, c.final
	default:
		return nil, false, false
	}
}

func (s *Stream) OnBufferEnd() {
	if !s.holding {
		return
	}
	s.holding = false
	s.free <- s.current
	s.current = nil
}

// IsAsyncTaskDone reports whether no chunk is being decoded right now.
func (s *Stream) IsAsyncTaskDone() bool { return !s.busy.Load() }

// Close stops the decoder and closes the source. It returns the error that
// stopped decoding, if any.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.cancel()
	err := s.group.Wait()
	if s.src == nil {
		return err
	}
	if cerr := s.src.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "close source")
	}
	return err
}
