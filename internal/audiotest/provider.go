// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
)

// Provider is a decode-buffer provider double that serves pre-built chunks
// of interleaved PCM. Every chunk counts as already decoded.
type Provider struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	chunks     [][]float32
	next       int
	served     int
	loop       bool
	starved    bool
	asyncBusy  bool
	bufferEnds int
	closed     int
}

// NewProvider serves chunks in order, wrapping when loop is set.
func NewProvider(sampleRate, channels int, chunks [][]float32, loop bool) *Provider {
	return &Provider{
		sampleRate: sampleRate,
		channels:   channels,
		chunks:     chunks,
		loop:       loop,
	}
}

// NewFuncProvider renders totalFrames frames from fn, cut into chunks of
// chunkFrames.
func NewFuncProvider(sampleRate, channels, totalFrames, chunkFrames int, loop bool, fn func(frame, channel int) float32) *Provider {
	var chunks [][]float32
	for start := 0; start < totalFrames; start += chunkFrames {
		n := min(chunkFrames, totalFrames-start)
		chunk := make([]float32, n*channels)
		for f := range n {
			for c := range channels {
				chunk[f*channels+c] = fn(start+f, c)
			}
		}
		chunks = append(chunks, chunk)
	}
	return NewProvider(sampleRate, channels, chunks, loop)
}

// NewConstantProvider serves totalFrames frames of value.
func NewConstantProvider(sampleRate, channels, totalFrames, chunkFrames int, loop bool, value float32) *Provider {
	return NewFuncProvider(sampleRate, channels, totalFrames, chunkFrames, loop, func(int, int) float32 {
		return value
	})
}

func (p *Provider) NumChannels() int { return p.channels }
func (p *Provider) SampleRate() int  { return p.sampleRate }

func (p *Provider) NumBuffersQueued() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.starved || len(p.chunks) == 0 {
		return 0
	}
	if p.loop {
		return len(p.chunks)
	}
	return len(p.chunks) - p.next
}

func (p *Provider) NextBuffer() ([]float32, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.chunks) == 0 || (!p.loop && p.next >= len(p.chunks)) {
		return nil, false, true
	}
	looped := p.next == 0 && p.served > 0
	chunk := p.chunks[p.next]
	p.next++
	p.served++
	final := !p.loop && p.next == len(p.chunks)
	if p.loop && p.next == len(p.chunks) {
		p.next = 0
	}
	return chunk, looped, final
}

func (p *Provider) OnBufferEnd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bufferEnds++
}

func (p *Provider) IsAsyncTaskDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.asyncBusy
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// SetStarved makes NumBuffersQueued report nothing ready, as a decoder that
// fell behind would.
func (p *Provider) SetStarved(starved bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starved = starved
}

// SetAsyncBusy controls IsAsyncTaskDone.
func (p *Provider) SetAsyncBusy(busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asyncBusy = busy
}

// BufferEnds is the number of OnBufferEnd calls.
func (p *Provider) BufferEnds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufferEnds
}

// CloseCount is the number of Close calls.
func (p *Provider) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
