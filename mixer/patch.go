// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"sync/atomic"
)

// PatchOutput is a ring buffer fed with every block a bus mixes. The audio
// goroutine writes and one goroutine at a time reads; neither side locks.
// When the reader falls behind the oldest samples are overwritten.
type PatchOutput struct {
	capacityFrames int
	gain           float32

	ring atomic.Pointer[patchRing]
	// claimed is advanced before a block is written and committed after, so
	// a reader can tell which of the samples it copied were overwritten.
	claimed   atomic.Int64
	committed atomic.Int64
	read      atomic.Int64
	lost      atomic.Int64
}

type patchRing struct {
	channels int
	samples  []atomic.Uint32
}

func newPatchOutput(capacityFrames int, gain float32) *PatchOutput {
	return &PatchOutput{capacityFrames: capacityFrames, gain: gain}
}

func (p *PatchOutput) attach(channels int) {
	p.ring.Store(&patchRing{
		channels: channels,
		samples:  make([]atomic.Uint32, p.capacityFrames*channels),
	})
}

// NumChannels is zero until the patch is attached to its bus.
func (p *PatchOutput) NumChannels() int {
	if r := p.ring.Load(); r != nil {
		return r.channels
	}
	return 0
}

// Len is the number of unread samples.
func (p *PatchOutput) Len() int {
	r := p.ring.Load()
	if r == nil {
		return 0
	}
	return int(min(p.committed.Load()-p.read.Load(), int64(len(r.samples))))
}

// Overwritten counts samples lost to a slow reader.
func (p *PatchOutput) Overwritten() int64 {
	r := p.ring.Load()
	if r == nil {
		return 0
	}
	behind := p.committed.Load() - p.read.Load() - int64(len(r.samples))
	return p.lost.Load() + max(behind, 0)
}

// push appends a block. Audio goroutine only.
func (p *PatchOutput) push(block []float32) {
	r := p.ring.Load()
	if r == nil || len(r.samples) == 0 {
		return
	}
	size := int64(len(r.samples))
	w := p.committed.Load()
	p.claimed.Store(w + int64(len(block)))
	for i, v := range block {
		r.samples[(w+int64(i))%size].Store(math.Float32bits(v * p.gain))
	}
	p.committed.Store(w + int64(len(block)))
}

// Read drains up to len(dst) samples, rounded down to whole frames, and
// returns how many were copied.
func (p *PatchOutput) Read(dst []float32) int {
	r := p.ring.Load()
	if r == nil || r.channels == 0 || len(r.samples) == 0 {
		return 0
	}
	size := int64(len(r.samples))

	w, rd := p.committed.Load(), p.read.Load()
	if w-rd > size {
		p.lost.Add(w - size - rd)
		rd = w - size
	}
	n := min(int64(len(dst)-len(dst)%r.channels), w-rd)
	for i := range n {
		dst[i] = math.Float32frombits(r.samples[(rd+i)%size].Load())
	}

	// The writer may have lapped the copy; drop what it overwrote. Blocks and
	// the ring hold whole frames, so skip does too.
	if skip := p.claimed.Load() - size - rd; skip > 0 {
		skip = min(skip, n)
		copy(dst, dst[skip:n])
		p.lost.Add(skip)
		rd += skip
		n -= skip
	}
	p.read.Store(rd + n)
	return int(n)
}
