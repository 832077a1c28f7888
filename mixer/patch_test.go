// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"
	"sync"
	"testing"

	"github.com/ossrs/go-oryx-lib/errors"
)

func TestPatchOutput_Ring(t *testing.T) {
	t.Parallel()

	p := newPatchOutput(4, 0.5)
	if got := p.Read(make([]float32, 8)); got != 0 {
		t.Errorf("Read() before attach = %v, want 0", got)
	}
	p.attach(2)
	if p.NumChannels() != 2 {
		t.Fatalf("NumChannels() = %v, want 2", p.NumChannels())
	}

	block := make([]float32, 12)
	for i := range block {
		block[i] = float32(i)
	}
	p.push(block)

	if got := p.Len(); got != 8 {
		t.Errorf("Len() = %v, want 8", got)
	}
	if got := p.Overwritten(); got != 4 {
		t.Errorf("Overwritten() = %v, want 4", got)
	}

	// Five samples round down to two whole frames.
	dst := make([]float32, 5)
	if n := p.Read(dst); n != 4 {
		t.Fatalf("Read() = %v, want 4", n)
	}
	if want := []float32{2, 2.5, 3, 3.5}; !slices.Equal(dst[:4], want) {
		t.Errorf("Read() = %v, want %v", dst[:4], want)
	}

	p.push([]float32{100, 101})
	rest := make([]float32, 16)
	n := p.Read(rest)
	if want := []float32{4, 4.5, 5, 5.5, 50, 50.5}; !slices.Equal(rest[:n], want) {
		t.Errorf("Read() = %v, want %v", rest[:n], want)
	}
}

func TestManager_AddPatchOutput(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	if _, err := m.AddPatchOutput(1, 0, 1); errors.Cause(err) != ErrInvalidArgument {
		t.Errorf("AddPatchOutput(capacity 0) error = %v, want ErrInvalidArgument", err)
	}

	// No such bus: the patch never attaches.
	p, err := m.AddPatchOutput(42, 16, 1)
	if err != nil {
		t.Fatalf("AddPatchOutput() error = %v", err)
	}
	m.ComputeNextBlockOfSamples()
	if p.NumChannels() != 0 || p.Len() != 0 {
		t.Errorf("patch of a missing bus attached with %v channels", p.NumChannels())
	}

	_ = m.StartAudioBus(2, 1, false)
	p, _ = m.AddPatchOutput(2, testFrames, 2)
	startSource(t, m, InitParams{
		Provider: constant(0.25),
		Volume:   1,
		BusSends: []BusSend{{Bus: 2, Level: 1}},
	})
	m.ComputeNextBlockOfSamples()
	m.ComputeNextBlockOfSamples()

	out := make([]float32, testFrames)
	if n := p.Read(out); n != testFrames {
		t.Fatalf("Read() = %v, want %v", n, testFrames)
	}
	assertAll(t, "patch", out, 0.5)
	if got := p.Overwritten(); got != testFrames {
		t.Errorf("Overwritten() = %v, want %v", got, testFrames)
	}
}

func TestPatchOutput_ConcurrentReader(t *testing.T) {
	t.Parallel()

	const (
		channels = 2
		frames   = 32
		blocks   = 2000
	)

	p := newPatchOutput(3*frames, 1)
	p.attach(channels)

	// Every sample of frame n holds n, so a torn or stale frame shows up as
	// mismatched channels or a frame number that goes backwards.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		block := make([]float32, frames*channels)
		for b := range blocks {
			for f := range frames {
				for c := range channels {
					block[f*channels+c] = float32(b*frames + f)
				}
			}
			p.push(block)
		}
	}()

	last := float32(-1)
	var got int64
	dst := make([]float32, 7*channels+1)
	check := func(n int) {
		for f := 0; f < n/channels; f++ {
			v := dst[f*channels]
			if dst[f*channels+1] != v {
				t.Fatalf("torn frame %v: %v", v, dst[f*channels:f*channels+channels])
			}
			if v <= last {
				t.Fatalf("frame %v read after %v", v, last)
			}
			last = v
		}
		got += int64(n)
	}
	for done := false; !done; {
		done = p.claimed.Load() == blocks*frames*channels
		if n := p.Read(dst); n%channels != 0 {
			t.Fatalf("Read() = %v, not whole frames", n)
		} else {
			check(n)
		}
	}
	wg.Wait()
	for n := p.Read(dst); n > 0; n = p.Read(dst) {
		check(n)
	}

	if last != blocks*frames-1 {
		t.Errorf("last frame read = %v, want %v", last, blocks*frames-1)
	}
	if total := got + p.Overwritten(); total != blocks*frames*channels {
		t.Errorf("read %v + overwritten %v = %v, want %v", got, p.Overwritten(), total, blocks*frames*channels)
	}
}
