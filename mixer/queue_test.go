// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCommandQueue_FlipWaitsForDrain(t *testing.T) {
	t.Parallel()

	q := newCommandQueue(4)
	if q.flip() {
		t.Fatal("flip() of an empty queue = true, want false")
	}

	q.enqueue(command{op: opPlay, id: 1})
	if !q.flip() {
		t.Fatal("flip() = false, want true")
	}

	// The audio half is not drained yet, so new commands stay put.
	q.enqueue(command{op: opPause, id: 2})
	if q.flip() {
		t.Fatal("flip() before drain = true, want false")
	}
	if got := q.pending(); got != 1 {
		t.Errorf("pending() = %v, want 1", got)
	}

	var ran []opcode
	if n := q.drain(func(c *command) { ran = append(ran, c.op) }); n != 1 {
		t.Errorf("drain() = %v, want 1", n)
	}
	if n := q.drain(func(c *command) { ran = append(ran, c.op) }); n != 0 {
		t.Errorf("second drain() = %v, want 0", n)
	}
	if !q.flip() {
		t.Fatal("flip() after drain = false, want true")
	}
	q.drain(func(c *command) { ran = append(ran, c.op) })

	if len(ran) != 2 || ran[0] != opPlay || ran[1] != opPause {
		t.Errorf("ran %v, want [play pause]", ran)
	}
}

func TestCommandQueue_DrainSignals(t *testing.T) {
	t.Parallel()

	q := newCommandQueue(0)
	q.enqueue(command{op: opFunc})
	q.flip()
	q.drain(func(*command) {})

	select {
	case <-q.signal:
	default:
		t.Error("drain() did not signal")
	}
}

func TestOpcode_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op   opcode
		want string
	}{
		{opInit, "init"},
		{opStopFade, "stop-fade"},
		{opSetChannelMap, "set-channel-map"},
		{opFunc, "func"},
		{opcode(200), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("opcode(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestManager_CommandsKeepOrderAcrossFlips(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(c *Config) {
		c.Synchronous = false
		c.FlushTimeout = 10 * time.Millisecond
	})

	var got []int
	next := 0
	for block := 0; block < 20; block++ {
		for range 3 {
			n := next
			next++
			m.Enqueue(func() { got = append(got, n) })
		}
		// Skipped ticks leave commands queued for a later flip.
		if block%3 == 0 {
			m.Update()
		}
		m.ComputeNextBlockOfSamples()
	}
	m.Flush()

	if len(got) != next {
		t.Fatalf("ran %v commands, want %v", len(got), next)
	}
	for i, n := range got {
		if n != i {
			t.Fatalf("command %v ran at position %v", n, i)
		}
	}
}

func TestManager_CommandsKeepOrderWithAudioGoroutine(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(c *Config) {
		c.Synchronous = false
		c.FlushTimeout = 5 * time.Second
	})

	var stop atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			m.ComputeNextBlockOfSamples()
			time.Sleep(50 * time.Microsecond)
		}
	}()

	var got []int
	const total = 1000
	for i := range total {
		m.Enqueue(func() { got = append(got, i) })
		if i%10 == 0 {
			m.Update()
		}
	}
	m.Flush()
	stop.Store(true)
	wg.Wait()

	if len(got) != total {
		t.Fatalf("ran %v commands, want %v", len(got), total)
	}
	for i, n := range got {
		if n != i {
			t.Fatalf("command %v ran at position %v", n, i)
		}
	}
}

func TestManager_FlushForcesDrainOnTimeout(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(c *Config) {
		c.Synchronous = false
		c.FlushTimeout = 10 * time.Millisecond
	})

	ran := false
	m.Enqueue(func() { ran = true })
	m.Flush()

	if !ran {
		t.Error("command did not run after Flush()")
	}
	if got := m.Stats().ForcedDrains; got != 1 {
		t.Errorf("ForcedDrains = %v, want 1", got)
	}
}

func TestManager_FlushSynchronous(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)

	ran := false
	m.Enqueue(func() { ran = true })
	m.Flush()

	if !ran {
		t.Error("command did not run after Flush()")
	}
	if got := m.Stats().ForcedDrains; got != 0 {
		t.Errorf("ForcedDrains = %v, want 0", got)
	}
}
