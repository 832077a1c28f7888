// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
)

func TestEventRing_DropsWhenFull(t *testing.T) {
	t.Parallel()

	r := newEventRing(3)
	for i := range 5 {
		r.push(event{kind: eventDone, id: SourceID(i)})
	}
	if got := r.dropped.Load(); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}

	got := r.drainInto(nil)
	if len(got) != 3 || got[0].id != 0 || got[2].id != 2 {
		t.Fatalf("drainInto() = %v, want ids 0 to 2", got)
	}
	r.push(event{kind: eventLooped, id: 9})
	if got := r.drainInto(nil); len(got) != 1 || got[0].id != 9 {
		t.Errorf("drainInto() after wrap = %v", got)
	}
}

func TestEventRing_ConcurrentDrain(t *testing.T) {
	t.Parallel()

	const total = 10000
	r := newEventRing(16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range total {
			for {
				before := r.dropped.Load()
				r.push(event{kind: eventUnderrun, id: SourceID(i)})
				if r.dropped.Load() == before {
					break
				}
			}
		}
	}()

	var got []event
	for len(got) < total {
		got = r.drainInto(got)
	}
	wg.Wait()

	for i, e := range got {
		if e.id != SourceID(i) {
			t.Fatalf("event %v has id %v", i, e.id)
		}
	}
}

func TestRender_WorkerEventsReachObservers(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, func(c *Config) { c.NumWorkers = 4 })
	t.Cleanup(m.Shutdown)
	obs := &recordingObserver{}
	m.AddObserver(obs)

	for k := range m.cfg.NumSources {
		p := audiotest.NewConstantProvider(testRate, 1, 16, 16, true, 1)
		if k%2 == 1 {
			p.SetStarved(true)
		}
		startSource(t, m, InitParams{Provider: p, Volume: 1})
	}
	m.ComputeNextBlockOfSamples()
	m.Update()

	_, looped, underrun := obs.counts()
	if want := m.cfg.NumSources / 2; underrun != want {
		t.Errorf("OnBufferUnderrun called %v times, want %v", underrun, want)
	}
	// Each looping source wraps at least three times in a block.
	if want := m.cfg.NumSources / 2 * 3; looped < want {
		t.Errorf("OnSourceLooped called %v times, want at least %v", looped, want)
	}
}
