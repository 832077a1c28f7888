// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"
	"sync/atomic"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
)

func TestWorkerPool_Partitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sources, workers int
		want             [][2]int
	}{
		{10, 1, [][2]int{{0, 10}}},
		{10, 3, [][2]int{{0, 4}, {4, 7}, {7, 10}}},
		{2, 8, [][2]int{{0, 1}, {1, 2}}},
		{8, 4, [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
	}
	for _, tt := range tests {
		w := newWorkerPool(tt.sources, tt.workers, func(int, int, bool) {})
		t.Cleanup(w.stop)
		if !slices.Equal(w.ranges, tt.want) {
			t.Errorf("newWorkerPool(%v, %v) = %v, want %v", tt.sources, tt.workers, w.ranges, tt.want)
		}
	}
}

func TestWorkerPool_RunVisitsEverySourceOnce(t *testing.T) {
	t.Parallel()

	const n = 37
	var visits [n]atomic.Int32
	var busVisits atomic.Int32
	w := newWorkerPool(n, 5, func(lo, hi int, busPass bool) {
		for i := lo; i < hi; i++ {
			if busPass {
				busVisits.Add(1)
				continue
			}
			visits[i].Add(1)
		}
	})
	t.Cleanup(w.stop)

	for range 3 {
		w.run(false)
	}
	w.run(true)
	for i := range visits {
		if got := visits[i].Load(); got != 3 {
			t.Errorf("source %v visited %v times, want 3", i, got)
		}
	}
	if got := busVisits.Load(); got != n {
		t.Errorf("bus pass visited %v sources, want %v", got, n)
	}
}

func TestWorkerPool_RunAfterStop(t *testing.T) {
	t.Parallel()

	var visits atomic.Int32
	w := newWorkerPool(8, 4, func(lo, hi int, _ bool) {
		visits.Add(int32(hi - lo))
	})
	w.stop()
	w.stop()

	w.run(false)
	if got := visits.Load(); got != 8 {
		t.Errorf("visits after stop = %v, want 8", got)
	}
}

func TestRender_WorkersMatchInline(t *testing.T) {
	t.Parallel()

	render := func(workers int) []float32 {
		m := newTestManager(t, func(c *Config) { c.NumWorkers = workers })
		t.Cleanup(m.Shutdown)
		sub := NewSubmix(m, 2)
		for k := range m.cfg.NumSources {
			startSource(t, m, InitParams{
				Provider:    audiotest.NewFuncProvider(testRate, 2, 8*testFrames, testFrames, false, signal(k)),
				Volume:      1,
				BusSends:    []BusSend{{Bus: 1, Level: 0.5, BusChannels: 2}},
				SubmixSends: []SubmixSend{{Submix: sub, Level: 1}},
			})
		}
		var out []float32
		for range 4 {
			out = append(out, renderInto(m, sub)...)
		}
		return out
	}

	inline, parallel := render(1), render(4)
	if !slices.Equal(inline, parallel) {
		t.Error("rendering with 4 workers differs from rendering inline")
	}
}
