// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// workerPool splits the source range into contiguous partitions, one per
// worker. A source is only ever touched by the worker owning its partition.
// The rendering goroutine owns the first partition; the others belong to
// long-lived goroutines woken once per pass.
type workerPool struct {
	ranges  [][2]int
	fn      func(lo, hi int, busPass bool)
	start   []chan bool
	done    chan struct{}
	group   errgroup.Group
	stopped atomic.Bool
}

func newWorkerPool(numSources, numWorkers int, fn func(lo, hi int, busPass bool)) *workerPool {
	numWorkers = max(min(numWorkers, numSources), 1)
	w := &workerPool{fn: fn}
	per := numSources / numWorkers
	extra := numSources % numWorkers
	lo := 0
	for i := range numWorkers {
		hi := lo + per
		if i < extra {
			hi++
		}
		w.ranges = append(w.ranges, [2]int{lo, hi})
		lo = hi
	}

	w.done = make(chan struct{}, len(w.ranges)-1)
	for _, r := range w.ranges[1:] {
		ch := make(chan bool)
		w.start = append(w.start, ch)
		w.group.Go(func() error {
			for busPass := range ch {
				fn(r[0], r[1], busPass)
				w.done <- struct{}{}
			}
			return nil
		})
	}
	return w
}

// run renders one pass over every partition and waits for all of them.
func (w *workerPool) run(busPass bool) {
	if len(w.start) == 0 || w.stopped.Load() {
		for _, r := range w.ranges {
			w.fn(r[0], r[1], busPass)
		}
		return
	}

	for _, ch := range w.start {
		ch <- busPass
	}
	w.fn(w.ranges[0][0], w.ranges[0][1], busPass)
	for range w.start {
		<-w.done
	}
}

// stop ends the worker goroutines. Later passes run on the caller. No pass
// may be in flight; Manager.Shutdown holds the render lock for this.
func (w *workerPool) stop() {
	if w.stopped.Swap(true) {
		return
	}
	for _, ch := range w.start {
		close(ch)
	}
	_ = w.group.Wait()
}
