// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync/atomic"
)

type eventKind uint8

const (
	eventDone eventKind = iota
	eventLooped
	eventUnderrun
)

type event struct {
	kind eventKind
	id   SourceID
}

// eventRing carries events from the audio goroutine to Update. It has one
// producer, publish, and one consumer, Update, and never grows: events past
// capacity are dropped and counted.
type eventRing struct {
	buf     []event
	head    atomic.Uint64 // next to read, owned by the consumer
	tail    atomic.Uint64 // next to write, owned by the producer
	dropped atomic.Int64
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{buf: make([]event, max(capacity, 1))}
}

func (r *eventRing) push(e event) {
	t := r.tail.Load()
	if t-r.head.Load() == uint64(len(r.buf)) {
		r.dropped.Add(1)
		return
	}
	r.buf[t%uint64(len(r.buf))] = e
	r.tail.Store(t + 1)
}

// drainInto appends every queued event to dst.
func (r *eventRing) drainInto(dst []event) []event {
	h, t := r.head.Load(), r.tail.Load()
	for ; h < t; h++ {
		dst = append(dst, r.buf[h%uint64(len(r.buf))])
	}
	r.head.Store(h)
	return dst
}

func (m *Manager) dispatchEvents() {
	m.eventScratch = m.events.drainInto(m.eventScratch[:0])
	if len(m.eventScratch) == 0 {
		return
	}

	m.observerMu.Lock()
	observers := m.observers
	m.observerMu.Unlock()

	for _, e := range m.eventScratch {
		for _, o := range observers {
			switch e.kind {
			case eventDone:
				o.OnSourceDone(e.id)
			case eventLooped:
				o.OnSourceLooped(e.id)
			case eventUnderrun:
				o.OnBufferUnderrun(e.id)
			}
		}
	}
}
