// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync"
	"sync/atomic"
)

type opcode uint8

const (
	opNone opcode = iota
	opInit
	opPlay
	opPlayAt
	opPause
	opStop
	opStopFade
	opRelease
	opSetPitch
	opSetVolume
	opSetDistanceAttenuation
	opSetLPF
	opSetHPF
	opSetSpatialization
	opSetChannelMap
	opRefreshSpeakerMap
	opSetSubmixSend
	opClearSubmixSend
	opSetBusSend
	opSetEffectChain
	opStartBus
	opStopBus
	opAddPatch
	opFunc
)

var opNames = [...]string{
	opNone:                   "none",
	opInit:                   "init",
	opPlay:                   "play",
	opPlayAt:                 "play-at",
	opPause:                  "pause",
	opStop:                   "stop",
	opStopFade:               "stop-fade",
	opRelease:                "release",
	opSetPitch:               "set-pitch",
	opSetVolume:              "set-volume",
	opSetDistanceAttenuation: "set-distance-attenuation",
	opSetLPF:                 "set-lpf",
	opSetHPF:                 "set-hpf",
	opSetSpatialization:      "set-spatialization",
	opSetChannelMap:          "set-channel-map",
	opRefreshSpeakerMap:      "refresh-speaker-map",
	opSetSubmixSend:          "set-submix-send",
	opClearSubmixSend:        "clear-submix-send",
	opSetBusSend:             "set-bus-send",
	opSetEffectChain:         "set-effect-chain",
	opStartBus:               "start-bus",
	opStopBus:                "stop-bus",
	opAddPatch:               "add-patch",
	opFunc:                   "func",
}

func (o opcode) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// command is one deferred mutation. Scalar arguments travel inline; only
// the rare structural commands carry a payload.
type command struct {
	op  opcode
	id  SourceID
	gen uint32
	bus BusID
	f   [2]float32
	i   [2]int64
	// spatial rides inline so moving a source does not allocate.
	spatial SpatializationParams
	// payload is *InitParams, []float32, SubmixTarget, *effectChain or
	// *PatchOutput depending on op.
	payload any
	fn      func()
}

// commandQueue hands commands from the control goroutine to the audio
// goroutine. The control side appends to buffers[write]; the audio side
// executes buffers[1-write]. The sides flip only after the audio side has
// drained its half, so neither goroutine touches the other's slice.
type commandQueue struct {
	mu      sync.Mutex
	buffers [2][]command
	write   atomic.Int32
	drained atomic.Bool
	// signal wakes Flush when a half is drained.
	signal chan struct{}
}

func newCommandQueue(capacity int) *commandQueue {
	q := &commandQueue{signal: make(chan struct{}, 1)}
	q.buffers[0] = make([]command, 0, capacity)
	q.buffers[1] = make([]command, 0, capacity)
	q.drained.Store(true)
	return q
}

// enqueue is called on the control goroutine.
func (q *commandQueue) enqueue(c command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	w := q.write.Load()
	q.buffers[w] = append(q.buffers[w], c)
}

// pending is the number of commands waiting for the next flip.
func (q *commandQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.buffers[q.write.Load()])
}

// flip hands the control half to the audio goroutine. It does nothing until
// the previous half has been drained, or when there is nothing to hand over.
func (q *commandQueue) flip() bool {
	if !q.drained.Load() {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	w := q.write.Load()
	if len(q.buffers[w]) == 0 {
		return false
	}
	q.write.Store(1 - w)
	q.drained.Store(false)
	return true
}

// drain executes the audio half in order and marks it drained. The caller
// must be the only goroutine rendering.
func (q *commandQueue) drain(apply func(c *command)) int {
	if q.drained.Load() {
		return 0
	}

	r := 1 - q.write.Load()
	cmds := q.buffers[r]
	for i := range cmds {
		apply(&cmds[i])
		cmds[i] = command{}
	}
	q.buffers[r] = cmds[:0]
	q.drained.Store(true)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return len(cmds)
}
