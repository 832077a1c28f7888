// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"sync/atomic"

	"github.com/ik5/audmix/dsp"
)

const (
	minPitch = 1.0 / 16
	maxPitch = 16.0

	// tailsThreshold is -96 dB.
	tailsThreshold = 1.58489e-5
)

// channelMap is a cached inCh x outCh gain matrix.
type channelMap struct {
	inChannels  int
	outChannels int
	gains       []float32
	azimuth     float32
	valid       bool
	// explicit maps come from SetChannelMap and are never recomputed.
	explicit bool
}

// busSendEntry remembers a bus send so release can undo it.
type busSendEntry struct {
	bus BusID
	typ BusSendType
}

// effectChain is the payload of opSetEffectChain.
type effectChain struct {
	presetID uint32
	effects  []SourceEffect
}

// sourceInfo is the audio goroutine's state for one slot.
type sourceInfo struct {
	id          SourceID
	generation  uint32
	componentID uint64
	provider    BufferProvider
	numChannels int

	// frame fetch
	chunk       []float32
	chunkPos    int
	chunkFinal  bool
	haveChunk   bool
	curFrame    []float32
	nextFrame   []float32
	curValid    bool
	nextValid   bool
	alpha       float32
	ended       bool
	underrunHit bool

	// events seen by the worker, queued by publish
	pendingLoops    int
	pendingUnderrun bool

	framesPlayed int64
	startFrame   int64
	totalFrames  int64

	initialized           bool
	playing               bool
	paused                bool
	pausedForQuantization bool
	stopping              bool
	done                  bool
	lastBuffer            bool
	hasOutput             bool
	doneNotified          bool

	pitch        dsp.Param
	pitchTarget  float32
	volumeStart  float32
	volumeDest   float32
	fadeFrames   int
	fadePos      int
	distStart    float32
	distDest     float32
	lpfFrequency float32
	hpfFrequency float32
	lpf          dsp.LowPass
	hpf          dsp.HighPass
	envelope     dsp.EnvelopeFollower

	is3D           bool
	spatial        SpatializationParams
	channelMaps    []channelMap
	useHRTF        bool
	useOcclusion   bool
	useReverb      bool
	useModulation  bool
	modVolume      float32
	effects        []SourceEffect
	effectPresetID uint32
	tailsDone      bool

	submixSends []SubmixSend
	busSends    []busSendEntry
	isBus       bool
	busID       BusID
	busDuration int64
	busMatrix   []float32

	// sourceBuf is the working buffer; the others are snapshots of it.
	sourceBuf      []float32
	preEffectBuf   []float32
	preAttenBuf    []float32
	spatialBuf     []float32
	reverbBuf      []float32
	scratch        []float32
	outputChannels int
}

// sourceStatus is what the audio goroutine publishes for the control
// goroutine at the end of each block.
type sourceStatus struct {
	busy            atomic.Bool
	done            atomic.Bool
	tailsDone       atomic.Bool
	playing         atomic.Bool
	needsSpeakerMap atomic.Bool
	framesPlayed    atomic.Int64
	envelope        atomic.Uint32
}

func (st *sourceStatus) setEnvelope(v float32) { st.envelope.Store(math.Float32bits(v)) }
func (st *sourceStatus) envelopeValue() float32 {
	return math.Float32frombits(st.envelope.Load())
}

func (st *sourceStatus) reset() {
	st.done.Store(false)
	st.tailsDone.Store(false)
	st.playing.Store(false)
	st.needsSpeakerMap.Store(false)
	st.framesPlayed.Store(0)
	st.envelope.Store(0)
}

// sourceControl is the control goroutine's shadow of a slot.
type sourceControl struct {
	generation     uint32
	releasePending bool
	initialized    bool
	numChannels    int
	usingHRTF      bool
}

// reset clears everything but the id and the buffers, which are reused by
// the next source in this slot.
func (s *sourceInfo) reset() {
	*s = sourceInfo{
		id:           s.id,
		curFrame:     s.curFrame[:0],
		nextFrame:    s.nextFrame[:0],
		sourceBuf:    s.sourceBuf[:0],
		preEffectBuf: s.preEffectBuf[:0],
		preAttenBuf:  s.preAttenBuf[:0],
		spatialBuf:   s.spatialBuf[:0],
		reverbBuf:    s.reverbBuf[:0],
		scratch:      s.scratch[:0],
		channelMaps:  s.channelMaps[:0],
		lpf:          s.lpf,
		hpf:          s.hpf,
	}
}

// resize returns buf with length n, reusing its storage when possible.
func resize(buf []float32, n int) []float32 {
	if cap(buf) >= n {
		buf = buf[:n]
		clear(buf)
		return buf
	}
	return make([]float32, n)
}

// channelMap returns the cached map for inCh x outCh, adding an invalid
// one on first use.
func (s *sourceInfo) channelMap(inCh, outCh int) *channelMap {
	for i := range s.channelMaps {
		cm := &s.channelMaps[i]
		if cm.inChannels == inCh && cm.outChannels == outCh {
			return cm
		}
	}
	if len(s.channelMaps) < cap(s.channelMaps) {
		// reuse storage left by a previous source in this slot
		s.channelMaps = s.channelMaps[:len(s.channelMaps)+1]
		cm := &s.channelMaps[len(s.channelMaps)-1]
		gains := cm.gains
		if cap(gains) < inCh*outCh {
			gains = make([]float32, inCh*outCh)
		}
		*cm = channelMap{inChannels: inCh, outChannels: outCh, gains: gains[:inCh*outCh]}
		return cm
	}
	s.channelMaps = append(s.channelMaps, channelMap{
		inChannels:  inCh,
		outChannels: outCh,
		gains:       make([]float32, inCh*outCh),
	})
	return &s.channelMaps[len(s.channelMaps)-1]
}

func clampPitch(p float32) float32 {
	return min(max(p, minPitch), maxPitch)
}
