// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/ik5/audmix/dsp"
	"github.com/ik5/audmix/utils"
)

type frameStatus int

const (
	frameOK frameStatus = iota
	frameEnd
	frameStarved
)

// maxEmptyChunks bounds how many empty chunks one read may skip.
const maxEmptyChunks = 8

// ComputeNextBlockOfSamples renders one block: it drains the commands handed
// over since the last block, renders non-bus sources, mixes the buses,
// renders bus voices, flips the bus buffers and publishes source status.
// Audio goroutine only.
func (m *Manager) ComputeNextBlockOfSamples() {
	m.Render(nil)
}

// Render is ComputeNextBlockOfSamples followed by mix, which runs before any
// queued command can touch source state. Submixes pull from the sources
// inside mix. Audio goroutine only.
func (m *Manager) Render(mix func()) {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()

	if m.cfg.Synchronous {
		m.queue.flip()
	}
	m.queue.drain(m.apply)

	m.workers.run(false)
	for _, b := range m.busList {
		b.mixBuffer(m)
	}
	m.workers.run(true)
	for _, b := range m.busList {
		b.update()
	}
	m.sweepBuses()

	if p := m.plugins.Spatialization; p != nil {
		p.OnAllSourcesProcessed()
	}
	if p := m.plugins.Occlusion; p != nil {
		p.OnAllSourcesProcessed()
	}
	if p := m.plugins.Reverb; p != nil {
		p.OnAllSourcesProcessed()
	}
	if p := m.plugins.Modulation; p != nil {
		p.OnAllSourcesProcessed()
	}

	m.publish()

	if mix != nil {
		mix()
	}

	m.clock += int64(m.cfg.NumOutputFrames)
	m.clockPublic.Store(m.clock)
	m.blocks.Add(1)
}

// publish copies the state the control goroutine reads into the status
// atomics and queues the block's events. It is the only producer of the
// event ring.
func (m *Manager) publish() {
	var active int32
	for i := range m.sources {
		s := &m.sources[i]
		if !s.initialized {
			continue
		}
		st := &m.status[i]
		if s.hasOutput {
			active++
		}
		st.done.Store(s.done)
		st.tailsDone.Store(s.tailsDone)
		st.playing.Store(s.hasOutput)
		st.framesPlayed.Store(s.framesPlayed)
		st.setEnvelope(s.envelope.Value())
		st.needsSpeakerMap.Store(m.needsSpeakerMap(s))

		for ; s.pendingLoops > 0; s.pendingLoops-- {
			m.events.push(event{kind: eventLooped, id: s.id})
		}
		if s.pendingUnderrun {
			s.pendingUnderrun = false
			m.events.push(event{kind: eventUnderrun, id: s.id})
		}
		if s.done && !s.doneNotified {
			s.doneNotified = true
			m.events.push(event{kind: eventDone, id: s.id})
		}
	}
	m.activeCount.Store(active)

	if m.staleBlock > 0 {
		m.stale.Add(m.staleBlock)
		m.staleBlock = 0
	}
}

// computeRange renders the sources of one worker partition.
func (m *Manager) computeRange(lo, hi int, busPass bool) {
	for i := lo; i < hi; i++ {
		m.computeSource(&m.sources[i], busPass)
	}
}

// computeSource runs the per-block pipeline for one source. busPass selects
// bus voices; the other pass renders everything else.
func (m *Manager) computeSource(s *sourceInfo, busPass bool) {
	if !s.initialized || s.isBus != busPass {
		return
	}
	s.hasOutput = false

	if s.done {
		// Finished but not released yet: leave nothing stale behind.
		clear(s.sourceBuf)
		clear(s.preEffectBuf)
		clear(s.preAttenBuf)
		clear(s.spatialBuf)
		clear(s.reverbBuf)
		return
	}
	if !s.playing || s.paused || s.numChannels == 0 {
		return
	}

	frames := m.cfg.NumOutputFrames
	ch := s.numChannels
	offset := 0
	if s.pausedForQuantization {
		if s.startFrame >= m.clock+int64(frames) {
			return
		}
		offset = max(int(s.startFrame-m.clock), 0)
		s.pausedForQuantization = false
	}

	buf := s.sourceBuf
	clear(buf[:offset*ch])
	if s.isBus {
		m.fetchBus(s, buf[offset*ch:], frames-offset)
	} else {
		m.resample(s, buf[offset*ch:], frames-offset)
	}

	m.applyVolume(s, buf)
	copy(s.preEffectBuf, buf)

	m.applyEffects(s, buf)

	env := s.envelope.Process(buf, ch)
	if s.lastBuffer && !s.tailsDone && (!s.hasEnabledEffects() || env < tailsThreshold) {
		s.tailsDone = true
	}

	if s.lpfFrequency < dsp.MaxFilterFrequency || s.lpf.Ramping() {
		s.lpf.Process(buf)
	}
	if s.hpfFrequency > dsp.MinFilterFrequency || s.hpf.Ramping() {
		s.hpf.Process(buf)
	}

	copy(s.preAttenBuf, buf)
	if s.useReverb {
		m.plugins.Reverb.ProcessAudio(PluginInput{
			SourceID:       s.id,
			NumChannels:    ch,
			Samples:        s.preAttenBuf,
			Spatialization: s.spatial,
		}, s.reverbBuf)
	}

	dsp.ArrayFade(buf, ch, s.distStart, s.distDest)
	s.distStart = s.distDest

	if s.useOcclusion {
		m.plugins.Occlusion.ProcessAudio(PluginInput{
			SourceID:       s.id,
			NumChannels:    ch,
			Samples:        buf,
			Spatialization: s.spatial,
		}, s.scratch)
		copy(buf, s.scratch)
	}
	if s.useHRTF {
		m.plugins.Spatialization.ProcessAudio(PluginInput{
			SourceID:       s.id,
			NumChannels:    ch,
			Samples:        buf,
			Spatialization: s.spatial,
		}, s.spatialBuf)
	}

	s.hasOutput = true
	if s.lastBuffer && s.tailsDone {
		s.done = true
	}
}

func (s *sourceInfo) hasEnabledEffects() bool {
	for _, e := range s.effects {
		if e.Enabled() {
			return true
		}
	}
	return false
}

// resample fills n frames of out from the provider, stepping through the
// source at the pitch ratio and interpolating linearly between frames.
func (m *Manager) resample(s *sourceInfo, out []float32, n int) {
	ch := s.numChannels

	modPitch := float32(1)
	if s.useModulation {
		var vol float32
		vol, modPitch = m.plugins.Modulation.Modulation(s.id)
		s.modVolume = vol
	}
	ratio := clampPitch(s.pitchTarget*modPitch) *
		float32(s.provider.SampleRate()) / float32(m.cfg.SampleRate)
	if !s.curValid && !s.nextValid {
		// first block: no ramp from an old value
		s.pitch.Init(ratio)
	} else {
		s.pitch.Set(ratio, n)
	}

	for f := 0; f < n; f++ {
		for s.alpha >= 1 {
			if !s.nextValid && !s.ended {
				// retry the read that underran or never happened
				switch m.readFrame(s, s.nextFrame) {
				case frameStarved:
					clear(out[f*ch : n*ch])
					return
				case frameOK:
					s.nextValid = true
				}
			}
			s.alpha--
			s.curFrame, s.nextFrame = s.nextFrame, s.curFrame
			s.curValid = s.nextValid
			s.nextValid = false
			if s.curValid {
				s.framesPlayed++
				if !s.ended {
					s.nextValid = m.readFrame(s, s.nextFrame) == frameOK
				}
			}
		}

		if !s.curValid {
			s.lastBuffer = true
			clear(out[f*ch : n*ch])
			return
		}

		dst := out[f*ch : (f+1)*ch]
		if s.nextValid {
			for c := range ch {
				dst[c] = utils.Lerp(s.curFrame[c], s.nextFrame[c], s.alpha)
			}
		} else {
			copy(dst, s.curFrame)
		}
		s.alpha += s.pitch.Update()
	}
}

// readFrame copies the next source frame into dst.
func (m *Manager) readFrame(s *sourceInfo, dst []float32) frameStatus {
	ch := s.numChannels
	for tries := 0; (s.chunkPos+1)*ch > len(s.chunk); tries++ {
		if s.chunkFinal {
			s.ended = true
			clear(dst)
			return frameEnd
		}
		if s.haveChunk {
			s.provider.OnBufferEnd()
			s.haveChunk = false
			s.chunk = nil
		}
		if tries >= maxEmptyChunks || s.provider.NumBuffersQueued() == 0 {
			if !s.underrunHit {
				s.underrunHit = true
				m.underruns.Add(1)
				s.pendingUnderrun = true
			}
			clear(dst)
			return frameStarved
		}

		chunk, looped, final := s.provider.NextBuffer()
		s.chunk = chunk
		s.chunkPos = 0
		s.chunkFinal = final
		s.haveChunk = true
		s.underrunHit = false
		if looped {
			s.pendingLoops++
		}
	}

	copy(dst, s.chunk[s.chunkPos*ch:(s.chunkPos+1)*ch])
	s.chunkPos++
	return frameOK
}

// fetchBus copies the bus a voice plays. The bus was mixed earlier in this
// block.
func (m *Manager) fetchBus(s *sourceInfo, out []float32, n int) {
	ch := s.numChannels
	if s.lastBuffer {
		clear(out[:n*ch])
		return
	}
	b := m.buses[s.busID]
	if b == nil {
		s.lastBuffer = true
		clear(out[:n*ch])
		return
	}

	count := n
	if s.busDuration > 0 {
		count = int(min(int64(n), max(s.busDuration-s.framesPlayed, 0)))
	}

	src := b.currentBuffer()
	skip := m.cfg.NumOutputFrames - n
	if s.busMatrix == nil {
		copy(out[:count*ch], src[skip*ch:(skip+count)*ch])
	} else {
		clear(out[:count*ch])
		dsp.DownmixAndSum(src[skip*b.numChannels:(skip+count)*b.numChannels], b.numChannels,
			out[:count*ch], ch, s.busMatrix, 1)
	}
	clear(out[count*ch : n*ch])

	s.framesPlayed += int64(count)
	if s.busDuration > 0 && s.framesPlayed >= s.busDuration {
		s.lastBuffer = true
	}
}

// applyVolume ramps from the block-start to the destination volume and
// applies any stop fade on top.
func (m *Manager) applyVolume(s *sourceInfo, buf []float32) {
	ch := s.numChannels
	start := s.volumeStart * s.modVolume
	end := s.volumeDest * s.modVolume
	dsp.ArrayFade(buf, ch, start, end)
	s.volumeStart = s.volumeDest

	if !s.stopping || s.fadeFrames == 0 {
		return
	}
	n := float32(s.fadeFrames)
	for base := 0; base+ch <= len(buf); base += ch {
		var g float32
		if s.fadePos < s.fadeFrames {
			s.fadePos++
			g = 1 - float32(s.fadePos)/n
		}
		for c := range ch {
			buf[base+c] *= g
		}
	}
	if s.fadePos >= s.fadeFrames {
		s.lastBuffer = true
		s.ended = true
	}
}

func (m *Manager) applyEffects(s *sourceInfo, buf []float32) {
	if len(s.effects) == 0 {
		return
	}
	params := EffectParams{
		SourceID:       s.id,
		SampleRate:     m.cfg.SampleRate,
		NumChannels:    s.numChannels,
		Volume:         s.volumeDest,
		Pitch:          s.pitchTarget,
		AudioClock:     float64(m.clock) / float64(m.cfg.SampleRate),
		Spatialization: s.spatial,
	}
	if s.totalFrames > 0 {
		params.PlayFraction = min(float32(s.framesPlayed)/float32(s.totalFrames), 1)
	}
	for _, e := range s.effects {
		if e.Enabled() {
			e.Process(&params, buf)
		}
	}
}
