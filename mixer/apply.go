// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/ik5/audmix/dsp"
)

// apply executes one command on the audio goroutine.
func (m *Manager) apply(c *command) {
	m.executed.Add(1)

	switch c.op {
	case opFunc:
		c.fn()
		return
	case opStartBus:
		m.startBus(c.bus, int(c.i[0]), c.i[1] == 1)
		return
	case opStopBus:
		m.stopBus(c.bus)
		return
	case opAddPatch:
		m.addPatch(c.bus, c.payload.(*PatchOutput))
		return
	case opRelease:
		m.releaseSource(c.id)
		return
	case opInit:
		m.initSource(c)
		return
	}

	s := &m.sources[c.id]
	if !s.initialized || s.generation != c.gen {
		m.staleBlock++
		return
	}

	switch c.op {
	case opPlay:
		s.playing = true
		s.paused = false
		s.pausedForQuantization = false
	case opPlayAt:
		s.playing = true
		s.paused = false
		s.startFrame = c.i[0]
		s.pausedForQuantization = c.i[0] > m.clock
	case opPause:
		s.paused = true
	case opStop:
		m.stopSource(s)
	case opStopFade:
		m.stopFadeSource(s, int(c.i[0]))
	case opSetPitch:
		s.pitchTarget = c.f[0]
	case opSetVolume:
		s.volumeDest = c.f[0]
	case opSetDistanceAttenuation:
		s.distDest = c.f[0]
	case opSetLPF:
		s.lpfFrequency = c.f[0]
		s.lpf.SetFrequency(c.f[0], m.cfg.NumOutputFrames)
	case opSetHPF:
		s.hpfFrequency = c.f[0]
		s.hpf.SetFrequency(c.f[0], m.cfg.NumOutputFrames)
	case opSetSpatialization:
		s.spatial = c.spatial
	case opSetChannelMap:
		m.setChannelMap(s, int(c.i[0]), int(c.i[1]), c.payload.([]float32))
	case opRefreshSpeakerMap:
		for i := range s.channelMaps {
			if !s.channelMaps[i].explicit {
				s.channelMaps[i].valid = false
			}
		}
	case opSetSubmixSend:
		m.setSubmixSend(s, SubmixSend{Submix: c.payload.(SubmixTarget), Level: c.f[0], Stage: SubmixSendStage(c.i[0])})
	case opClearSubmixSend:
		m.clearSubmixSend(s, c.payload.(SubmixTarget))
	case opSetBusSend:
		m.addBusSend(s, BusSend{Bus: c.bus, Level: c.f[0], Type: BusSendType(c.i[0])})
	case opSetEffectChain:
		m.setEffectChain(s, c.payload.(*effectChain))
	default:
		m.programmerError("unknown command %v for source %v", c.op, c.id)
	}
}

func (m *Manager) initSource(c *command) {
	s := &m.sources[c.id]
	if s.initialized {
		m.programmerError("double init of source %v", c.id)
		return
	}
	p := c.payload.(*InitParams)
	channels := int(c.i[0])
	frames := m.cfg.NumOutputFrames
	rate := float32(m.cfg.SampleRate)

	s.generation = c.gen
	s.componentID = p.AudioComponentID
	s.provider = p.Provider
	s.numChannels = channels
	s.outputChannels = channels

	s.sourceBuf = resize(s.sourceBuf, frames*channels)
	s.preEffectBuf = resize(s.preEffectBuf, frames*channels)
	s.preAttenBuf = resize(s.preAttenBuf, frames*channels)
	s.scratch = resize(s.scratch, frames*channels)
	s.curFrame = resize(s.curFrame, channels)
	s.nextFrame = resize(s.nextFrame, channels)
	s.alpha = 1

	s.pitchTarget = p.Pitch
	if s.pitchTarget <= 0 {
		s.pitchTarget = 1
	}
	s.volumeStart = p.Volume
	s.volumeDest = p.Volume
	s.distStart = p.DistanceAttenuation
	if s.distStart <= 0 {
		s.distStart = 1
	}
	s.distDest = s.distStart
	s.modVolume = 1

	s.lpfFrequency = p.LPFFrequency
	if s.lpfFrequency <= 0 {
		s.lpfFrequency = dsp.MaxFilterFrequency
	}
	s.hpfFrequency = p.HPFFrequency
	if s.hpfFrequency <= 0 {
		s.hpfFrequency = dsp.MinFilterFrequency
	}
	s.lpf.Init(rate, channels, s.lpfFrequency)
	s.hpf.Init(rate, channels, s.hpfFrequency)
	s.envelope.Init(rate, float32(m.cfg.EnvelopeAttack.Seconds()*1000), float32(m.cfg.EnvelopeRelease.Seconds()*1000))

	s.is3D = p.Is3D
	s.spatial = p.Spatialization
	s.useHRTF = p.UseSpatializationPlugin && m.plugins.Spatialization != nil
	s.useOcclusion = p.UseOcclusionPlugin && m.plugins.Occlusion != nil
	s.useReverb = p.UseReverbPlugin && m.plugins.Reverb != nil
	s.useModulation = p.UseModulationPlugin && m.plugins.Modulation != nil
	if s.useHRTF {
		s.outputChannels = m.plugins.Spatialization.OutputChannels()
		s.spatialBuf = resize(s.spatialBuf, frames*s.outputChannels)
	}
	if s.useReverb {
		s.reverbBuf = resize(s.reverbBuf, frames*channels)
	}

	for _, e := range p.Effects {
		e.Init(m.cfg.SampleRate, channels)
	}
	s.effects = p.Effects
	s.effectPresetID = p.EffectPresetID

	if fc, ok := p.Provider.(FrameCounter); ok {
		s.totalFrames = fc.TotalFrames()
	}

	if p.IsBus {
		s.isBus = true
		s.busID = p.AudioBusID
		s.busDuration = p.BusDurationFrames
		b := m.ensureBus(p.AudioBusID, channels, true)
		b.addInstance(s.id)
		if b.numChannels != channels {
			s.busMatrix = dsp.DownmixMatrix(b.numChannels, channels)
		}
	}

	s.initialized = true

	for _, send := range p.SubmixSends {
		m.setSubmixSend(s, send)
	}
	for _, send := range p.BusSends {
		m.addBusSend(s, send)
	}

	if s.useHRTF {
		m.plugins.Spatialization.OnInitSource(s.id, channels)
	}
	if s.useOcclusion {
		m.plugins.Occlusion.OnInitSource(s.id, channels)
	}
	if s.useReverb {
		m.plugins.Reverb.OnInitSource(s.id, channels)
	}
	if s.useModulation {
		m.plugins.Modulation.OnInitSource(s.id, channels)
	}

	logger.Tf(m.ctx, "source init, id=%v, gen=%v, component=%v, channels=%v, submixes=%v, buses=%v, bus=%v/%v",
		s.id, s.generation, s.componentID, channels, len(s.submixSends), len(s.busSends), s.isBus, s.busID)
}

// releaseSource tears a slot down and returns it to the free list.
func (m *Manager) releaseSource(id SourceID) {
	st := &m.status[id]
	if !st.busy.Load() {
		logger.Wf(m.ctx, "ignore release of free source %v", id)
		return
	}

	s := &m.sources[id]
	if s.initialized {
		for _, send := range s.submixSends {
			send.Submix.RemoveSourceVoice(id)
		}
		for _, bs := range s.busSends {
			m.removeBusSend(id, bs.bus, bs.typ)
		}
		if s.isBus {
			m.removeBusInstance(s.busID, id)
		}

		if s.useHRTF {
			m.plugins.Spatialization.OnReleaseSource(id)
		}
		if s.useOcclusion {
			m.plugins.Occlusion.OnReleaseSource(id)
		}
		if s.useReverb {
			m.plugins.Reverb.OnReleaseSource(id)
		}
		if s.useModulation {
			m.plugins.Modulation.OnReleaseSource(id)
		}
	}

	if s.provider != nil {
		if s.haveChunk {
			s.provider.OnBufferEnd()
		}
		m.releaseMu.Lock()
		m.pendingRelease = append(m.pendingRelease, s.provider)
		m.releaseMu.Unlock()
	}

	s.reset()
	st.reset()
	// Clear busy before the id becomes poppable again.
	st.busy.Store(false)

	m.freeMu.Lock()
	m.free = append(m.free, id)
	m.freeMu.Unlock()
}

func (m *Manager) stopSource(s *sourceInfo) {
	if s.done {
		logger.Wf(m.ctx, "ignore stop of finished source %v", s.id)
		return
	}
	s.stopping = true
	s.playing = false
	s.lastBuffer = true
	s.tailsDone = true
	s.done = true
	s.hasOutput = false
}

func (m *Manager) stopFadeSource(s *sourceInfo, numFrames int) {
	if s.done || s.stopping {
		logger.Wf(m.ctx, "ignore double stop of source %v", s.id)
		return
	}
	if numFrames <= 0 || !s.playing || s.paused || s.pausedForQuantization {
		m.stopSource(s)
		return
	}
	s.stopping = true
	s.fadeFrames = (numFrames + 3) / 4 * 4
	s.fadePos = 0
}

func (m *Manager) setChannelMap(s *sourceInfo, inCh, outCh int, gains []float32) {
	if inCh != s.numChannels {
		// The source was reinitialized since the map was computed.
		m.staleBlock++
		return
	}
	cm := s.channelMap(inCh, outCh)
	copy(cm.gains, gains)
	cm.explicit = true
	cm.valid = true
}

func (m *Manager) setSubmixSend(s *sourceInfo, send SubmixSend) {
	found := false
	for i := range s.submixSends {
		if s.submixSends[i].Submix == send.Submix {
			s.submixSends[i] = send
			found = true
			break
		}
	}
	if !found {
		s.submixSends = append(s.submixSends, send)
	}
	send.Submix.AddOrSetSourceVoice(s.id, send.Level, send.Stage)
}

func (m *Manager) clearSubmixSend(s *sourceInfo, submix SubmixTarget) {
	for i := range s.submixSends {
		if s.submixSends[i].Submix == submix {
			s.submixSends = append(s.submixSends[:i], s.submixSends[i+1:]...)
			submix.RemoveSourceVoice(s.id)
			return
		}
	}
}

func (m *Manager) setEffectChain(s *sourceInfo, chain *effectChain) {
	for _, e := range chain.effects {
		e.Init(m.cfg.SampleRate, s.numChannels)
	}

	m.effectMu.Lock()
	s.effects = chain.effects
	s.effectPresetID = chain.presetID
	m.presets[s.id] = chain.presetID
	m.effectMu.Unlock()

	// A fresh chain has no tails yet.
	if !s.lastBuffer {
		s.tailsDone = false
	}
}
