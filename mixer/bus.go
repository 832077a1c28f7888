// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"slices"

	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/ik5/audmix/dsp"
)

type busSend struct {
	id       SourceID
	level    float32
	channels int
	matrix   []float32
}

// AudioBus is a named mix point. Sources send into it, bus voices play it
// back and patch outputs tap it. It is double buffered: the current buffer
// is mixed each block and the previous one holds the block before.
type AudioBus struct {
	id          BusID
	numChannels int
	automatic   bool
	buffers     [2][]float32
	current     int
	instances   []SourceID
	sends       [numBusSendTypes][]busSend
	patches     []*PatchOutput
}

func newAudioBus(id BusID, numChannels, numFrames int, automatic bool) *AudioBus {
	b := &AudioBus{id: id, numChannels: numChannels, automatic: automatic}
	b.buffers[0] = make([]float32, numFrames*numChannels)
	b.buffers[1] = make([]float32, numFrames*numChannels)
	return b
}

func (b *AudioBus) ID() BusID                { return b.id }
func (b *AudioBus) NumChannels() int         { return b.numChannels }
func (b *AudioBus) IsAutomatic() bool        { return b.automatic }
func (b *AudioBus) NumInstances() int        { return len(b.instances) }
func (b *AudioBus) currentBuffer() []float32 { return b.buffers[b.current] }

// PreviousBuffer is the block mixed before the current one. Between blocks
// it holds the block just rendered.
func (b *AudioBus) PreviousBuffer() []float32 { return b.buffers[1-b.current] }

// NumSends counts sends of both types.
func (b *AudioBus) NumSends() int {
	var n int
	for t := range b.sends {
		n += len(b.sends[t])
	}
	return n
}

func (b *AudioBus) inUse() bool {
	return len(b.instances) > 0 || b.NumSends() > 0
}

func (b *AudioBus) addInstance(id SourceID) {
	if !slices.Contains(b.instances, id) {
		b.instances = append(b.instances, id)
	}
}

func (b *AudioBus) removeInstance(id SourceID) {
	if i := slices.Index(b.instances, id); i >= 0 {
		b.instances = slices.Delete(b.instances, i, i+1)
	}
}

func (b *AudioBus) addSend(typ BusSendType, id SourceID, level float32, channels int) {
	for i := range b.sends[typ] {
		if b.sends[typ][i].id == id {
			b.sends[typ][i].level = level
			return
		}
	}
	send := busSend{id: id, level: level, channels: channels}
	if channels != b.numChannels {
		send.matrix = dsp.DownmixMatrix(channels, b.numChannels)
	}
	b.sends[typ] = append(b.sends[typ], send)
}

func (b *AudioBus) removeSend(typ BusSendType, id SourceID) {
	b.sends[typ] = slices.DeleteFunc(b.sends[typ], func(s busSend) bool { return s.id == id })
}

// mixBuffer sums every send into the current buffer and feeds the patch
// outputs.
func (b *AudioBus) mixBuffer(m *Manager) {
	out := b.buffers[b.current]
	clear(out)

	for typ := range b.sends {
		for i := range b.sends[typ] {
			send := &b.sends[typ][i]
			in, ch := m.busSendInput(send.id, BusSendType(typ))
			if in == nil {
				continue
			}
			if ch == b.numChannels {
				dsp.MixIn(in, out, send.level)
				continue
			}
			if ch != send.channels || send.matrix == nil {
				send.channels = ch
				send.matrix = dsp.DownmixMatrix(ch, b.numChannels)
			}
			dsp.DownmixAndSum(in, ch, out, b.numChannels, send.matrix, send.level)
		}
	}

	for _, p := range b.patches {
		p.push(out)
	}
}

// update flips the double buffer.
func (b *AudioBus) update() {
	b.current = 1 - b.current
}

// busSendInput returns the buffer a source sends into buses. Bus voices
// are rendered after the buses are mixed, so they send the previous block
// of the bus they play.
func (m *Manager) busSendInput(id SourceID, typ BusSendType) ([]float32, int) {
	s := &m.sources[id]
	if !s.initialized || s.done || !s.playing || s.paused {
		return nil, 0
	}
	if s.isBus {
		b := m.buses[s.busID]
		if b == nil {
			return nil, 0
		}
		return b.PreviousBuffer(), b.numChannels
	}
	if !s.hasOutput {
		return nil, 0
	}
	if typ == BusSendPreEffect {
		return s.preEffectBuf, s.numChannels
	}
	return s.preAttenBuf, s.numChannels
}

// Bus returns a bus by id. Audio goroutine only.
func (m *Manager) Bus(id BusID) (*AudioBus, bool) {
	b, ok := m.buses[id]
	return b, ok
}

func (m *Manager) ensureBus(id BusID, numChannels int, automatic bool) *AudioBus {
	if b, ok := m.buses[id]; ok {
		return b
	}
	b := newAudioBus(id, numChannels, m.cfg.NumOutputFrames, automatic)
	m.buses[id] = b
	m.busList = append(m.busList, b)
	logger.Tf(m.ctx, "bus start, id=%v, channels=%v, automatic=%v", id, numChannels, automatic)
	return b
}

func (m *Manager) startBus(id BusID, numChannels int, automatic bool) {
	if b, ok := m.buses[id]; ok {
		// An explicit start pins a bus created by a send.
		if !automatic {
			b.automatic = false
		}
		return
	}
	m.ensureBus(id, numChannels, automatic)
}

func (m *Manager) removeBus(id BusID) {
	delete(m.buses, id)
	m.busList = slices.DeleteFunc(m.busList, func(b *AudioBus) bool { return b.id == id })
	logger.Tf(m.ctx, "bus stop, id=%v", id)
}

// sweepBuses removes automatic buses nothing sends to or plays, such as one
// started automatic that never got a send.
func (m *Manager) sweepBuses() {
	for i := 0; i < len(m.busList); {
		b := m.busList[i]
		if b.automatic && !b.inUse() {
			m.removeBus(b.id)
			continue
		}
		i++
	}
}

func (m *Manager) stopBus(id BusID) {
	b, ok := m.buses[id]
	if !ok {
		logger.Wf(m.ctx, "ignore stop of unknown bus %v", id)
		return
	}
	for _, inst := range b.instances {
		m.sources[inst].lastBuffer = true
	}
	for typ := range b.sends {
		for _, send := range b.sends[typ] {
			s := &m.sources[send.id]
			s.busSends = slices.DeleteFunc(s.busSends, func(e busSendEntry) bool { return e.bus == id })
		}
	}
	m.removeBus(id)
}

func (m *Manager) addBusSend(s *sourceInfo, send BusSend) {
	if s.numChannels == 0 {
		return
	}
	if s.isBus && send.Bus == s.busID {
		m.programmerError("bus voice %v sends into its own bus %v", s.id, send.Bus)
		return
	}
	sendChannels := s.numChannels
	if s.isBus {
		src, ok := m.buses[s.busID]
		if !ok {
			logger.Wf(m.ctx, "ignore send of bus voice %v, its bus %v is stopped", s.id, s.busID)
			return
		}
		sendChannels = src.numChannels
	}

	channels := send.BusChannels
	if channels <= 0 {
		channels = s.numChannels
	}
	b := m.ensureBus(send.Bus, channels, true)
	b.addSend(send.Type, s.id, send.Level, sendChannels)

	entry := busSendEntry{bus: send.Bus, typ: send.Type}
	if !slices.Contains(s.busSends, entry) {
		s.busSends = append(s.busSends, entry)
	}
}

func (m *Manager) removeBusSend(id SourceID, bus BusID, typ BusSendType) {
	b, ok := m.buses[bus]
	if !ok {
		return
	}
	b.removeSend(typ, id)
	if b.automatic && !b.inUse() {
		m.removeBus(bus)
	}
}

func (m *Manager) removeBusInstance(bus BusID, id SourceID) {
	b, ok := m.buses[bus]
	if !ok {
		return
	}
	b.removeInstance(id)
	if b.automatic && !b.inUse() {
		m.removeBus(bus)
	}
}

func (m *Manager) addPatch(bus BusID, p *PatchOutput) {
	b, ok := m.buses[bus]
	if !ok {
		logger.Wf(m.ctx, "ignore patch output for unknown bus %v", bus)
		return
	}
	p.attach(b.numChannels)
	b.patches = append(b.patches, p)
}
