// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// Manager owns the source pool, the audio buses and the command queue.
//
// Methods documented as control methods must be called from one control
// goroutine. ComputeNextBlockOfSamples and MixOutSource belong to the audio
// goroutine. Query methods may be called from anywhere.
type Manager struct {
	ctx     context.Context
	cfg     Config
	plugins Plugins

	sources []sourceInfo
	status  []sourceStatus
	control []sourceControl

	queue    *commandQueue
	renderMu sync.Mutex

	freeMu sync.Mutex
	free   []SourceID

	releaseMu      sync.Mutex
	pendingRelease []BufferProvider

	effectMu sync.Mutex
	presets  []uint32

	buses   map[BusID]*AudioBus
	busList []*AudioBus

	events       *eventRing
	observerMu   sync.Mutex
	observers    []Observer
	eventScratch []event
	workers      *workerPool
	clock        int64
	clockPublic  atomic.Int64

	blocks      atomic.Int64
	stale       atomic.Int64
	staleBlock  int64
	forced      atomic.Int64
	underruns   atomic.Int64
	executed    atomic.Int64
	activeCount atomic.Int32
}

// NewManager validates cfg and allocates the whole pool up front.
func NewManager(cfg Config, plugins Plugins) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		ctx:     logger.WithContext(context.Background()),
		cfg:     cfg,
		plugins: plugins,
		sources: make([]sourceInfo, cfg.NumSources),
		status:  make([]sourceStatus, cfg.NumSources),
		control: make([]sourceControl, cfg.NumSources),
		presets: make([]uint32, cfg.NumSources),
		queue:   newCommandQueue(cfg.MaxCommandsPerBlock),
		free:    make([]SourceID, 0, cfg.NumSources),
		buses:   make(map[BusID]*AudioBus),
		events:  newEventRing(4 * cfg.NumSources),
	}
	// Pop order hands out the lowest ids first.
	for i := cfg.NumSources - 1; i >= 0; i-- {
		m.sources[i].id = SourceID(i)
		m.free = append(m.free, SourceID(i))
	}
	m.workers = newWorkerPool(cfg.NumSources, cfg.NumWorkers, m.computeRange)

	logger.Tf(m.ctx, "mixer init, rate=%v, frames=%v, sources=%v, workers=%v, sync=%v",
		cfg.SampleRate, cfg.NumOutputFrames, cfg.NumSources, cfg.NumWorkers, cfg.Synchronous)
	return m, nil
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// AddObserver registers o for source events.
func (m *Manager) AddObserver(o Observer) {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Manager) programmerError(format string, a ...any) {
	if m.cfg.Debug {
		panic(fmt.Sprintf("mixer: "+format, a...))
	}
	logger.Ef(m.ctx, format, a...)
}

func (m *Manager) checkID(id SourceID) error {
	if id < 0 || int(id) >= len(m.sources) {
		return errors.Wrapf(ErrInvalidSourceID, "id %v", id)
	}
	return nil
}

// checkBusy validates id for a mutation.
func (m *Manager) checkBusy(id SourceID) error {
	if err := m.checkID(id); err != nil {
		return err
	}
	if !m.status[id].busy.Load() {
		return errors.Wrapf(ErrSourceNotBusy, "id %v", id)
	}
	if m.control[id].releasePending {
		return errors.Wrapf(ErrReleasePending, "id %v", id)
	}
	return nil
}

// send enqueues c for the current generation of its source.
func (m *Manager) send(c command) error {
	if err := m.checkBusy(c.id); err != nil {
		return err
	}
	c.gen = m.control[c.id].generation
	m.queue.enqueue(c)
	return nil
}

// GetFreeSourceID allocates a slot. It reports false when the pool is
// exhausted; the caller should drop the sound. Control method.
func (m *Manager) GetFreeSourceID() (SourceID, bool) {
	m.freeMu.Lock()
	n := len(m.free)
	if n == 0 {
		m.freeMu.Unlock()
		logger.Wf(m.ctx, "source pool exhausted, sources=%v", len(m.sources))
		return InvalidSourceID, false
	}
	id := m.free[n-1]
	m.free = m.free[:n-1]
	m.freeMu.Unlock()

	c := &m.control[id]
	c.generation++
	c.releasePending = false
	c.initialized = false
	c.numChannels = 0
	c.usingHRTF = false
	m.status[id].reset()
	m.status[id].busy.Store(true)
	return id, true
}

// NumFreeSources is the number of slots GetFreeSourceID can still hand out.
func (m *Manager) NumFreeSources() int {
	m.freeMu.Lock()
	defer m.freeMu.Unlock()
	return len(m.free)
}

// InitSource attaches p to an allocated slot. Control method.
func (m *Manager) InitSource(id SourceID, p InitParams) error {
	if err := m.checkBusy(id); err != nil {
		return err
	}
	c := &m.control[id]
	if c.initialized {
		m.programmerError("double init of source %v", id)
		return errors.Wrapf(ErrInvalidArgument, "source %v already initialized", id)
	}

	var channels int
	if p.IsBus {
		channels = p.BusChannels
		if channels <= 0 || channels > 8 {
			return errors.Wrapf(ErrInvalidChannels, "bus voice channels %v", channels)
		}
	} else {
		if p.Provider == nil {
			return errors.Wrapf(ErrNilProvider, "source %v", id)
		}
		// Zero channels is allowed; such a source renders silence.
		channels = p.Provider.NumChannels()
		if channels < 0 || channels > 8 {
			return errors.Wrapf(ErrInvalidChannels, "provider channels %v", channels)
		}
		if p.Provider.SampleRate() <= 0 {
			return errors.Wrapf(ErrInvalidArgument, "provider sample rate %v", p.Provider.SampleRate())
		}
	}
	if p.UseSpatializationPlugin && m.plugins.Spatialization == nil {
		return errors.Wrapf(ErrInvalidArgument, "source %v wants a spatialization plugin but none is set", id)
	}
	for _, s := range p.SubmixSends {
		if s.Submix == nil {
			return errors.Wrapf(ErrInvalidArgument, "source %v has a nil submix send", id)
		}
	}
	for _, b := range p.BusSends {
		if b.Type < 0 || b.Type >= numBusSendTypes {
			return errors.Wrapf(ErrInvalidArgument, "bus send type %v", b.Type)
		}
	}

	params := p
	params.SubmixSends = append([]SubmixSend(nil), p.SubmixSends...)
	params.BusSends = append([]BusSend(nil), p.BusSends...)
	params.Effects = append([]SourceEffect(nil), p.Effects...)

	c.initialized = true
	c.numChannels = channels
	c.usingHRTF = p.UseSpatializationPlugin

	m.effectMu.Lock()
	m.presets[id] = p.EffectPresetID
	m.effectMu.Unlock()

	return m.send(command{op: opInit, id: id, i: [2]int64{int64(channels)}, payload: &params})
}

// Play starts or resumes a source on the next block. Control method.
func (m *Manager) Play(id SourceID) error {
	return m.send(command{op: opPlay, id: id})
}

// PlayAt starts a source when the audio clock reaches clockFrame. The
// frames of the start block before that point are silent. Control method.
func (m *Manager) PlayAt(id SourceID, clockFrame int64) error {
	return m.send(command{op: opPlayAt, id: id, i: [2]int64{clockFrame}})
}

// Pause stops rendering a source but keeps its state. Play resumes it.
// Control method.
func (m *Manager) Pause(id SourceID) error {
	return m.send(command{op: opPause, id: id})
}

// Stop ends a source at the next block. Control method.
func (m *Manager) Stop(id SourceID) error {
	return m.send(command{op: opStop, id: id})
}

// StopFade fades a source to silence over numFrames, rounded up to a
// multiple of 4, then lets its effect tails ring out. Control method.
func (m *Manager) StopFade(id SourceID, numFrames int) error {
	if numFrames < 0 {
		return errors.Wrapf(ErrInvalidArgument, "fade frames %v", numFrames)
	}
	return m.send(command{op: opStopFade, id: id, i: [2]int64{int64(numFrames)}})
}

// SetPitch sets the playback rate multiplier. Control method.
func (m *Manager) SetPitch(id SourceID, pitch float32) error {
	if pitch <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "pitch %v", pitch)
	}
	return m.send(command{op: opSetPitch, id: id, f: [2]float32{pitch}})
}

// SetVolume sets the destination gain of the next block. Only the last call
// before a block takes effect. Control method.
func (m *Manager) SetVolume(id SourceID, volume float32) error {
	if volume < 0 {
		return errors.Wrapf(ErrInvalidArgument, "volume %v", volume)
	}
	return m.send(command{op: opSetVolume, id: id, f: [2]float32{volume}})
}

// SetDistanceAttenuation sets the destination attenuation of the next block.
// Control method.
func (m *Manager) SetDistanceAttenuation(id SourceID, attenuation float32) error {
	if attenuation < 0 {
		return errors.Wrapf(ErrInvalidArgument, "attenuation %v", attenuation)
	}
	return m.send(command{op: opSetDistanceAttenuation, id: id, f: [2]float32{attenuation}})
}

// SetLPFFrequency sets the low-pass cutoff in Hz. Control method.
func (m *Manager) SetLPFFrequency(id SourceID, hz float32) error {
	if hz <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "lpf %v", hz)
	}
	return m.send(command{op: opSetLPF, id: id, f: [2]float32{hz}})
}

// SetHPFFrequency sets the high-pass cutoff in Hz. Control method.
func (m *Manager) SetHPFFrequency(id SourceID, hz float32) error {
	if hz <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "hpf %v", hz)
	}
	return m.send(command{op: opSetHPF, id: id, f: [2]float32{hz}})
}

// SetSpatializationParams moves a source. 3D channel maps follow the new
// azimuth once it moves beyond Config.AzimuthEpsilon. Control method.
func (m *Manager) SetSpatializationParams(id SourceID, p SpatializationParams) error {
	return m.send(command{op: opSetSpatialization, id: id, spatial: p})
}

// SetChannelMap installs an explicit inChannels x outChannels gain matrix
// for submixes of outChannels width. The command is dropped if the source
// has been reinitialized with another channel count by the time it runs.
// Control method.
func (m *Manager) SetChannelMap(id SourceID, inChannels, outChannels int, gains []float32) error {
	if inChannels <= 0 || outChannels <= 0 || outChannels > 8 {
		return errors.Wrapf(ErrInvalidChannels, "map %vx%v", inChannels, outChannels)
	}
	if len(gains) != inChannels*outChannels {
		return errors.Wrapf(ErrInvalidArgument, "map %vx%v has %v gains", inChannels, outChannels, len(gains))
	}
	return m.send(command{
		op:      opSetChannelMap,
		id:      id,
		i:       [2]int64{int64(inChannels), int64(outChannels)},
		payload: append([]float32(nil), gains...),
	})
}

// RequestSpeakerMapRefresh recomputes every derived channel map of a source
// on the next block. Control method.
func (m *Manager) RequestSpeakerMapRefresh(id SourceID) error {
	return m.send(command{op: opRefreshSpeakerMap, id: id})
}

// SetSubmixSendInfo adds a submix send or changes its level. Control method.
func (m *Manager) SetSubmixSendInfo(id SourceID, send SubmixSend) error {
	if send.Submix == nil {
		return errors.Wrapf(ErrInvalidArgument, "nil submix")
	}
	return m.send(command{op: opSetSubmixSend, id: id, f: [2]float32{send.Level}, i: [2]int64{int64(send.Stage)}, payload: send.Submix})
}

// ClearSubmixSendInfo removes the send to submix. Control method.
func (m *Manager) ClearSubmixSendInfo(id SourceID, submix SubmixTarget) error {
	if submix == nil {
		return errors.Wrapf(ErrInvalidArgument, "nil submix")
	}
	return m.send(command{op: opClearSubmixSend, id: id, payload: submix})
}

// SetBusSendInfo adds a bus send or changes its level. Control method.
func (m *Manager) SetBusSendInfo(id SourceID, bus BusID, level float32, typ BusSendType) error {
	if typ < 0 || typ >= numBusSendTypes {
		return errors.Wrapf(ErrInvalidArgument, "bus send type %v", typ)
	}
	return m.send(command{op: opSetBusSend, id: id, bus: bus, f: [2]float32{level}, i: [2]int64{int64(typ)}})
}

// SetEffectChain replaces the effect instances of a source. Control method.
func (m *Manager) SetEffectChain(id SourceID, presetID uint32, effects []SourceEffect) error {
	chain := &effectChain{presetID: presetID, effects: append([]SourceEffect(nil), effects...)}
	return m.send(command{op: opSetEffectChain, id: id, payload: chain})
}

// EffectChainPresetID is the preset of the chain last installed on id.
func (m *Manager) EffectChainPresetID(id SourceID) uint32 {
	if m.checkID(id) != nil {
		return 0
	}
	m.effectMu.Lock()
	defer m.effectMu.Unlock()
	return m.presets[id]
}

// ReleaseSourceID returns a slot to the pool once the audio goroutine has
// let go of it. Releasing a free slot or releasing twice is a no-op.
// Control method.
func (m *Manager) ReleaseSourceID(id SourceID) {
	if m.checkID(id) != nil {
		logger.Wf(m.ctx, "release of invalid source %v", id)
		return
	}
	c := &m.control[id]
	if !m.status[id].busy.Load() || c.releasePending {
		logger.Wf(m.ctx, "ignore double release of source %v", id)
		return
	}
	c.releasePending = true
	m.queue.enqueue(command{op: opRelease, id: id, gen: c.generation})
}

// StartAudioBus creates a bus. Automatic buses go away with their last send
// or voice; manual buses live until StopAudioBus. Control method.
func (m *Manager) StartAudioBus(bus BusID, numChannels int, automatic bool) error {
	if numChannels <= 0 || numChannels > 8 {
		return errors.Wrapf(ErrInvalidChannels, "bus %v channels %v", bus, numChannels)
	}
	auto := int64(0)
	if automatic {
		auto = 1
	}
	m.queue.enqueue(command{op: opStartBus, bus: bus, i: [2]int64{int64(numChannels), auto}})
	return nil
}

// StopAudioBus removes a bus and ends the voices playing it. Control method.
func (m *Manager) StopAudioBus(bus BusID) {
	m.queue.enqueue(command{op: opStopBus, bus: bus})
}

// AddPatchOutput attaches a ring buffer that receives every mixed block of
// bus, scaled by gain. capacityFrames bounds how much unread audio it keeps.
// Control method.
func (m *Manager) AddPatchOutput(bus BusID, capacityFrames int, gain float32) (*PatchOutput, error) {
	if capacityFrames <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "patch capacity %v", capacityFrames)
	}
	p := newPatchOutput(capacityFrames, gain)
	m.queue.enqueue(command{op: opAddPatch, bus: bus, payload: p})
	return p, nil
}

// Enqueue runs fn on the audio goroutine, in order with the other
// commands. Control method.
func (m *Manager) Enqueue(fn func()) {
	m.queue.enqueue(command{op: opFunc, id: InvalidSourceID, fn: fn})
}

// Update is the control tick: it hands queued commands to the audio
// goroutine, delivers observer events and closes providers of released
// sources. In synchronous mode both sides share one goroutine, so Update
// runs the queued commands itself. Control method.
func (m *Manager) Update() {
	if m.cfg.Synchronous {
		m.forceDrain()
	} else {
		m.queue.flip()
	}
	m.dispatchEvents()
	m.completeReleases()
}

// Flush waits up to Config.FlushTimeout for every queued command to run.
// On timeout it runs them on the calling goroutine. Control method.
func (m *Manager) Flush() {
	if m.cfg.Synchronous {
		m.forceDrain()
		return
	}

	deadline := time.NewTimer(m.cfg.FlushTimeout)
	defer deadline.Stop()

	for {
		m.queue.flip()
		if m.queue.drained.Load() && m.queue.pending() == 0 {
			return
		}
		select {
		case <-m.queue.signal:
		case <-deadline.C:
			logger.Wf(m.ctx, "flush timed out after %v, draining %v commands on the control goroutine",
				m.cfg.FlushTimeout, m.queue.pending())
			m.forced.Add(1)
			m.forceDrain()
			return
		}
	}
}

// forceDrain runs both queue halves while holding the render lock.
func (m *Manager) forceDrain() {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()

	m.queue.drain(m.apply)
	m.queue.flip()
	m.queue.drain(m.apply)
}

// completeReleases closes providers whose decode work has finished.
func (m *Manager) completeReleases() {
	m.releaseMu.Lock()
	pending := m.pendingRelease
	m.pendingRelease = nil
	m.releaseMu.Unlock()

	var keep []BufferProvider
	for _, p := range pending {
		if !p.IsAsyncTaskDone() {
			keep = append(keep, p)
			continue
		}
		if err := p.Close(); err != nil {
			logger.Wf(m.ctx, "close provider: %v", err)
		}
	}
	if len(keep) > 0 {
		m.releaseMu.Lock()
		m.pendingRelease = append(m.pendingRelease, keep...)
		m.releaseMu.Unlock()
	}
}

// Shutdown releases every source and closes all providers, waiting up to
// FlushTimeout for in-flight decodes. The audio goroutine must have stopped
// calling Render. Control method.
func (m *Manager) Shutdown() {
	for i := range m.sources {
		id := SourceID(i)
		if m.status[id].busy.Load() && !m.control[id].releasePending {
			m.ReleaseSourceID(id)
		}
	}
	m.forceDrain()

	deadline := time.Now().Add(m.cfg.FlushTimeout)
	for {
		m.completeReleases()
		m.releaseMu.Lock()
		n := len(m.pendingRelease)
		m.releaseMu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			logger.Wf(m.ctx, "shutdown left %v providers with decode work in flight", n)
			break
		}
		time.Sleep(time.Millisecond)
	}
	// A late Render falls back to rendering inline.
	m.renderMu.Lock()
	m.workers.stop()
	m.renderMu.Unlock()
	logger.Tf(m.ctx, "mixer shutdown, blocks=%v", m.blocks.Load())
}

// IsBusy reports whether id is allocated.
func (m *Manager) IsBusy(id SourceID) bool {
	return m.checkID(id) == nil && m.status[id].busy.Load()
}

// IsDone reports whether a source finished: its last buffer played and its
// effect tails decayed, or it was stopped.
func (m *Manager) IsDone(id SourceID) bool {
	return m.checkID(id) == nil && m.status[id].done.Load()
}

// IsEffectTailsDone reports whether the effect chain output has decayed.
func (m *Manager) IsEffectTailsDone(id SourceID) bool {
	return m.checkID(id) == nil && m.status[id].tailsDone.Load()
}

// IsPlaying reports whether a source rendered in the last block.
func (m *Manager) IsPlaying(id SourceID) bool {
	return m.checkID(id) == nil && m.status[id].playing.Load()
}

// NumFramesPlayed is the number of source frames consumed so far.
func (m *Manager) NumFramesPlayed(id SourceID) int64 {
	if m.checkID(id) != nil {
		return 0
	}
	return m.status[id].framesPlayed.Load()
}

// EnvelopeValue is the envelope follower output after the last block.
func (m *Manager) EnvelopeValue(id SourceID) float32 {
	if m.checkID(id) != nil {
		return 0
	}
	return m.status[id].envelopeValue()
}

// IsUsingHRTFSpatializer reports whether id renders through the
// spatialization plugin. Control method.
func (m *Manager) IsUsingHRTFSpatializer(id SourceID) bool {
	return m.checkID(id) == nil && m.control[id].usingHRTF
}

// NeedsSpeakerMap reports whether the audio goroutine has a derived channel
// map of id that is missing or out of date.
func (m *Manager) NeedsSpeakerMap(id SourceID) bool {
	return m.checkID(id) == nil && m.status[id].needsSpeakerMap.Load()
}

// AudioClock is the number of frames rendered so far.
func (m *Manager) AudioClock() int64 { return m.clockPublic.Load() }

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.releaseMu.Lock()
	pending := len(m.pendingRelease)
	m.releaseMu.Unlock()

	return Stats{
		BlocksRendered:   m.blocks.Load(),
		ActiveSources:    int(m.activeCount.Load()),
		StaleCommands:    m.stale.Load(),
		ForcedDrains:     m.forced.Load(),
		Underruns:        m.underruns.Load(),
		DroppedEvents:    m.events.dropped.Load(),
		PendingReleases:  pending,
		CommandsExecuted: m.executed.Load(),
	}
}
