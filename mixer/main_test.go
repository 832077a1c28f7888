// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/ik5/audmix/internal/audiotest"
)

const (
	testRate   = 48000
	testFrames = 64
)

func TestMain(m *testing.M) {
	// Disable the logger during all tests.
	olw := logger.Switch(io.Discard)
	code := m.Run()
	logger.Switch(olw)
	os.Exit(code)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = testRate
	cfg.NumOutputFrames = testFrames
	cfg.NumSources = 8
	cfg.Synchronous = true
	cfg.FlushTimeout = 100 * time.Millisecond
	// An instant envelope makes tails completion depend on the last frame
	// only.
	cfg.EnvelopeAttack = 0
	cfg.EnvelopeRelease = 0
	return cfg
}

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg, Plugins{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func newPluginManager(t *testing.T, plugins Plugins) *Manager {
	t.Helper()

	m, err := NewManager(testConfig(), plugins)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

// constant returns a mono provider of value lasting long enough for any test.
func constant(value float32) *audiotest.Provider {
	return audiotest.NewConstantProvider(testRate, 1, 100*testFrames, 256, false, value)
}

// startSource allocates, initializes and plays a source.
func startSource(t *testing.T, m *Manager, p InitParams) SourceID {
	t.Helper()

	id, ok := m.GetFreeSourceID()
	if !ok {
		t.Fatal("GetFreeSourceID() = false, want a free slot")
	}
	if err := m.InitSource(id, p); err != nil {
		t.Fatalf("InitSource(%v) error = %v", id, err)
	}
	if err := m.Play(id); err != nil {
		t.Fatalf("Play(%v) error = %v", id, err)
	}
	return id
}

// renderInto renders one block and mixes sub into a fresh buffer.
func renderInto(m *Manager, sub *Submix) []float32 {
	out := make([]float32, m.cfg.NumOutputFrames*sub.NumChannels())
	m.Render(func() {
		sub.ProcessAudio(out)
	})
	return out
}

func assertAll(t *testing.T, name string, buf []float32, want float32) {
	t.Helper()

	for i, v := range buf {
		if math.Abs(float64(v-want)) > 1e-6 {
			t.Fatalf("%v[%v] = %v, want %v", name, i, v, want)
		}
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	done     []SourceID
	looped   []SourceID
	underrun []SourceID
}

func (o *recordingObserver) OnSourceDone(id SourceID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done = append(o.done, id)
}

func (o *recordingObserver) OnSourceLooped(id SourceID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.looped = append(o.looped, id)
}

func (o *recordingObserver) OnBufferUnderrun(id SourceID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.underrun = append(o.underrun, id)
}

func (o *recordingObserver) counts() (done, looped, underrun int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.done), len(o.looped), len(o.underrun)
}

// gainEffect scales its input and records what it was set up with.
type gainEffect struct {
	gain       float32
	disabled   bool
	sampleRate int
	channels   int
	last       EffectParams
	calls      int
}

func (e *gainEffect) Init(sampleRate, numChannels int) {
	e.sampleRate = sampleRate
	e.channels = numChannels
}

func (e *gainEffect) Enabled() bool { return !e.disabled }

func (e *gainEffect) Process(p *EffectParams, buf []float32) {
	e.last = *p
	e.calls++
	for i := range buf {
		buf[i] *= e.gain
	}
}

// ringEffect adds a level that follows the input peak and halves every
// block once the input gets quieter, like a decaying delay line.
type ringEffect struct {
	level float32
}

func (e *ringEffect) Init(int, int) { e.level = 0 }
func (e *ringEffect) Enabled() bool { return true }

func (e *ringEffect) Process(_ *EffectParams, buf []float32) {
	var peak float32
	for _, v := range buf {
		peak = max(peak, float32(math.Abs(float64(v))))
	}
	if peak > e.level {
		e.level = peak
	} else {
		e.level *= 0.5
	}
	for i := range buf {
		buf[i] += e.level
	}
}

// scalePlugin multiplies its input into out; out must match the input size.
type scalePlugin struct {
	gain     float32
	inits    atomic.Int32
	releases atomic.Int32
	blocks   atomic.Int32
}

func (p *scalePlugin) OnInitSource(SourceID, int) { p.inits.Add(1) }
func (p *scalePlugin) OnReleaseSource(SourceID)   { p.releases.Add(1) }
func (p *scalePlugin) OnAllSourcesProcessed()     { p.blocks.Add(1) }

func (p *scalePlugin) ProcessAudio(in PluginInput, out []float32) {
	for i, v := range in.Samples {
		out[i] = v * p.gain
	}
}

// stereoSpatializer renders a mono input to left at half and right at a
// quarter of its level.
type stereoSpatializer struct {
	scalePlugin
	external bool
}

func (p *stereoSpatializer) OutputChannels() int  { return 2 }
func (p *stereoSpatializer) IsExternalSend() bool { return p.external }

func (p *stereoSpatializer) ProcessAudio(in PluginInput, out []float32) {
	for f := 0; f < len(in.Samples)/in.NumChannels; f++ {
		v := in.Samples[f*in.NumChannels]
		out[2*f] = v * 0.5
		out[2*f+1] = v * 0.25
	}
}

type fixedModulation struct {
	volume, pitch float32
	inits         atomic.Int32
}

func (p *fixedModulation) OnInitSource(SourceID, int)             { p.inits.Add(1) }
func (p *fixedModulation) OnReleaseSource(SourceID)               {}
func (p *fixedModulation) OnAllSourcesProcessed()                 {}
func (p *fixedModulation) Modulation(SourceID) (float32, float32) { return p.volume, p.pitch }

// countedProvider reports its length like a fully decoded file does.
type countedProvider struct {
	*audiotest.Provider
	total int64
}

func (p countedProvider) TotalFrames() int64 { return p.total }
