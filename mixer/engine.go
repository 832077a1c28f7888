// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

const (
	engineCreated int32 = iota
	engineRunning
	engineShutdown
)

// Engine drives a Manager from a device callback: each Render computes one
// block and mixes it through the master submix.
type Engine struct {
	ctx     context.Context
	id      string
	manager *Manager
	master  *Submix
	state   atomic.Int32
}

// NewEngine builds a Manager and a master submix of cfg.OutputChannels.
func NewEngine(cfg Config, plugins Plugins) (*Engine, error) {
	m, err := NewManager(cfg, plugins)
	if err != nil {
		return nil, errors.Wrapf(err, "new manager")
	}
	return &Engine{
		ctx:     logger.WithContext(context.Background()),
		id:      uuid.NewString(),
		manager: m,
		master:  NewSubmix(m, cfg.OutputChannels),
	}, nil
}

// ID identifies the engine in logs.
func (e *Engine) ID() string        { return e.id }
func (e *Engine) Manager() *Manager { return e.manager }
func (e *Engine) Master() *Submix   { return e.master }
func (e *Engine) NumChannels() int  { return e.master.numChannels }
func (e *Engine) SampleRate() int   { return e.manager.cfg.SampleRate }
func (e *Engine) BlockSamples() int { return e.manager.cfg.NumOutputFrames * e.master.numChannels }

// Init starts the engine. Render produces silence before Init.
func (e *Engine) Init() error {
	if !e.state.CompareAndSwap(engineCreated, engineRunning) {
		return errors.Errorf("engine %v already initialized", e.id)
	}
	cfg := e.manager.cfg
	logger.Tf(e.ctx, "engine init, id=%v, rate=%v, channels=%v, frames=%v",
		e.id, cfg.SampleRate, cfg.OutputChannels, cfg.NumOutputFrames)
	return nil
}

// Render fills out, one block of interleaved master output. Audio
// goroutine only.
func (e *Engine) Render(out []float32) error {
	if len(out) != e.BlockSamples() {
		return errors.Wrapf(ErrBufferSize, "got %v samples, want %v", len(out), e.BlockSamples())
	}
	switch e.state.Load() {
	case engineCreated:
		clear(out)
		return ErrNotInitialized
	case engineShutdown:
		clear(out)
		return ErrShutdown
	}

	e.manager.Render(func() {
		e.master.ProcessAudio(out)
	})
	return nil
}

// Update is the control tick; see Manager.Update.
func (e *Engine) Update() {
	e.manager.Update()
}

// Shutdown releases every source and stops rendering.
func (e *Engine) Shutdown() {
	if e.state.Swap(engineShutdown) == engineShutdown {
		return
	}
	e.manager.Shutdown()
	logger.Tf(e.ctx, "engine shutdown, id=%v, blocks=%v", e.id, e.manager.blocks.Load())
}
