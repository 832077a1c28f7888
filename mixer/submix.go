// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/ik5/audmix/dsp"
)

type submixVoice struct {
	id    SourceID
	level float32
	stage SubmixSendStage
}

type submixChild struct {
	submix *Submix
	matrix []float32
}

// Submix accumulates the sources sending to it, plus its child submixes,
// into one interleaved buffer. Voices and children are changed on the audio
// goroutine only; AddChild goes through the command queue.
type Submix struct {
	m           *Manager
	numChannels int
	volume      atomic.Uint32
	voices      []submixVoice
	children    []submixChild
	buffer      []float32
}

// NewSubmix creates a submix of numChannels channels fed by m's sources.
func NewSubmix(m *Manager, numChannels int) *Submix {
	s := &Submix{
		m:           m,
		numChannels: numChannels,
		buffer:      make([]float32, m.cfg.NumOutputFrames*numChannels),
	}
	s.volume.Store(math.Float32bits(1))
	return s
}

func (s *Submix) NumChannels() int { return s.numChannels }

// AddOrSetSourceVoice registers a voice or updates its level and stage.
func (s *Submix) AddOrSetSourceVoice(id SourceID, level float32, stage SubmixSendStage) {
	for i := range s.voices {
		if s.voices[i].id == id {
			s.voices[i].level = level
			s.voices[i].stage = stage
			return
		}
	}
	s.voices = append(s.voices, submixVoice{id: id, level: level, stage: stage})
}

func (s *Submix) RemoveSourceVoice(id SourceID) {
	s.voices = slices.DeleteFunc(s.voices, func(v submixVoice) bool { return v.id == id })
}

// NumVoices is the number of registered voices. Audio goroutine only.
func (s *Submix) NumVoices() int { return len(s.voices) }

// AddChild mixes child into s, before s's own voices. Control method.
func (s *Submix) AddChild(child *Submix) {
	s.m.Enqueue(func() {
		for _, c := range s.children {
			if c.submix == child {
				return
			}
		}
		s.children = append(s.children, submixChild{
			submix: child,
			matrix: dsp.DownmixMatrix(child.numChannels, s.numChannels),
		})
	})
}

// SetOutputVolume scales the submix output. Safe from any goroutine.
func (s *Submix) SetOutputVolume(v float32) {
	s.volume.Store(math.Float32bits(v))
}

func (s *Submix) OutputVolume() float32 {
	return math.Float32frombits(s.volume.Load())
}

// Buffer is the last block ProcessAudio produced. Audio goroutine only.
func (s *Submix) Buffer() []float32 { return s.buffer }

// ProcessAudio mixes children and voices for the block just computed and
// copies the result into out when out is not nil. Audio goroutine only.
func (s *Submix) ProcessAudio(out []float32) {
	clear(s.buffer)

	for _, c := range s.children {
		c.submix.ProcessAudio(nil)
		dsp.DownmixAndSum(c.submix.buffer, c.submix.numChannels, s.buffer, s.numChannels, c.matrix, 1)
	}
	for _, v := range s.voices {
		s.m.MixOutSource(v.id, s.numChannels, v.level, v.stage, s.buffer)
	}

	if vol := s.OutputVolume(); vol != 1 {
		dsp.Scale(s.buffer, vol)
	}
	if out != nil {
		copy(out, s.buffer)
	}
}
