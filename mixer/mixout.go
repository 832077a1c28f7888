// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/ik5/audmix/dsp"
)

// MixOutSource accumulates the block of id into out, an interleaved buffer
// of outChannels channels, through the source's channel map and scaled by
// level. It reports whether anything was mixed. Audio goroutine only; call
// it after the block has been computed.
func (m *Manager) MixOutSource(id SourceID, outChannels int, level float32, stage SubmixSendStage, out []float32) bool {
	if id < 0 || int(id) >= len(m.sources) {
		return false
	}
	s := &m.sources[id]
	if !s.initialized || !s.hasOutput || s.numChannels == 0 {
		return false
	}
	if len(out) != m.cfg.NumOutputFrames*outChannels {
		m.programmerError("mix out of source %v into %v samples, want %v",
			id, len(out), m.cfg.NumOutputFrames*outChannels)
		return false
	}

	in, inCh := s.sourceBuf, s.numChannels
	spatialized := false
	switch {
	case stage == SendPreDistanceAttenuation && s.useReverb:
		in = s.reverbBuf
	case stage == SendPreDistanceAttenuation:
		in = s.preAttenBuf
	case s.useHRTF:
		if m.plugins.Spatialization.IsExternalSend() {
			return false
		}
		in, inCh = s.spatialBuf, s.outputChannels
		spatialized = true
	}

	gains := m.mapFor(s, inCh, outChannels, spatialized)
	dsp.DownmixAndSum(in, inCh, out, outChannels, gains, level)
	return true
}

// mapFor returns the channel map for inCh x outCh, recomputing it when it is
// missing, invalidated, or a 3D source moved beyond the azimuth epsilon.
// Spatialized output is already rendered for the listener and only gets the
// static map.
func (m *Manager) mapFor(s *sourceInfo, inCh, outCh int, spatialized bool) []float32 {
	cm := s.channelMap(inCh, outCh)
	if cm.explicit {
		return cm.gains
	}

	pan3D := s.is3D && !spatialized
	if cm.valid && (!pan3D || azimuthDistance(cm.azimuth, s.spatial.Azimuth) <= m.cfg.AzimuthEpsilon) {
		return cm.gains
	}

	if pan3D {
		clear(cm.gains)
		dsp.Channel3DMap(inCh, outCh, s.spatial.Azimuth, s.spatial.StereoSpread, s.spatial.NormalizedOmniRadius, cm.gains)
		cm.azimuth = s.spatial.Azimuth
	} else {
		dsp.FillDownmixMatrix(inCh, outCh, cm.gains)
	}
	cm.valid = true
	return cm.gains
}

// needsSpeakerMap reports whether the next mix out of s will recompute a
// map.
func (m *Manager) needsSpeakerMap(s *sourceInfo) bool {
	if len(s.channelMaps) == 0 {
		return true
	}
	for i := range s.channelMaps {
		cm := &s.channelMaps[i]
		if cm.explicit {
			continue
		}
		if !cm.valid {
			return true
		}
		if s.is3D && cm.inChannels == s.numChannels &&
			azimuthDistance(cm.azimuth, s.spatial.Azimuth) > m.cfg.AzimuthEpsilon {
			return true
		}
	}
	return false
}

// azimuthDistance is the shortest angle between two azimuths in degrees.
func azimuthDistance(a, b float32) float32 {
	d := dsp.NormalizeAzimuth(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}
