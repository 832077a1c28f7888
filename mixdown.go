// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"context"
	"io"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/provider"
	"github.com/ik5/audmix/utils"
)

var (
	ErrNoTracks = errors.New("audmix: no tracks")
	ErrNoInput  = errors.New("audmix: track has neither a path nor a source")
	ErrEndless  = errors.New("audmix: looping track needs a max duration")
)

// Track is one input of a mixdown.
type Track struct {
	// Path of a file to decode. Source is used when Path is empty; Mixdown
	// closes it.
	Path   string
	Source audio.Source

	// Gain in dB.
	Gain float32
	// Pitch scales the playback rate; zero plays at the original rate.
	Pitch float32
	// Start delays the track from the beginning of the mix.
	Start time.Duration
	// Loop repeats the track until the mix reaches MaxDuration.
	Loop bool

	// Spatial pans the track to Azimuth, in degrees clockwise from the front.
	Spatial bool
	Azimuth float32

	// LowPass and HighPass cutoffs in Hz; zero leaves a filter off.
	LowPass  float32
	HighPass float32

	Effects []mixer.SourceEffect
}

// Options controls the rendered file. Zero fields take the defaults noted.
type Options struct {
	SampleRate  int // 48000
	Channels    int // 2
	BitDepth    int // 16
	BlockFrames int // 1024
	Workers     int // 1
	// MaxDuration cuts the mix; zero renders until every track ends.
	MaxDuration time.Duration
	// MasterGain in dB.
	MasterGain float32
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = 48000
	}
	if o.Channels <= 0 {
		o.Channels = 2
	}
	if o.BitDepth <= 0 {
		o.BitDepth = 16
	}
	if o.BlockFrames <= 0 {
		o.BlockFrames = 1024
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// Result describes a finished mixdown.
type Result struct {
	EngineID string
	Frames   int64
	Duration time.Duration
	Stats    mixer.Stats
}

// Mixdown renders tracks through the mixer into a WAV file written to w.
// Every track is decoded up front and resampled to the output rate. Without
// MaxDuration the output ends with the block in which the last track
// finished, so it is rounded up to whole blocks.
func Mixdown(ctx context.Context, w io.WriteSeeker, tracks []Track, opts Options) (Result, error) {
	var res Result
	if len(tracks) == 0 {
		return res, ErrNoTracks
	}
	opts = opts.withDefaults()
	for i, t := range tracks {
		if t.Loop && opts.MaxDuration <= 0 {
			return res, errors.Wrapf(ErrEndless, "track %v", i)
		}
	}

	cfg := mixer.DefaultConfig()
	cfg.SampleRate = opts.SampleRate
	cfg.NumOutputFrames = opts.BlockFrames
	cfg.NumSources = len(tracks)
	cfg.NumWorkers = opts.Workers
	cfg.OutputChannels = opts.Channels
	cfg.Synchronous = true

	e, err := mixer.NewEngine(cfg, mixer.Plugins{})
	if err != nil {
		return res, errors.Wrapf(err, "create engine")
	}
	defer e.Shutdown()
	if err := e.Init(); err != nil {
		return res, errors.Wrapf(err, "init engine")
	}
	res.EngineID = e.ID()
	e.Master().SetOutputVolume(utils.DecibelsToLinear(opts.MasterGain))

	m := e.Manager()
	ids := make([]mixer.SourceID, 0, len(tracks))
	for i, t := range tracks {
		id, err := startTrack(e, i, t)
		if err != nil {
			return res, errors.Wrapf(err, "track %v", i)
		}
		ids = append(ids, id)
	}

	out, err := formats.NewWAVWriter(w, opts.SampleRate, opts.Channels, opts.BitDepth)
	if err != nil {
		return res, errors.Wrapf(err, "wav writer")
	}
	logger.Tf(ctx, "mixdown start, engine=%v, tracks=%v, rate=%v, channels=%v, depth=%v, max=%v",
		res.EngineID, len(tracks), opts.SampleRate, opts.Channels, opts.BitDepth, opts.MaxDuration)

	limit := int64(opts.MaxDuration.Seconds() * float64(opts.SampleRate))
	block := make([]float32, e.BlockSamples())
	for {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrapf(err, "mixdown at frame %v", res.Frames)
		}
		if err := e.Render(block); err != nil {
			return res, errors.Wrapf(err, "render")
		}
		e.Update()

		n := int64(opts.BlockFrames)
		if limit > 0 {
			n = min(n, limit-res.Frames)
		}
		if err := out.Write(block[:n*int64(opts.Channels)]); err != nil {
			return res, errors.Wrapf(err, "write")
		}
		res.Frames += n

		if limit > 0 && res.Frames >= limit {
			break
		}
		if allDone(m, ids) {
			break
		}
	}
	if err := out.Close(); err != nil {
		return res, err
	}

	res.Duration = time.Duration(res.Frames) * time.Second / time.Duration(opts.SampleRate)
	res.Stats = m.Stats()
	logger.Tf(ctx, "mixdown done, engine=%v, frames=%v, duration=%v, blocks=%v, underruns=%v",
		res.EngineID, res.Frames, res.Duration, res.Stats.BlocksRendered, res.Stats.Underruns)
	return res, nil
}

func startTrack(e *mixer.Engine, i int, t Track) (mixer.SourceID, error) {
	src := t.Source
	if t.Path != "" {
		var err error
		if src, err = formats.Open(t.Path); err != nil {
			return 0, err
		}
	}
	if src == nil {
		return 0, ErrNoInput
	}
	pcm, err := provider.Load(src, e.SampleRate(), t.Loop)
	if err != nil {
		return 0, errors.Wrapf(err, "load")
	}

	m := e.Manager()
	id, ok := m.GetFreeSourceID()
	if !ok {
		pcm.Close()
		return 0, errors.Errorf("no free source")
	}
	err = m.InitSource(id, mixer.InitParams{
		Provider:         pcm,
		AudioComponentID: uint64(i),
		Volume:           utils.DecibelsToLinear(t.Gain),
		Pitch:            t.Pitch,
		LPFFrequency:     t.LowPass,
		HPFFrequency:     t.HighPass,
		Is3D:             t.Spatial,
		Spatialization:   mixer.SpatializationParams{Azimuth: t.Azimuth},
		SubmixSends:      []mixer.SubmixSend{{Submix: e.Master(), Level: 1}},
		Effects:          t.Effects,
	})
	if err != nil {
		m.ReleaseSourceID(id)
		pcm.Close()
		return 0, err
	}
	start := int64(t.Start.Seconds() * float64(e.SampleRate()))
	if err := m.PlayAt(id, start); err != nil {
		return 0, err
	}
	return id, nil
}

func allDone(m *mixer.Manager, ids []mixer.SourceID) bool {
	for _, id := range ids {
		if !m.IsDone(id) {
			return false
		}
	}
	return true
}
