// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/internal/audiotest"
)

func TestMain(m *testing.M) {
	// Disable the logger during all tests.
	olw := logger.Switch(io.Discard)
	code := m.Run()
	logger.Switch(olw)
	os.Exit(code)
}

// mixdownFile renders tracks into a temporary file and decodes it back.
func mixdownFile(t *testing.T, tracks []Track, opts Options) (Result, []float32, int) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mix.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := Mixdown(context.Background(), f, tracks, opts)
	f.Close()
	if err != nil {
		t.Fatalf("Mixdown() error = %v", err)
	}

	src, err := formats.Open(path)
	if err != nil {
		t.Fatalf("open mix: %v", err)
	}
	defer src.Close()

	var samples []float32
	buf := make([]float32, 4096)
	for {
		n, err := src.ReadSamples(buf)
		samples = append(samples, buf[:n]...)
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			t.Fatalf("read mix: %v", err)
		}
	}
	return res, samples, src.Channels()
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 2e-3 }

func TestMixdown_SumsTracks(t *testing.T) {
	t.Parallel()

	res, samples, channels := mixdownFile(t, []Track{
		{Source: audiotest.NewConstantSource(48000, 1, 1000, 0.25)},
		{Source: audiotest.NewConstantSource(48000, 1, 1000, 0.25)},
	}, Options{BlockFrames: 256})

	if channels != 2 {
		t.Fatalf("channels = %v, want 2", channels)
	}
	// 1000 frames round up to four blocks.
	if res.Frames != 1024 || len(samples) != 2048 {
		t.Fatalf("frames = %v, samples = %v, want 1024 frames", res.Frames, len(samples))
	}
	if res.EngineID == "" {
		t.Error("Result has no engine id")
	}
	if res.Stats.BlocksRendered != 4 {
		t.Errorf("BlocksRendered = %v, want 4", res.Stats.BlocksRendered)
	}

	want := float32(0.5 / math.Sqrt2)
	for i := range 2000 {
		if !near(samples[i], want) {
			t.Fatalf("sample %v = %v, want %v", i, samples[i], want)
		}
	}
	for i := 2000; i < len(samples); i++ {
		if samples[i] != 0 {
			t.Fatalf("sample %v = %v after the tracks ended", i, samples[i])
		}
	}
}

func TestMixdown_TrackOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		track Track
		check func(t *testing.T, frame int, v float32)
	}{
		{
			name:  "start offset",
			track: Track{Start: 10 * time.Millisecond},
			check: func(t *testing.T, frame int, v float32) {
				if frame < 480 && v != 0 {
					t.Fatalf("frame %v = %v before the start", frame, v)
				}
				if frame >= 480 && frame < 1480 && !near(v, 0.5) {
					t.Fatalf("frame %v = %v, want 0.5", frame, v)
				}
			},
		},
		{
			name:  "gain",
			track: Track{Gain: -6},
			check: func(t *testing.T, frame int, v float32) {
				if frame < 1000 && !near(v, 0.5*0.501187) {
					t.Fatalf("frame %v = %v, want -6 dB", frame, v)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.track.Source = audiotest.NewConstantSource(48000, 1, 1000, 0.5)
			_, samples, _ := mixdownFile(t, []Track{tt.track}, Options{Channels: 1, BlockFrames: 128})
			for f, v := range samples {
				tt.check(t, f, v)
			}
		})
	}
}

func TestMixdown_LoopUntilMaxDuration(t *testing.T) {
	t.Parallel()

	res, samples, _ := mixdownFile(t, []Track{
		{Source: audiotest.NewConstantSource(48000, 1, 100, 0.5), Loop: true},
	}, Options{Channels: 1, BitDepth: 24, MaxDuration: 100 * time.Millisecond})

	if res.Frames != 4800 || len(samples) != 4800 {
		t.Fatalf("frames = %v, samples = %v, want 4800", res.Frames, len(samples))
	}
	if res.Duration != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", res.Duration)
	}
	for f := range samples {
		if !near(samples[f], 0.5) {
			t.Fatalf("frame %v = %v, want a continuous 0.5", f, samples[f])
		}
	}
}

func TestMixdown_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tracks []Track
		opts   Options
		want   error
	}{
		{"no tracks", nil, Options{}, ErrNoTracks},
		{"endless", []Track{{Source: audiotest.NewSilentSource(48000, 1, 10), Loop: true}}, Options{}, ErrEndless},
		{"no input", []Track{{}}, Options{}, ErrNoInput},
		{"bad bit depth", []Track{{Source: audiotest.NewSilentSource(48000, 1, 10)}}, Options{BitDepth: 12}, formats.ErrUnsupportedBitDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := os.Create(filepath.Join(t.TempDir(), "mix.wav"))
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			if _, err := Mixdown(context.Background(), f, tt.tracks, tt.opts); errors.Cause(err) != tt.want {
				t.Errorf("Mixdown() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMixdown_MissingFile(t *testing.T) {
	t.Parallel()

	f, _ := os.Create(filepath.Join(t.TempDir(), "mix.wav"))
	defer f.Close()
	_, err := Mixdown(context.Background(), f, []Track{{Path: filepath.Join(t.TempDir(), "none.wav")}}, Options{})
	if err == nil {
		t.Error("Mixdown() of a missing file succeeded")
	}
}

func TestMixdown_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, _ := os.Create(filepath.Join(t.TempDir(), "mix.wav"))
	defer f.Close()
	_, err := Mixdown(ctx, f, []Track{{Source: audiotest.NewSilentSource(48000, 1, 48000)}}, Options{})
	if errors.Cause(err) != context.Canceled {
		t.Errorf("Mixdown() error = %v, want %v", err, context.Canceled)
	}
}

func BenchmarkMixdown(b *testing.B) {
	path := filepath.Join(b.TempDir(), "mix.wav")

	b.ReportAllocs()
	for b.Loop() {
		f, _ := os.Create(path)
		_, err := Mixdown(context.Background(), f, []Track{
			{Source: audiotest.NewSineSource(44100, 2, 44100, 440)},
			{Source: audiotest.NewSineSource(48000, 1, 48000, 660), Spatial: true, Azimuth: 45},
		}, Options{})
		f.Close()
		if err != nil {
			b.Fatal(err)
		}
	}
}
