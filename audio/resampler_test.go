// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
	"github.com/ossrs/go-oryx-lib/errors"
)

func readAll(t *testing.T, src Source, bufSize int) []float32 {
	t.Helper()

	buf := make([]float32, bufSize)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestNewResampler_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewResampler(audiotest.NewSilentSource(8000, 1, 10), 0); errors.Cause(err) != ErrInvalidRate {
		t.Errorf("NewResampler(rate 0) error = %v, want ErrInvalidRate", err)
	}
	if _, err := NewResampler(audiotest.NewSilentSource(8000, 0, 10), 8000); errors.Cause(err) != ErrNoChannels {
		t.Errorf("NewResampler(0 channels) error = %v, want ErrNoChannels", err)
	}
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	r, err := NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)
	if err != nil {
		t.Fatalf("NewResampler() error = %v", err)
	}

	if r.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", r.SampleRate())
	}
	if r.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", r.Channels())
	}
}

func TestResampler_SameRateIsExact(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 1, 100, func(sample, channel int) float32 {
		return float32(sample) / 100
	})
	r, _ := NewResampler(src, 8000)

	got := readAll(t, r, 32)
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	for i, v := range got {
		if math.Abs(float64(v-float32(i)/100)) > 1e-5 {
			t.Fatalf("sample %d = %v, want %v", i, v, float32(i)/100)
		}
	}
}

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int
		frames   int
		want     int
	}{
		{name: "downsample 44.1k to 16k", from: 44100, to: 16000, frames: 44100, want: 16000},
		{name: "upsample 8k to 48k", from: 8000, to: 48000, frames: 8000, want: 48000},
		{name: "same rate", from: 48000, to: 48000, frames: 480, want: 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := NewResampler(audiotest.NewSineSource(tt.from, 1, tt.frames, 440), tt.to)
			got := len(readAll(t, r, 1024))
			if math.Abs(float64(got-tt.want)) > 2 {
				t.Errorf("output frames = %d, want ≈%d", got, tt.want)
			}
		})
	}
}

func TestResampler_StereoPreserved(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(44100, 2, 4410, func(sample, channel int) float32 {
		if channel == 0 {
			return 0.25
		}
		return -0.25
	})
	r, _ := NewResampler(src, 48000)

	got := readAll(t, r, 256)
	for i := 0; i+1 < len(got); i += 2 {
		if math.Abs(float64(got[i]-0.25)) > 0.01 || math.Abs(float64(got[i+1]+0.25)) > 0.01 {
			t.Fatalf("frame %d = [%v %v], want [0.25 -0.25]", i/2, got[i], got[i+1])
		}
	}
}

func TestResampler_EmptySource(t *testing.T) {
	t.Parallel()

	r, _ := NewResampler(audiotest.NewSilentSource(8000, 1, 0), 16000)

	n, err := r.ReadSamples(make([]float32, 16))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = %d, %v, want 0, io.EOF", n, err)
	}
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	r, _ := NewResampler(audiotest.NewSilentSource(8000, 2, 100), 16000)
	if _, err := r.ReadSamples(make([]float32, 3)); errors.Cause(err) != ErrInvalidDstSize {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func BenchmarkResampler_Downsample(b *testing.B) {
	src := audiotest.NewSineSource(44100, 2, 441000, 440)
	r, _ := NewResampler(src, 16000)
	buf := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		if _, err := r.ReadSamples(buf); err == io.EOF {
			src.Reset()
			r, _ = NewResampler(src, 16000)
		}
	}
}
