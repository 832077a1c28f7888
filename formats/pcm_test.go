// SPDX-License-Identifier: EPL-2.0

package formats

import (
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// fakePCM serves a fixed slice of integers through PCMBuffer.
type fakePCM struct {
	data []int
	pos  int
}

func (f *fakePCM) Format() *goaudio.Format {
	return &goaudio.Format{SampleRate: 8000, NumChannels: 1}
}

func (f *fakePCM) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	n := copy(buf.Data, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func TestIntSource_Scaling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		depth int
		in    int
		want  float32
	}{
		{8, 255, 127.0 / 128},
		{8, 128, 0},
		{8, 0, -1},
		{16, -32768, -1},
		{16, 16384, 0.5},
		{24, 4194304, 0.5},
		{32, -1073741824, -0.5},
	}

	for _, tt := range tests {
		src, err := newIntSource(&fakePCM{data: []int{tt.in}}, 8000, 1, tt.depth)
		if err != nil {
			t.Fatalf("depth %d: %v", tt.depth, err)
		}
		dst := make([]float32, 4)
		n, err := src.ReadSamples(dst)
		if n != 1 || err != io.EOF {
			t.Fatalf("depth %d: ReadSamples = %d, %v", tt.depth, n, err)
		}
		if dst[0] != tt.want {
			t.Errorf("depth %d: %d -> %f, want %f", tt.depth, tt.in, dst[0], tt.want)
		}
	}
}

func TestIntSource_UnsupportedDepth(t *testing.T) {
	t.Parallel()

	if _, err := newIntSource(&fakePCM{}, 8000, 1, 12); err == nil {
		t.Error("expected error for 12-bit")
	}
}

func TestIntSource_EOFIsSticky(t *testing.T) {
	t.Parallel()

	src, _ := newIntSource(&fakePCM{data: make([]int, 6)}, 8000, 1, 16)
	dst := make([]float32, 4)
	if n, err := src.ReadSamples(dst); n != 4 || err != nil {
		t.Fatalf("first read = %d, %v", n, err)
	}
	if n, err := src.ReadSamples(dst); n != 2 || err != io.EOF {
		t.Fatalf("second read = %d, %v", n, err)
	}
	if n, err := src.ReadSamples(dst); n != 0 || err != io.EOF {
		t.Fatalf("third read = %d, %v", n, err)
	}
}
