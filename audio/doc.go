// SPDX-License-Identifier: EPL-2.0

// Package audio defines the pull-based Source every decoder produces, the
// decoder Registry and a streaming Resampler.
//
// # Source Interface
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are interleaved float32 in [-1, 1]. ReadSamples counts samples, not
// frames, and returns io.EOF once the stream is finished:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    process(buf[:n])
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
//
// # Resampling
//
// The Resampler converts a Source to another rate with cubic interpolation,
// keeping the channel count. The mixer's buffer providers use it to bring
// decoded files to the device rate:
//
//	r, err := audio.NewResampler(source, 48000)
//	n, err := r.ReadSamples(buf)
//
// A one-pole low-pass runs ahead of the interpolator when downsampling.
//
// # Format Registry
//
// Decoders are looked up by format key, case-insensitively and with or
// without the leading dot of a file extension:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", formats.WAVDecoder{})
//	decoder, ok := registry.Get(".WAV")
//
// formats.Default returns a registry with every bundled decoder.
package audio
