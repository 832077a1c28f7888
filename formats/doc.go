// SPDX-License-Identifier: EPL-2.0

// Package formats decodes sound files into audio.Source streams and encodes
// mixed output back to WAV.
//
// # Decoders
//
//   - WAV: github.com/go-audio/wav, 8/16/24/32-bit integer PCM
//   - AIFF: github.com/go-audio/aiff, 16-bit PCM
//   - MP3: github.com/hajimehoshi/go-mp3, always stereo
//   - Ogg Vorbis: github.com/jfreymuth/oggvorbis
//
// WAV and AIFF need random access. When the input is not an io.ReadSeeker it
// is read fully into memory first.
//
// Default returns a registry keyed by file extension, and Open picks a decoder
// from a path:
//
//	src, err := formats.Open("explosion.ogg")
//	if err != nil {
//	    // Handle error
//	}
//	defer src.Close()
//
// # Encoding
//
// WAVWriter turns interleaved float32 blocks, as produced by the mixer, into
// integer PCM through go-audio/wav:
//
//	f, _ := os.Create("mix.wav")
//	w, _ := formats.NewWAVWriter(f, 48000, 2, 16)
//	_ = w.Write(block)
//	_ = w.Close()
package formats
