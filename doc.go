// SPDX-License-Identifier: EPL-2.0

// Package audmix is a real-time multi-source audio mixer.
//
// The mixer package holds the core: a fixed pool of sources driven from a
// control goroutine through a lock-free command queue and rendered one block
// at a time on the audio goroutine. Each source runs the same pipeline every
// block (resample and pitch, volume, effects, filters, distance attenuation,
// optional spatialization) before it is mixed into submixes and audio buses.
//
// # Packages
//
//   - mixer: the source manager, submixes, audio buses and the Engine
//   - provider: in-memory and streaming decode-buffer providers
//   - effects: source effects such as Gain and Delay
//   - formats: WAV, AIFF, MP3 and Ogg Vorbis decoders and a WAV writer
//   - audio: the Source interface, decoder registry and resampler
//   - dsp: buffer math, filters, envelopes, channel maps and panning
//   - device: plays an Engine on the system audio output
//
// # Quick Start
//
// The simplest way to mix is offline, straight into a WAV file:
//
//	out, _ := os.Create("mix.wav")
//	defer out.Close()
//
//	res, err := audmix.Mixdown(ctx, out, []audmix.Track{
//		{Path: "drums.wav"},
//		{Path: "voice.mp3", Gain: -3, Start: 2 * time.Second},
//	}, audmix.Options{})
//
// # Real-time Mixing
//
// For live playback, build an Engine, start sources on the control goroutine
// and let the device pull blocks:
//
//	e, _ := mixer.NewEngine(mixer.DefaultConfig(), mixer.Plugins{})
//	_ = e.Init()
//
//	stream, _ := provider.OpenFile(ctx, "music.ogg", provider.StreamOptions{SampleRate: 48000})
//	m := e.Manager()
//	id, _ := m.GetFreeSourceID()
//	_ = m.InitSource(id, mixer.InitParams{
//		Provider:    stream,
//		Volume:      1,
//		SubmixSends: []mixer.SubmixSend{{Submix: e.Master(), Level: 1}},
//	})
//	_ = m.Play(id)
//
//	out, _ := device.Open(ctx, e, device.Options{})
//	out.Play()
//
// Call Engine.Update regularly from the control goroutine; it delivers
// observer events and finishes source releases.
package audmix
