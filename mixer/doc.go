// SPDX-License-Identifier: EPL-2.0

// Package mixer is a real-time multi-source audio mixer.
//
// A Manager owns a fixed pool of source slots. A control goroutine allocates
// slots, initializes them with a BufferProvider and mutates them through
// asynchronous methods that enqueue commands. The audio goroutine calls
// ComputeNextBlockOfSamples once per device callback. It drains the commands
// handed over since the last block, renders every active source through the
// per-block pipeline (pitch resample, volume and fades, effect chain, envelope
// follower, low/high-pass filters, distance attenuation, plugins) and mixes
// audio buses. Submixes then pull each source's output through its channel
// map with MixOutSource.
//
// The two goroutines meet in three places only: the double-buffered command
// queue, the free slot list, and per-source status values the audio goroutine
// publishes at the end of each block.
//
//	m, _ := mixer.NewManager(mixer.DefaultConfig(), mixer.Plugins{})
//	master := mixer.NewSubmix(m, 2)
//
//	id, ok := m.GetFreeSourceID()
//	if !ok {
//	    // pool exhausted, drop the sound
//	}
//	_ = m.InitSource(id, mixer.InitParams{
//	    Provider:    pcm,
//	    Volume:      1,
//	    Pitch:       1,
//	    SubmixSends: []mixer.SubmixSend{{Submix: master, Level: 1}},
//	})
//	_ = m.Play(id)
//	m.Update() // hand the commands to the audio goroutine
//
// Engine wraps a Manager and a master Submix into a single device callback.
package mixer
