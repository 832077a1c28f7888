// SPDX-License-Identifier: EPL-2.0

// Package provider feeds decoded audio to mixer sources.
//
// PCM serves samples already in memory. Stream decodes any audio.Source on
// its own goroutine a few chunks ahead of playback, resampling to the mixer
// rate, so the audio goroutine never waits on a decoder.
//
//	s, err := provider.OpenFile(ctx, "music.ogg", provider.StreamOptions{
//		SampleRate: 48000,
//		Loop:       true,
//	})
//	if err != nil {
//		return err
//	}
//	err = m.InitSource(id, mixer.InitParams{Provider: s, Volume: 1})
package provider
