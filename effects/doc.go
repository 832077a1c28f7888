// SPDX-License-Identifier: EPL-2.0

// Package effects holds source effects for the mixer.
//
// Effects run on the audio goroutine inside the per-block pipeline, after
// volume and before the filters. Their setters may be called from any
// goroutine; new values are picked up at the next block and ramped across it
// where a step would click.
//
//	delay := effects.NewDelay(time.Second)
//	delay.SetTime(250 * time.Millisecond)
//	delay.SetFeedback(0.4)
//	_ = m.SetEffectChain(id, 1, []mixer.SourceEffect{effects.NewGain(-6), delay})
package effects
