// SPDX-License-Identifier: EPL-2.0

// Package device plays a mixer engine through the system audio output.
//
// The output pulls blocks from the engine on the audio driver's goroutine,
// which makes that goroutine the mixer's audio goroutine. Only one Output can
// exist per process.
package device
