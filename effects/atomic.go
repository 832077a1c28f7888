// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"
	"sync/atomic"
)

// atomicFloat is a float32 shared between the control and audio goroutines.
type atomicFloat struct {
	bits atomic.Uint32
}

func (f *atomicFloat) Load() float32   { return math.Float32frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float32) { f.bits.Store(math.Float32bits(v)) }
