package audio

import (
	"math"
	"sync/atomic"
)

// Volume is a float32 gain that can be read on an audio thread while
// another goroutine changes it. The last Store wins; Load never blocks.
type Volume struct {
	bits atomic.Uint32
}

// NewVolume returns a Volume holding v.
func NewVolume(v float32) *Volume {
	vol := &Volume{}
	vol.Store(v)
	return vol
}

// Load returns the current gain.
func (v *Volume) Load() float32 {
	return math.Float32frombits(v.bits.Load())
}

// Store sets the gain. Values are not clamped.
func (v *Volume) Store(gain float32) {
	v.bits.Store(math.Float32bits(gain))
}
